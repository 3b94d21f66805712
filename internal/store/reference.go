package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"backend-kantin/internal/models"
)

const employeeColumns = `id, employee_id, card_number, name, employee_group, email, is_disabled`

func scanEmployee(row *sql.Row) (models.Employee, error) {
	var e models.Employee
	err := row.Scan(&e.ID, &e.EmployeeID, &e.CardNumber, &e.Name, &e.EmployeeGroup, &e.Email, &e.IsDisabled)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("store: scan employee: %w", err)
	}
	return e, nil
}

func employeeByCard(ctx context.Context, q Querier, cardNumber string) (models.Employee, error) {
	return scanEmployee(q.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE card_number = ?`, cardNumber))
}

func employeeByID(ctx context.Context, q Querier, employeeID string) (models.Employee, error) {
	return scanEmployee(q.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE employee_id = ?`, employeeID))
}

func tenantMenu(ctx context.Context, q Querier, tenantID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT label FROM tenant_menu WHERE tenant_id = ? ORDER BY position ASC, id ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("store: tenant menu: %w", err)
	}
	defer rows.Close()

	menu := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("store: tenant menu: %w", err)
		}
		menu = append(menu, label)
	}
	return menu, rows.Err()
}

func tenantByID(ctx context.Context, q Querier, id int64) (models.Tenant, error) {
	var t models.Tenant
	err := q.QueryRowContext(ctx,
		`SELECT id, name, quota, is_limited, verification_code FROM tenants WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Quota, &t.IsLimited, &t.VerificationCode)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, fmt.Errorf("store: tenant %d: %w", id, err)
	}

	t.Menu, err = tenantMenu(ctx, q, id)
	if err != nil {
		return t, err
	}
	return t, nil
}

func deviceByCode(ctx context.Context, q Querier, code string) (models.Device, error) {
	var (
		d        models.Device
		tenantID sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, device_code, tenant_id FROM devices WHERE device_code = ?`, code,
	).Scan(&d.ID, &d.DeviceCode, &tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	if err != nil {
		return d, fmt.Errorf("store: device %q: %w", code, err)
	}
	if tenantID.Valid {
		id := tenantID.Int64
		d.TenantID = &id
	}
	return d, nil
}

func (s *Store) EmployeeByCard(ctx context.Context, cardNumber string) (models.Employee, error) {
	return employeeByCard(ctx, s.db, cardNumber)
}

func (s *Store) EmployeeByID(ctx context.Context, employeeID string) (models.Employee, error) {
	return employeeByID(ctx, s.db, employeeID)
}

func (s *Store) TenantByID(ctx context.Context, id int64) (models.Tenant, error) {
	return tenantByID(ctx, s.db, id)
}

func (s *Store) DeviceByCode(ctx context.Context, code string) (models.Device, error) {
	return deviceByCode(ctx, s.db, code)
}

func (t *Tx) EmployeeByID(ctx context.Context, employeeID string) (models.Employee, error) {
	return employeeByID(ctx, t.tx, employeeID)
}

func (t *Tx) TenantByID(ctx context.Context, id int64) (models.Tenant, error) {
	return tenantByID(ctx, t.tx, id)
}

func (t *Tx) DeviceByCode(ctx context.Context, code string) (models.Device, error) {
	return deviceByCode(ctx, t.tx, code)
}

// Tenants - semua tenant urut id, lengkap dengan menu
func (s *Store) Tenants(ctx context.Context) ([]models.Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, quota, is_limited, verification_code FROM tenants ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: tenants: %w", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Quota, &t.IsLimited, &t.VerificationCode); err != nil {
			return nil, fmt.Errorf("store: tenants: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: tenants: %w", err)
	}
	rows.Close()

	menus, err := s.menusByTenant(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tenants {
		tenants[i].Menu = menus[tenants[i].ID]
		if tenants[i].Menu == nil {
			tenants[i].Menu = []string{}
		}
	}
	return tenants, nil
}

func (s *Store) menusByTenant(ctx context.Context) (map[int64][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, label FROM tenant_menu ORDER BY tenant_id ASC, position ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: menus: %w", err)
	}
	defer rows.Close()

	menus := make(map[int64][]string)
	for rows.Next() {
		var (
			tenantID int64
			label    string
		)
		if err := rows.Scan(&tenantID, &label); err != nil {
			return nil, fmt.Errorf("store: menus: %w", err)
		}
		menus[tenantID] = append(menus[tenantID], label)
	}
	return menus, rows.Err()
}

func (s *Store) deviceCodesByTenant(ctx context.Context) (map[int64][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, device_code FROM devices WHERE tenant_id IS NOT NULL ORDER BY device_code ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: device codes: %w", err)
	}
	defer rows.Close()

	codes := make(map[int64][]string)
	for rows.Next() {
		var (
			tenantID int64
			code     string
		)
		if err := rows.Scan(&tenantID, &code); err != nil {
			return nil, fmt.Errorf("store: device codes: %w", err)
		}
		codes[tenantID] = append(codes[tenantID], code)
	}
	return codes, rows.Err()
}
