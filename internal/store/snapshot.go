package store

import (
	"context"
	"database/sql"
	"fmt"

	"backend-kantin/internal/models"
)

// snapshotQuery - used dan order terakhir per tenant dalam satu statement,
// jadi keduanya konsisten terhadap commit yang sama.
const snapshotQuery = `
	SELECT
		t.id, t.name, t.quota, t.is_limited,
		COALESCE(u.used, 0),
		lt.id, lt.queue_number, lt.employee_id, lt.employee_name, lt.menu_label
	FROM tenants t
	LEFT JOIN (
		SELECT tenant_id, COUNT(*) AS used, MAX(id) AS last_id
		FROM transactions
		WHERE session_id = ?
		GROUP BY tenant_id
	) u ON u.tenant_id = t.id
	LEFT JOIN transactions lt ON lt.id = u.last_id
	ORDER BY t.id ASC`

// TenantSnapshots - data pull untuk dashboard. Menu dan device code dibaca
// terpisah karena tidak ikut dalam hitungan kuota.
func (s *Store) TenantSnapshots(ctx context.Context, sessionID string) ([]models.TenantSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, snapshotQuery, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: snapshot: %w", err)
	}
	defer rows.Close()

	tenants := []models.TenantSnapshot{}
	for rows.Next() {
		var (
			ts           models.TenantSnapshot
			lastID       sql.NullInt64
			lastQueue    sql.NullInt64
			lastEmpID    sql.NullString
			lastEmpName  sql.NullString
			lastMenuItem sql.NullString
		)
		if err := rows.Scan(
			&ts.TenantID, &ts.TenantName, &ts.Quota, &ts.IsLimited, &ts.Used,
			&lastID, &lastQueue, &lastEmpID, &lastEmpName, &lastMenuItem,
		); err != nil {
			return nil, fmt.Errorf("store: snapshot: %w", err)
		}
		if lastID.Valid {
			ts.LastOrder = &models.LastOrder{
				TransactionID: lastID.Int64,
				QueueNumber:   int(lastQueue.Int64),
				EmployeeID:    lastEmpID.String,
				EmployeeName:  lastEmpName.String,
				MenuLabel:     lastMenuItem.String,
			}
		}
		tenant := models.Tenant{Quota: ts.Quota, IsLimited: ts.IsLimited}
		ts.Available = tenant.Available(ts.Used)
		tenants = append(tenants, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: snapshot: %w", err)
	}
	rows.Close()

	menus, err := s.menusByTenant(ctx)
	if err != nil {
		return nil, err
	}
	codes, err := s.deviceCodesByTenant(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tenants {
		tenants[i].Menu = menus[tenants[i].TenantID]
		if tenants[i].Menu == nil {
			tenants[i].Menu = []string{}
		}
		tenants[i].DeviceCodes = codes[tenants[i].TenantID]
		if tenants[i].DeviceCodes == nil {
			tenants[i].DeviceCodes = []string{}
		}
	}
	return tenants, nil
}
