package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"backend-kantin/internal/models"
)

// Penulisan data referensi. Dipakai canteenctl seed dan test, bukan oleh admission.

const (
	verificationAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	verificationLength   = 6
	verificationAttempts = 8
)

func NewVerificationCode() (string, error) {
	code := make([]byte, verificationLength)
	max := big.NewInt(int64(len(verificationAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = verificationAlphabet[n.Int64()]
	}
	return string(code), nil
}

func (s *Store) InsertEmployee(ctx context.Context, e models.Employee) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO employees (employee_id, card_number, name, employee_group, email, is_disabled)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.EmployeeID, e.CardNumber, e.Name, e.EmployeeGroup, e.Email, e.IsDisabled,
	)
	if err != nil {
		return 0, wrapWrite("insert employee", err)
	}
	return res.LastInsertId()
}

// SetEmployeeDisabled - dipakai test dan seed untuk toggle status pegawai
func (s *Store) SetEmployeeDisabled(ctx context.Context, employeeID string, disabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE employees SET is_disabled = ? WHERE employee_id = ?`, disabled, employeeID)
	if err != nil {
		return fmt.Errorf("store: disable employee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertTenant - tenant plus menu dalam satu transaksi. Kode verifikasi
// dibuat otomatis kalau kosong.
func (s *Store) InsertTenant(ctx context.Context, t models.Tenant) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: insert tenant: %w", err)
	}
	defer tx.Rollback()

	code := t.VerificationCode
	var res sql.Result
	for attempt := 0; attempt < verificationAttempts; attempt++ {
		if t.VerificationCode == "" {
			if code, err = NewVerificationCode(); err != nil {
				return 0, fmt.Errorf("store: insert tenant: %w", err)
			}
		}
		res, err = tx.ExecContext(ctx,
			`INSERT INTO tenants (name, quota, is_limited, verification_code) VALUES (?, ?, ?, ?)`,
			t.Name, t.Quota, t.IsLimited, code,
		)
		if err == nil || t.VerificationCode != "" || !isUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return 0, wrapWrite("insert tenant", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: insert tenant: %w", err)
	}
	for pos, label := range t.Menu {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tenant_menu (tenant_id, position, label) VALUES (?, ?, ?)`, id, pos, label,
		); err != nil {
			return 0, fmt.Errorf("store: insert tenant menu: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: insert tenant: %w", err)
	}
	return id, nil
}

// BindDevice - daftarkan device atau pindahkan binding-nya. tenantID nil = lepas binding.
func (s *Store) BindDevice(ctx context.Context, code string, tenantID *int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: bind device: %w", err)
	}
	defer tx.Rollback()

	var bound sql.NullInt64
	if tenantID != nil {
		bound = sql.NullInt64{Int64: *tenantID, Valid: true}
	}

	_, err = deviceByCode(ctx, tx, code)
	switch {
	case errors.Is(err, ErrNotFound):
		_, err = tx.ExecContext(ctx, `INSERT INTO devices (device_code, tenant_id) VALUES (?, ?)`, code, bound)
	case err == nil:
		_, err = tx.ExecContext(ctx, `UPDATE devices SET tenant_id = ? WHERE device_code = ?`, bound, code)
	}
	if err != nil {
		return wrapWrite("bind device", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: bind device: %w", err)
	}
	return nil
}

// RegenerateVerificationCode - ganti kode dengan satu UPDATE. Constraint unik
// menolak bentrok, jadi tidak ada saat dua tenant terlihat berkode sama.
func (s *Store) RegenerateVerificationCode(ctx context.Context, tenantID int64) (string, error) {
	for attempt := 0; attempt < verificationAttempts; attempt++ {
		code, err := NewVerificationCode()
		if err != nil {
			return "", fmt.Errorf("store: verification code: %w", err)
		}
		res, err := s.db.ExecContext(ctx,
			`UPDATE tenants SET verification_code = ? WHERE id = ?`, code, tenantID)
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("store: verification code: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", ErrNotFound
		}
		return code, nil
	}
	return "", fmt.Errorf("store: verification code: %w", ErrConflict)
}
