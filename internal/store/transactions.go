package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-kantin/internal/models"
)

const transactionColumns = `id, employee_id, employee_name, employee_group, card_number,
	tenant_id, tenant_name, session_id, queue_number, menu_label, order_code,
	transaction_number, channel, request_id, transaction_date`

// Usage - hitungan turunan dari log transaksi untuk satu (tenant, sesi).
// MaxQueue adalah nomor tertinggi yang pernah dipakai, bukan hanya yang tersisa.
type Usage struct {
	Used     int
	MaxQueue int
}

func scanTransaction(row interface{ Scan(...any) error }) (models.Transaction, error) {
	var (
		t         models.Transaction
		requestID sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.EmployeeID, &t.EmployeeName, &t.EmployeeGroup, &t.CardNumber,
		&t.TenantID, &t.TenantName, &t.SessionID, &t.QueueNumber, &t.MenuLabel, &t.OrderCode,
		&t.TransactionNumber, &t.Channel, &requestID, &t.TransactionDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, fmt.Errorf("store: scan transaction: %w", err)
	}
	if requestID.Valid {
		id := requestID.String
		t.RequestID = &id
	}
	return t, nil
}

func transactionByID(ctx context.Context, q Querier, id int64) (models.Transaction, error) {
	return scanTransaction(q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
}

func tenantUsage(ctx context.Context, q Querier, tenantID int64, sessionID string) (Usage, error) {
	var (
		u    Usage
		last sql.NullInt64
	)
	err := q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM transactions WHERE tenant_id = ? AND session_id = ?),
			(SELECT COALESCE(MAX(queue_number), 0) FROM transactions WHERE tenant_id = ? AND session_id = ?),
			(SELECT last_queue FROM queue_counters WHERE tenant_id = ? AND session_id = ?)`,
		tenantID, sessionID, tenantID, sessionID, tenantID, sessionID,
	).Scan(&u.Used, &u.MaxQueue, &last)
	if err != nil {
		return u, fmt.Errorf("store: usage tenant %d sesi %s: %w", tenantID, sessionID, err)
	}
	// nomor yang pernah keluar lalu dipindah lewat koreksi tetap terhitung
	if last.Valid && int(last.Int64) > u.MaxQueue {
		u.MaxQueue = int(last.Int64)
	}
	return u, nil
}

// ClaimQueue - catat nomor antrian tertinggi yang pernah dipakai (tenant, sesi)
func (t *Tx) ClaimQueue(ctx context.Context, tenantID int64, sessionID string, queue int) error {
	query := `INSERT INTO queue_counters (tenant_id, session_id, last_queue) VALUES (?, ?, ?)
		ON CONFLICT (tenant_id, session_id) DO UPDATE SET last_queue = excluded.last_queue`
	if t.dialect == DialectMySQL {
		query = `INSERT INTO queue_counters (tenant_id, session_id, last_queue) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE last_queue = VALUES(last_queue)`
	}
	if _, err := t.tx.ExecContext(ctx, query, tenantID, sessionID, queue); err != nil {
		return fmt.Errorf("store: claim queue: %w", err)
	}
	return nil
}

func (s *Store) TransactionByID(ctx context.Context, id int64) (models.Transaction, error) {
	return transactionByID(ctx, s.db, id)
}

func (s *Store) TenantUsage(ctx context.Context, tenantID int64, sessionID string) (Usage, error) {
	return tenantUsage(ctx, s.db, tenantID, sessionID)
}

func (t *Tx) TransactionByID(ctx context.Context, id int64) (models.Transaction, error) {
	return transactionByID(ctx, t.tx, id)
}

func (t *Tx) TenantUsage(ctx context.Context, tenantID int64, sessionID string) (Usage, error) {
	return tenantUsage(ctx, t.tx, tenantID, sessionID)
}

// UsedThrough - used (tenant, sesi) sampai transaksi id ini, untuk
// menyusun ulang tiket saat request di-replay
func (s *Store) UsedThrough(ctx context.Context, tenantID int64, sessionID string, transactionID int64) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE tenant_id = ? AND session_id = ? AND id <= ?`,
		tenantID, sessionID, transactionID,
	).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("store: used through: %w", err)
	}
	return used, nil
}

// SessionRedemption - transaksi pegawai di sesi ini (tenant mana pun)
func (t *Tx) SessionRedemption(ctx context.Context, employeeID, sessionID string) (models.Transaction, error) {
	return scanTransaction(t.tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE employee_id = ? AND session_id = ? LIMIT 1`,
		employeeID, sessionID))
}

func (t *Tx) TransactionByRequestID(ctx context.Context, requestID string) (models.Transaction, error) {
	return scanTransaction(t.tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE request_id = ?`, requestID))
}

func (s *Store) TransactionByRequestID(ctx context.Context, requestID string) (models.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE request_id = ?`, requestID))
}

func (t *Tx) InsertTransaction(ctx context.Context, tr models.Transaction) (int64, error) {
	var requestID sql.NullString
	if tr.RequestID != nil {
		requestID = sql.NullString{String: *tr.RequestID, Valid: true}
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (
			employee_id, employee_name, employee_group, card_number,
			tenant_id, tenant_name, session_id, queue_number, menu_label,
			order_code, transaction_number, channel, request_id, transaction_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.EmployeeID, tr.EmployeeName, tr.EmployeeGroup, tr.CardNumber,
		tr.TenantID, tr.TenantName, tr.SessionID, tr.QueueNumber, tr.MenuLabel,
		tr.OrderCode, tr.TransactionNumber, tr.Channel, requestID, tr.TransactionDate.UTC(),
	)
	if err != nil {
		return 0, wrapWrite("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: insert transaction: %w", err)
	}
	return id, nil
}

// UpdateTransaction - jalur koreksi admin. order_code, channel dan request_id tidak ikut diubah.
func (t *Tx) UpdateTransaction(ctx context.Context, tr models.Transaction) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE transactions SET
			employee_id = ?, employee_name = ?, employee_group = ?, card_number = ?,
			tenant_id = ?, tenant_name = ?, session_id = ?, queue_number = ?,
			menu_label = ?, transaction_number = ?, transaction_date = ?
		WHERE id = ?`,
		tr.EmployeeID, tr.EmployeeName, tr.EmployeeGroup, tr.CardNumber,
		tr.TenantID, tr.TenantName, tr.SessionID, tr.QueueNumber,
		tr.MenuLabel, tr.TransactionNumber, tr.TransactionDate.UTC(), tr.ID,
	)
	if err != nil {
		return wrapWrite("update transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update transaction: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TransactionFilter - filter laporan, semua field opsional
type TransactionFilter struct {
	EmployeeGroup string
	EmployeeID    string
	TenantID      int64
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}

// ListTransactions - daftar transaksi terbaru dulu, plus total untuk pagination
func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, int, error) {
	var (
		where []string
		args  []any
	)
	if f.EmployeeGroup != "" {
		where = append(where, "employee_group = ?")
		args = append(args, f.EmployeeGroup)
	}
	if f.EmployeeID != "" {
		where = append(where, "employee_id = ?")
		args = append(args, f.EmployeeID)
	}
	if f.TenantID > 0 {
		where = append(where, "tenant_id = ?")
		args = append(args, f.TenantID)
	}
	if !f.From.IsZero() {
		where = append(where, "transaction_date >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "transaction_date < ?")
		args = append(args, f.To.UTC())
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count transactions: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions`+clause+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list transactions: %w", err)
	}
	defer rows.Close()

	list := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: list transactions: %w", err)
	}
	return list, total, nil
}
