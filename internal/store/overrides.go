package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"backend-kantin/internal/models"
)

// CurrentOverride - baris terakhir yang menang. Tabel kosong berarti NORMAL
// dengan ChangedAt nol. Nilai mode yang tidak dikenal juga dibaca NORMAL.
func (s *Store) CurrentOverride(ctx context.Context) (models.OverrideEntry, error) {
	var (
		entry models.OverrideEntry
		mode  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mode, changed_by, changed_at FROM portal_overrides ORDER BY id DESC LIMIT 1`,
	).Scan(&entry.ID, &mode, &entry.ChangedBy, &entry.ChangedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OverrideEntry{Mode: models.OverrideNormal}, nil
	}
	if err != nil {
		return entry, fmt.Errorf("store: current override: %w", err)
	}
	entry.Mode, _ = models.ParseOverrideMode(mode)
	return entry, nil
}

// SetOverride - append-only, riwayat tidak pernah ditimpa
func (s *Store) SetOverride(ctx context.Context, mode models.OverrideMode, changedBy string, at time.Time) (models.OverrideEntry, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO portal_overrides (mode, changed_by, changed_at) VALUES (?, ?, ?)`,
		string(mode), changedBy, at.UTC(),
	)
	if err != nil {
		return models.OverrideEntry{}, wrapWrite("set override", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.OverrideEntry{}, fmt.Errorf("store: set override: %w", err)
	}
	return models.OverrideEntry{ID: id, Mode: mode, ChangedBy: changedBy, ChangedAt: at.UTC()}, nil
}

func (s *Store) OverrideHistory(ctx context.Context, limit int) ([]models.OverrideEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, changed_by, changed_at FROM portal_overrides ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: override history: %w", err)
	}
	defer rows.Close()

	history := []models.OverrideEntry{}
	for rows.Next() {
		var (
			entry models.OverrideEntry
			mode  string
		)
		if err := rows.Scan(&entry.ID, &mode, &entry.ChangedBy, &entry.ChangedAt); err != nil {
			return nil, fmt.Errorf("store: override history: %w", err)
		}
		entry.Mode, _ = models.ParseOverrideMode(mode)
		history = append(history, entry)
	}
	return history, rows.Err()
}
