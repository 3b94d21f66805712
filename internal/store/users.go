package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"backend-kantin/internal/models"
)

func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, name, password, role, is_banned FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.Name, &u.Password, &u.Role, &u.IsBanned)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, fmt.Errorf("store: user %q: %w", username, err)
	}
	return u, nil
}

// CreateUser - password harus sudah di-hash bcrypt oleh pemanggil
func (s *Store) CreateUser(ctx context.Context, u models.User) (int64, error) {
	if u.IsBanned == "" {
		u.IsBanned = "n"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, name, password, role, is_banned) VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.Name, u.Password, u.Role, u.IsBanned,
	)
	if err != nil {
		return 0, wrapWrite("create user", err)
	}
	return res.LastInsertId()
}
