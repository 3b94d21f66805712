package helper

import (
	"context"
	"errors"

	"backend-kantin/internal/models"
	"backend-kantin/internal/store"
)

var (
	ErrUserNotFound = errors.New("user tidak ditemukan")
	ErrUserBanned   = errors.New("user dibanned")
	ErrInvalidRole  = errors.New("role tidak sesuai")
)

type UserReader interface {
	UserByUsername(ctx context.Context, username string) (models.User, error)
}

// CheckUser - cek banned dan role untuk user yang sudah dibaca
func CheckUser(u models.User, allowedRoles ...string) error {
	if u.IsBanned == "y" {
		return ErrUserBanned
	}
	for _, allowedRole := range allowedRoles {
		if u.Role == allowedRole {
			return nil
		}
	}
	return ErrInvalidRole
}

func CheckUserRole(ctx context.Context, r UserReader, username string, allowedRoles ...string) (models.User, error) {
	u, err := r.UserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, err
	}
	return u, CheckUser(u, allowedRoles...)
}
