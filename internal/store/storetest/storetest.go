// Package storetest opens a migrated SQLite store in a temp dir for tests.
package storetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"backend-kantin/internal/config"
	"backend-kantin/internal/models"
	"backend-kantin/internal/store"
)

func New(t testing.TB) *store.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "kantin.db")
	db, err := sql.Open("sqlite", config.SQLiteDSN(path))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := store.New(db, store.DialectSQLite)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func Employee(t testing.TB, s *store.Store, employeeID, card, name string) models.Employee {
	t.Helper()
	e := models.Employee{
		EmployeeID:    employeeID,
		CardNumber:    card,
		Name:          name,
		EmployeeGroup: "Umum",
	}
	id, err := s.InsertEmployee(context.Background(), e)
	require.NoError(t, err)
	e.ID = id
	return e
}

func Tenant(t testing.TB, s *store.Store, name string, quota int, limited bool, menu ...string) models.Tenant {
	t.Helper()
	if menu == nil {
		menu = []string{}
	}
	tenant := models.Tenant{Name: name, Quota: quota, IsLimited: limited, Menu: menu}
	id, err := s.InsertTenant(context.Background(), tenant)
	require.NoError(t, err)

	tenant, err = s.TenantByID(context.Background(), id)
	require.NoError(t, err)
	return tenant
}

func Device(t testing.TB, s *store.Store, code string, tenantID int64) {
	t.Helper()
	require.NoError(t, s.BindDevice(context.Background(), code, &tenantID))
}
