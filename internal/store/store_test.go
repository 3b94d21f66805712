package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-kantin/internal/models"
	"backend-kantin/internal/store"
	"backend-kantin/internal/store/storetest"
)

func insertTx(t *testing.T, s *store.Store, tr models.Transaction) (int64, error) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	id, err := tx.InsertTransaction(ctx, tr)
	if err != nil {
		return 0, err
	}
	require.NoError(t, tx.Commit())
	return id, nil
}

func sampleTx(employeeID string, tenant models.Tenant, session string, queue int, code string) models.Transaction {
	return models.Transaction{
		EmployeeID:        employeeID,
		EmployeeName:      "Pegawai " + employeeID,
		CardNumber:        "card-" + employeeID,
		TenantID:          tenant.ID,
		TenantName:        tenant.Name,
		SessionID:         session,
		QueueNumber:       queue,
		OrderCode:         code,
		TransactionNumber: "260105-001",
		Channel:           models.ChannelSwipe,
		TransactionDate:   time.Date(2026, 1, 5, 2, 0, 0, 0, time.UTC),
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	s := storetest.New(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestReferenceLookups(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	emp := storetest.Employee(t, s, "E001", "CARD-1", "Budi")
	tenant := storetest.Tenant(t, s, "Warung Yanti", 10, true, "Nasi: Ayam Bakar", "Minuman", "Lauk:")
	storetest.Device(t, s, "READER-1", tenant.ID)

	got, err := s.EmployeeByCard(ctx, "CARD-1")
	require.NoError(t, err)
	assert.Equal(t, emp.EmployeeID, got.EmployeeID)
	assert.False(t, got.IsDisabled)

	_, err = s.EmployeeByCard(ctx, "CARD-404")
	assert.ErrorIs(t, err, store.ErrNotFound)

	gotTenant, err := s.TenantByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nasi: Ayam Bakar", "Minuman", "Lauk:"}, gotTenant.Menu)
	assert.Len(t, gotTenant.VerificationCode, 6)

	device, err := s.DeviceByCode(ctx, "READER-1")
	require.NoError(t, err)
	require.True(t, device.Bound())
	assert.Equal(t, tenant.ID, *device.TenantID)

	require.NoError(t, s.BindDevice(ctx, "READER-1", nil))
	device, err = s.DeviceByCode(ctx, "READER-1")
	require.NoError(t, err)
	assert.False(t, device.Bound())
}

func TestInsertTransactionBackstops(t *testing.T) {
	s := storetest.New(t)
	tenant := storetest.Tenant(t, s, "Warung Rima", 5, true)

	reqID := "req-1"
	first := sampleTx("E001", tenant, "2026-01-05", 1, "code-1")
	first.RequestID = &reqID
	_, err := insertTx(t, s, first)
	require.NoError(t, err)

	tests := []struct {
		name string
		tr   models.Transaction
	}{
		{"pegawai sama di sesi sama", sampleTx("E001", tenant, "2026-01-05", 2, "code-2")},
		{"nomor antrian dobel", sampleTx("E002", tenant, "2026-01-05", 1, "code-3")},
		{"order code dobel", sampleTx("E003", tenant, "2026-01-05", 3, "code-1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := insertTx(t, s, tt.tr)
			assert.ErrorIs(t, err, store.ErrConflict)
		})
	}

	t.Run("request id dobel", func(t *testing.T) {
		tr := sampleTx("E004", tenant, "2026-01-05", 4, "code-4")
		tr.RequestID = &reqID
		_, err := insertTx(t, s, tr)
		assert.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("sesi lain boleh", func(t *testing.T) {
		_, err := insertTx(t, s, sampleTx("E001", tenant, "2026-01-06", 1, "code-5"))
		assert.NoError(t, err)
	})
}

func TestTenantUsageAndLookupInsideTx(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, s, "Warung Yanti", 3, true)

	for i, emp := range []string{"E1", "E2"} {
		_, err := insertTx(t, s, sampleTx(emp, tenant, "S1", i+1, "c-"+emp))
		require.NoError(t, err)
	}

	usage, err := s.TenantUsage(ctx, tenant.ID, "S1")
	require.NoError(t, err)
	assert.Equal(t, store.Usage{Used: 2, MaxQueue: 2}, usage)

	usage, err = s.TenantUsage(ctx, tenant.ID, "S2")
	require.NoError(t, err)
	assert.Equal(t, store.Usage{}, usage)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	found, err := tx.SessionRedemption(ctx, "E2", "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, found.QueueNumber)

	_, err = tx.SessionRedemption(ctx, "E3", "S1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOverrides(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	current, err := s.CurrentOverride(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.OverrideNormal, current.Mode)
	assert.True(t, current.ChangedAt.IsZero())

	at := time.Date(2026, 1, 5, 1, 0, 0, 0, time.UTC)
	_, err = s.SetOverride(ctx, models.OverrideClose, "admin", at)
	require.NoError(t, err)
	_, err = s.SetOverride(ctx, models.OverrideOpen, "supervisor", at.Add(time.Minute))
	require.NoError(t, err)

	current, err = s.CurrentOverride(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.OverrideOpen, current.Mode)
	assert.Equal(t, "supervisor", current.ChangedBy)
	assert.True(t, current.ChangedAt.Equal(at.Add(time.Minute)))

	_, err = s.DB().ExecContext(ctx,
		`INSERT INTO portal_overrides (mode, changed_by, changed_at) VALUES ('HALF_OPEN', 'x', ?)`, at)
	require.NoError(t, err)
	current, err = s.CurrentOverride(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.OverrideNormal, current.Mode)

	history, err := s.OverrideHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "x", history[0].ChangedBy)
	assert.Equal(t, models.OverrideClose, history[2].Mode)
}

func TestTenantSnapshots(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	limited := storetest.Tenant(t, s, "Warung Yanti", 3, true, "Nasi: Rawon")
	open := storetest.Tenant(t, s, "Warung Rima", 0, false)
	storetest.Device(t, s, "R-2", limited.ID)
	storetest.Device(t, s, "R-1", limited.ID)

	_, err := insertTx(t, s, sampleTx("E1", limited, "S1", 1, "c1"))
	require.NoError(t, err)
	last := sampleTx("E2", limited, "S1", 2, "c2")
	last.MenuLabel = "Nasi: Rawon"
	_, err = insertTx(t, s, last)
	require.NoError(t, err)
	_, err = insertTx(t, s, sampleTx("E3", limited, "S0", 1, "c3"))
	require.NoError(t, err)

	snaps, err := s.TenantSnapshots(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.Equal(t, limited.ID, snaps[0].TenantID)
	assert.Equal(t, 2, snaps[0].Used)
	require.NotNil(t, snaps[0].Available)
	assert.Equal(t, 1, *snaps[0].Available)
	require.NotNil(t, snaps[0].LastOrder)
	assert.Equal(t, "E2", snaps[0].LastOrder.EmployeeID)
	assert.Equal(t, 2, snaps[0].LastOrder.QueueNumber)
	assert.Equal(t, "Nasi: Rawon", snaps[0].LastOrder.MenuLabel)
	assert.Equal(t, []string{"R-1", "R-2"}, snaps[0].DeviceCodes)
	assert.Equal(t, []string{"Nasi: Rawon"}, snaps[0].Menu)

	assert.Equal(t, open.ID, snaps[1].TenantID)
	assert.Equal(t, 0, snaps[1].Used)
	assert.Nil(t, snaps[1].Available)
	assert.Nil(t, snaps[1].LastOrder)
	assert.Empty(t, snaps[1].DeviceCodes)
}

func TestRegenerateVerificationCode(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, s, "Warung Yanti", 3, true)

	code, err := s.RegenerateVerificationCode(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	got, err := s.TenantByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, code, got.VerificationCode)

	_, err = s.RegenerateVerificationCode(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.InsertTenant(ctx, models.Tenant{Name: "Kembar", VerificationCode: code})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestListTransactions(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	a := storetest.Tenant(t, s, "A", 10, true)
	b := storetest.Tenant(t, s, "B", 10, true)

	_, err := insertTx(t, s, sampleTx("E1", a, "S1", 1, "c1"))
	require.NoError(t, err)
	_, err = insertTx(t, s, sampleTx("E2", a, "S1", 2, "c2"))
	require.NoError(t, err)
	_, err = insertTx(t, s, sampleTx("E3", b, "S1", 1, "c3"))
	require.NoError(t, err)

	list, total, err := s.ListTransactions(ctx, store.TransactionFilter{TenantID: a.ID, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 1)
	assert.Equal(t, "E2", list[0].EmployeeID)

	list, total, err = s.ListTransactions(ctx, store.TransactionFilter{
		From: time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, list)
}
