package admission_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-kantin/internal/admission"
	"backend-kantin/internal/idempotency"
	"backend-kantin/internal/ledger"
	"backend-kantin/internal/models"
	"backend-kantin/internal/realtime"
	"backend-kantin/internal/schedule"
	"backend-kantin/internal/store"
	"backend-kantin/internal/store/storetest"
)

var wib = time.FixedZone("WIB", 7*3600)

type fixture struct {
	svc   *admission.Service
	store *store.Store
	clock *schedule.FakeClock
	hub   *realtime.Hub
	log   *logrus.Logger
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := storetest.New(t)
	logger := quietLogger()

	windows, err := schedule.ParseWindows("08:00-11:00")
	require.NoError(t, err)
	sched, err := schedule.NewSchedule(windows, wib)
	require.NoError(t, err)

	clock := schedule.NewFakeClock(time.Date(2026, 1, 5, 9, 0, 0, 0, wib))
	resolver := schedule.NewResolver(sched, st, clock, logger)

	hub := realtime.NewHub(1024, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	svc := admission.NewService(st, resolver, ledger.New(st), hub, idempotency.NewMemoryStore(time.Hour), logger)
	return &fixture{svc: svc, store: st, clock: clock, hub: hub, log: logger}
}

func (f *fixture) newService() *admission.Service {
	windows, _ := schedule.ParseWindows("08:00-11:00")
	sched, _ := schedule.NewSchedule(windows, wib)
	resolver := schedule.NewResolver(sched, f.store, f.clock, f.log)
	return admission.NewService(f.store, resolver, ledger.New(f.store), f.hub, idempotency.NewMemoryStore(time.Hour), f.log)
}

func swipe(card, device string) admission.Request {
	return admission.Request{Channel: models.ChannelSwipe, CardNumber: card, DeviceCode: device}
}

func portal(employeeID string, tenantID int64, menu string) admission.Request {
	return admission.Request{Channel: models.ChannelPortal, EmployeeID: employeeID, TenantID: tenantID, MenuLabel: menu}
}

func employees(t *testing.T, st *store.Store, n int) []models.Employee {
	t.Helper()
	out := make([]models.Employee, n)
	for i := range out {
		id := fmt.Sprintf("E%03d", i+1)
		out[i] = storetest.Employee(t, st, id, "CARD-"+id, "Pegawai "+id)
	}
	return out
}

func TestQuotaScenarioAvailableCountsDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, f.store, "Warung Yanti", 3, true)
	storetest.Device(t, f.store, "READER-1", tenant.ID)
	emps := employees(t, f.store, 4)

	for i, want := range []int{2, 1, 0} {
		res, err := f.svc.Admit(ctx, swipe(emps[i].CardNumber, "READER-1"))
		require.NoError(t, err)
		assert.Equal(t, i+1, res.Ticket.QueueNumber)
		require.NotNil(t, res.Ticket.Available)
		assert.Equal(t, want, *res.Ticket.Available)
		assert.Equal(t, i+1, res.Ticket.Used)
		assert.Equal(t, tenant.VerificationCode, res.Ticket.VerificationCode)
		assert.Equal(t, fmt.Sprintf("260105-%03d", i+1), res.Ticket.TransactionNumber)
		assert.Len(t, res.Ticket.OrderCode, 32)
	}

	_, err := f.svc.Admit(ctx, swipe(emps[3].CardNumber, "READER-1"))
	assert.ErrorIs(t, err, admission.ErrQuotaExceeded)
	assert.Equal(t, admission.KindQuotaExceeded, admission.KindOf(err))

	snap, err := f.svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tenants, 1)
	assert.Equal(t, 3, snap.Tenants[0].Used)
	require.NotNil(t, snap.Tenants[0].Available)
	assert.Equal(t, 0, *snap.Tenants[0].Available)
	assert.Equal(t, emps[2].EmployeeID, snap.Tenants[0].LastOrder.EmployeeID)
	assert.Equal(t, uint64(3), snap.Seq)
}

func TestConcurrentAdmitsExactlyQuotaInCommitOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, f.store, "Warung Rima", 5, true, "Nasi: Soto")
	emps := employees(t, f.store, 30)

	sub := f.hub.Subscribe()
	require.NotNil(t, sub)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		queues   []int
		exceeded int
	)
	for _, e := range emps {
		wg.Add(1)
		go func(e models.Employee) {
			defer wg.Done()
			res, err := f.svc.Admit(ctx, portal(e.EmployeeID, tenant.ID, "Soto"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				queues = append(queues, res.Ticket.QueueNumber)
			case errors.Is(err, admission.ErrQuotaExceeded):
				exceeded++
			default:
				t.Errorf("error tak terduga: %v", err)
			}
		}(e)
	}
	wg.Wait()

	sort.Ints(queues)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, queues)
	assert.Equal(t, 25, exceeded)

	var lastSeq uint64
	for want := 1; want <= 5; want++ {
		select {
		case ev := <-sub.C:
			data := ev.Data.(realtime.CommitEvent)
			assert.Equal(t, want, data.QueueNumber, "urutan broadcast harus sama dengan urutan antrian")
			assert.Equal(t, want, data.Used)
			assert.Equal(t, "Nasi: Soto", data.MenuLabel)
			assert.Greater(t, ev.Seq, lastSeq)
			lastSeq = ev.Seq
		case <-time.After(2 * time.Second):
			t.Fatalf("event ke-%d tidak sampai", want)
		}
	}
}

func TestDisabledEmployeeHasNoEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, f.store, "Warung Yanti", 3, true)
	storetest.Device(t, f.store, "READER-1", tenant.ID)
	emp := storetest.Employee(t, f.store, "E1", "CARD-1", "Budi")
	require.NoError(t, f.store.SetEmployeeDisabled(ctx, emp.EmployeeID, true))

	_, err := f.svc.Admit(ctx, swipe("CARD-1", "READER-1"))
	assert.ErrorIs(t, err, admission.ErrEmployeeDisabled)

	snap, err := f.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Tenants[0].Used)
	assert.Nil(t, snap.Tenants[0].LastOrder)
	assert.Equal(t, uint64(0), snap.Seq)
}

func TestCloseOverrideRejectsInsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, f.store, "Warung Yanti", 3, true)
	storetest.Employee(t, f.store, "E1", "CARD-1", "Budi")

	_, err := f.svc.SetOverride(ctx, "CLOSE", "admin")
	require.NoError(t, err)

	_, err = f.svc.Admit(ctx, portal("E1", tenant.ID, ""))
	assert.ErrorIs(t, err, admission.ErrCanteenClosed)

	var closed *admission.ClosedError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, schedule.ReasonOverrideClose, closed.Status.Reason)

	resp := admission.NewResponse(admission.Result{}, err)
	assert.Equal(t, admission.KindCanteenClosed, resp.Outcome)
	assert.Equal(t, admission.CueFailed, resp.Cue)
	assert.Equal(t, "Kantin ditutup oleh operator", resp.Message)
	assert.Nil(t, resp.Ticket)
}

func TestOpenOverrideOutsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, f.store, "Warung Yanti", 3, true)
	storetest.Employee(t, f.store, "E1", "CARD-1", "Budi")
	f.clock.Set(time.Date(2026, 1, 5, 15, 0, 0, 0, wib))

	_, err := f.svc.Admit(ctx, portal("E1", tenant.ID, ""))
	var closed *admission.ClosedError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, schedule.ReasonAfterClose, closed.Status.Reason)

	_, err = f.svc.SetOverride(ctx, "open", "admin")
	require.NoError(t, err)
	res, err := f.svc.Admit(ctx, portal("E1", tenant.ID, ""))
	require.NoError(t, err)
	assert.Equal(t, "2026-01-05", res.Ticket.SessionID)
}

func TestDuplicateRedemptionIsGlobalPerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := storetest.Tenant(t, f.store, "A", 5, true)
	b := storetest.Tenant(t, f.store, "B", 5, true)
	storetest.Employee(t, f.store, "E1", "CARD-1", "Budi")

	first, err := f.svc.Admit(ctx, portal("E1", a.ID, ""))
	require.NoError(t, err)

	_, err = f.svc.Admit(ctx, portal("E1", b.ID, ""))
	assert.ErrorIs(t, err, admission.ErrDuplicateRedemption)

	_, err = f.svc.Admit(ctx, portal("E1", a.ID, ""))
	assert.ErrorIs(t, err, admission.ErrDuplicateRedemption)

	got, err := f.svc.Transaction(ctx, first.Ticket.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.TenantID)
	assert.Equal(t, 1, got.QueueNumber)
}

func TestSessionRolloverResetsQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, f.store, "Satu Porsi", 1, true)
	storetest.Employee(t, f.store, "E1", "CARD-1", "Budi")
	storetest.Employee(t, f.store, "E2", "CARD-2", "Sari")

	_, err := f.svc.Admit(ctx, portal("E1", tenant.ID, ""))
	require.NoError(t, err)
	_, err = f.svc.Admit(ctx, portal("E2", tenant.ID, ""))
	require.ErrorIs(t, err, admission.ErrQuotaExceeded)

	f.clock.Advance(24 * time.Hour)
	res, err := f.svc.Admit(ctx, portal("E2", tenant.ID, ""))
	require.NoError(t, err)
	assert.Equal(t, "2026-01-06", res.Ticket.SessionID)
	assert.Equal(t, 1, res.Ticket.QueueNumber)
}

func TestAdmitRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, f.store, "Warung Yanti", 3, true, "Nasi: Ayam Bakar", "Minuman:")
	storetest.Device(t, f.store, "READER-1", tenant.ID)
	require.NoError(t, f.store.BindDevice(ctx, "READER-LEPAS", nil))
	storetest.Employee(t, f.store, "E1", "CARD-1", "Budi")

	tests := []struct {
		name string
		req  admission.Request
		want admission.Kind
	}{
		{"kartu tidak dikenal", swipe("CARD-404", "READER-1"), admission.KindUnknownIdentity},
		{"pegawai tidak dikenal", portal("E404", tenant.ID, "Ayam Bakar"), admission.KindUnknownIdentity},
		{"device tidak terdaftar", swipe("CARD-1", "READER-404"), admission.KindUnknownTenant},
		{"device belum terikat", swipe("CARD-1", "READER-LEPAS"), admission.KindTenantNotBound},
		{"tenant tidak ada", portal("E1", 999, "Ayam Bakar"), admission.KindUnknownTenant},
		{"portal tanpa menu", portal("E1", tenant.ID, ""), admission.KindInvalidMenu},
		{"menu kategori saja", portal("E1", tenant.ID, "Minuman:"), admission.KindInvalidMenu},
		{"menu tenant lain", portal("E1", tenant.ID, "Bakso"), admission.KindInvalidMenu},
		{"channel kosong", admission.Request{CardNumber: "CARD-1"}, admission.KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Admit(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.want, admission.KindOf(err))
		})
	}

	res, err := f.svc.Admit(ctx, portal("E1", tenant.ID, "ayam bakar"))
	require.NoError(t, err)
	assert.Equal(t, "Nasi: Ayam Bakar", res.Ticket.MenuLabel)
}

func TestRequestIDReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, f.store, "Warung Yanti", 3, true)
	storetest.Device(t, f.store, "READER-1", tenant.ID)
	storetest.Employee(t, f.store, "E1", "CARD-1", "Budi")
	storetest.Employee(t, f.store, "E2", "CARD-2", "Sari")

	req := swipe("CARD-1", "READER-1")
	req.RequestID = "req-abc"

	first, err := f.svc.Admit(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	again, err := f.svc.Admit(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Ticket.OrderCode, again.Ticket.OrderCode)
	assert.Equal(t, first.Ticket.Used, again.Ticket.Used)

	other := swipe("CARD-2", "READER-1")
	other.RequestID = "req-abc"
	_, err = f.svc.Admit(ctx, other)
	assert.ErrorIs(t, err, admission.ErrRequestIDConflict)

	// service baru dengan cache kosong tetap replay dari kolom request_id
	fresh := f.newService()
	f.clock.Set(time.Date(2026, 1, 5, 20, 0, 0, 0, wib))
	replayed, err := fresh.Admit(ctx, req)
	require.NoError(t, err)
	assert.True(t, replayed.Replayed)
	assert.Equal(t, first.Ticket.TransactionID, replayed.Ticket.TransactionID)

	resp := admission.NewResponse(replayed, nil)
	assert.Equal(t, admission.CueSuccess, resp.Cue)
	assert.True(t, resp.Replayed)

	snap, err := f.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Tenants[0].Used)
}

func TestCorrectMovesToTailOfTargetQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := storetest.Tenant(t, f.store, "A", 5, true)
	b := storetest.Tenant(t, f.store, "B", 2, true)
	emps := employees(t, f.store, 4)

	moving, err := f.svc.Admit(ctx, portal(emps[0].EmployeeID, a.ID, ""))
	require.NoError(t, err)
	_, err = f.svc.Admit(ctx, portal(emps[1].EmployeeID, b.ID, ""))
	require.NoError(t, err)

	targetID := b.ID
	corrected, err := f.svc.Correct(ctx, moving.Ticket.TransactionID, admission.Correction{TenantID: &targetID}, "admin")
	require.NoError(t, err)
	assert.Equal(t, b.ID, corrected.TenantID)
	assert.Equal(t, 2, corrected.QueueNumber)
	assert.Equal(t, "260105-002", corrected.TransactionNumber)

	// B sudah penuh sekarang
	_, err = f.svc.Admit(ctx, portal(emps[2].EmployeeID, b.ID, ""))
	assert.ErrorIs(t, err, admission.ErrQuotaExceeded)

	// nomor 1 di A sudah pernah keluar, tidak dipakai ulang
	third, err := f.svc.Admit(ctx, portal(emps[2].EmployeeID, a.ID, ""))
	require.NoError(t, err)
	assert.Equal(t, 2, third.Ticket.QueueNumber)

	_, err = f.svc.Correct(ctx, third.Ticket.TransactionID, admission.Correction{TenantID: &targetID}, "admin")
	assert.ErrorIs(t, err, admission.ErrQuotaExceeded)

	taken := emps[1].EmployeeID
	_, err = f.svc.Correct(ctx, third.Ticket.TransactionID, admission.Correction{EmployeeID: &taken}, "admin")
	assert.ErrorIs(t, err, admission.ErrDuplicateRedemption)

	_, err = f.svc.Correct(ctx, 9999, admission.Correction{}, "admin")
	assert.ErrorIs(t, err, admission.ErrNotFound)
}

func TestCorrectDateChangesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, f.store, "A", 5, true)
	storetest.Employee(t, f.store, "E1", "CARD-1", "Budi")

	res, err := f.svc.Admit(ctx, portal("E1", tenant.ID, ""))
	require.NoError(t, err)

	yesterday := time.Date(2026, 1, 4, 9, 30, 0, 0, wib)
	corrected, err := f.svc.Correct(ctx, res.Ticket.TransactionID, admission.Correction{TransactionDate: &yesterday}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-04", corrected.SessionID)
	assert.Equal(t, "260104-001", corrected.TransactionNumber)

	// pegawai yang sama boleh pesan lagi hari ini, nomor berlanjut
	again, err := f.svc.Admit(ctx, portal("E1", tenant.ID, ""))
	require.NoError(t, err)
	assert.Equal(t, 2, again.Ticket.QueueNumber)
	assert.Equal(t, 1, again.Ticket.Used)
}

func TestNewResponseCues(t *testing.T) {
	tests := []struct {
		err  error
		kind admission.Kind
		cue  string
	}{
		{admission.ErrQuotaExceeded, admission.KindQuotaExceeded, admission.CueLimitReached},
		{admission.ErrDuplicateRedemption, admission.KindDuplicateRedemption, admission.CueFailed},
		{fmt.Errorf("%w: x", admission.ErrTenantNotBound), admission.KindTenantNotBound, admission.CueFailed},
		{errors.New("disk penuh"), admission.KindPersistenceFailure, admission.CueFailed},
	}
	for _, tt := range tests {
		resp := admission.NewResponse(admission.Result{}, tt.err)
		assert.Equal(t, admission.ResponseVersion, resp.Version)
		assert.Equal(t, tt.kind, resp.Outcome)
		assert.Equal(t, tt.cue, resp.Cue)
		assert.NotEmpty(t, resp.Message)
		assert.Nil(t, resp.Ticket)
	}
	assert.False(t, admission.KindPersistenceFailure.Expected())
	assert.True(t, admission.KindQuotaExceeded.Expected())
}

func TestConcurrentDuplicateSubmissionsAdmitOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	storetest.Employee(t, f.store, "E1", "CARD-1", "Budi")
	tenants := []models.Tenant{
		storetest.Tenant(t, f.store, "Warung Yanti", 10, true),
		storetest.Tenant(t, f.store, "Warung Rima", 10, true),
		storetest.Tenant(t, f.store, "Kopi Bebas", 0, false),
		storetest.Tenant(t, f.store, "Bakso Pak Min", 10, true),
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		admitted  int
		duplicate int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(tenant models.Tenant) {
			defer wg.Done()
			_, err := f.svc.Admit(ctx, portal("E1", tenant.ID, ""))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, admission.ErrDuplicateRedemption):
				duplicate++
			default:
				t.Errorf("error tak terduga: %v", err)
			}
		}(tenants[i%len(tenants)])
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, 39, duplicate)

	var rows int
	require.NoError(t, f.store.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE employee_id = ? AND session_id = ?`,
		"E1", f.svc.Status(ctx).SessionID).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestPersistenceFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, f.store, "Warung Yanti", 3, true)
	storetest.Device(t, f.store, "READER-1", tenant.ID)
	storetest.Employee(t, f.store, "E1", "CARD-1", "Budi")

	sub := f.hub.Subscribe()
	require.NotNil(t, sub)

	_, err := f.store.DB().ExecContext(ctx, `CREATE TRIGGER gagal_insert BEFORE INSERT ON transactions
		BEGIN SELECT RAISE(ABORT, 'disk penuh'); END`)
	require.NoError(t, err)

	_, err = f.svc.Admit(ctx, swipe("CARD-1", "READER-1"))
	require.Error(t, err)
	assert.Equal(t, admission.KindPersistenceFailure, admission.KindOf(err))

	var counters, rows int
	require.NoError(t, f.store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_counters`).Scan(&counters))
	require.NoError(t, f.store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&rows))
	assert.Zero(t, counters, "nomor antrian tidak boleh terpakai")
	assert.Zero(t, rows)
	assert.Equal(t, uint64(0), f.hub.Seq())

	select {
	case ev := <-sub.C:
		t.Fatalf("event tidak boleh terkirim: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}

	_, err = f.store.DB().ExecContext(ctx, `DROP TRIGGER gagal_insert`)
	require.NoError(t, err)

	res, err := f.svc.Admit(ctx, swipe("CARD-1", "READER-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ticket.QueueNumber)
	assert.Equal(t, 1, res.Ticket.Used)
}

func TestTenantUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := storetest.Tenant(t, f.store, "Warung Yanti", 3, true, "Nasi: Soto", "Minuman:")
	storetest.Employee(t, f.store, "E1", "CARD-1", "Budi")

	usage, err := f.svc.TenantUsage(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Used)
	require.NotNil(t, usage.Available)
	assert.Equal(t, 3, *usage.Available)
	assert.Len(t, usage.Menu, 1)

	_, err = f.svc.Admit(ctx, portal("E1", tenant.ID, "Soto"))
	require.NoError(t, err)

	usage, err = f.svc.TenantUsage(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Used)
	assert.Equal(t, 2, *usage.Available)
	assert.Equal(t, f.svc.Status(ctx).SessionID, usage.SessionID)

	_, err = f.svc.TenantUsage(ctx, 999)
	assert.ErrorIs(t, err, admission.ErrUnknownTenant)
}
