// Package admission turns an identification event into a committed
// transaction or a typed rejection, and publishes every commit to the hub.
package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"backend-kantin/internal/idempotency"
	"backend-kantin/internal/ledger"
	"backend-kantin/internal/models"
	"backend-kantin/internal/realtime"
	"backend-kantin/internal/schedule"
	"backend-kantin/internal/store"
)

// Request - satu kejadian identifikasi. Swipe membawa CardNumber + DeviceCode
// (atau TenantID), portal membawa EmployeeID + TenantID + MenuLabel.
type Request struct {
	Channel    string
	CardNumber string
	EmployeeID string
	DeviceCode string
	TenantID   int64
	MenuLabel  string
	RequestID  string
	// OccurredAt dari client, hanya untuk tracing latensi. Gerbang buka/tutup
	// selalu pakai jam server.
	OccurredAt *time.Time
}

type Result struct {
	Ticket   models.Ticket
	Replayed bool
}

type Service struct {
	store    *store.Store
	resolver *schedule.Resolver
	ledger   *ledger.Ledger
	hub      *realtime.Hub
	idem     idempotency.Store

	employeeLocks *ledger.KeyedMutex
	// commitMu menjaga commit + publish satu urutan; Snapshot ambil RLock
	commitMu sync.RWMutex

	log *logrus.Entry
}

func NewService(st *store.Store, resolver *schedule.Resolver, l *ledger.Ledger, hub *realtime.Hub, idem idempotency.Store, logger *logrus.Logger) *Service {
	if idem == nil {
		idem = idempotency.NewMemoryStore(idempotency.DefaultTTL)
	}
	return &Service{
		store:         st,
		resolver:      resolver,
		ledger:        l,
		hub:           hub,
		idem:          idem,
		employeeLocks: ledger.NewKeyedMutex(),
		log:           logger.WithField("component", "admission"),
	}
}

func employeeKey(employeeID string) string {
	return "employee:" + employeeID
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

// Admit - urutan cek: identitas, replay, buka/tutup, tenant, duplikat, kuota.
// Duplikat, reserve dan insert terjadi dalam satu transaksi DB sambil
// memegang lock pegawai lalu lock (tenant, sesi).
func (s *Service) Admit(ctx context.Context, req Request) (Result, error) {
	res, err := s.admit(ctx, req)

	entry := s.log.WithFields(logrus.Fields{
		"channel": req.Channel,
		"outcome": KindOf(err),
	})
	if req.OccurredAt != nil {
		entry = entry.WithField("latency_ms", s.resolver.Now().Sub(*req.OccurredAt).Milliseconds())
	}
	switch {
	case err == nil:
		entry.WithFields(logrus.Fields{
			"employee_id":  res.Ticket.EmployeeID,
			"tenant_id":    res.Ticket.TenantID,
			"session_id":   res.Ticket.SessionID,
			"queue_number": res.Ticket.QueueNumber,
			"replayed":     res.Replayed,
		}).Info("admission berhasil")
	case KindOf(err).Expected():
		entry.WithError(err).Info("admission ditolak")
	default:
		entry.WithError(err).Error("admission gagal")
	}
	return res, err
}

func (s *Service) admit(ctx context.Context, req Request) (Result, error) {
	employee, err := s.identify(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if employee.IsDisabled {
		return Result{}, ErrEmployeeDisabled
	}

	unlockEmployee, err := s.employeeLocks.Lock(ctx, employeeKey(employee.EmployeeID))
	if err != nil {
		return Result{}, persistence("lock pegawai", err)
	}
	defer unlockEmployee()

	if req.RequestID != "" {
		if res, ok, err := s.replay(ctx, req.RequestID, employee.EmployeeID); err != nil || ok {
			return res, err
		}
	}

	status := s.resolver.Resolve(ctx)
	if !status.IsOpen {
		return Result{}, &ClosedError{Status: status}
	}

	tenantID, err := s.resolveTenant(ctx, s.store, req)
	if err != nil {
		return Result{}, err
	}

	unlockTenant, err := s.ledger.Lock(ctx, tenantID, status.SessionID)
	if err != nil {
		return Result{}, persistence("lock tenant", err)
	}
	defer unlockTenant()

	return s.commit(ctx, req, employee.EmployeeID, tenantID, status)
}

func (s *Service) identify(ctx context.Context, req Request) (models.Employee, error) {
	var (
		employee models.Employee
		err      error
	)
	switch req.Channel {
	case models.ChannelSwipe:
		card := strings.TrimSpace(req.CardNumber)
		if card == "" {
			return employee, fmt.Errorf("%w: nomor kartu kosong", ErrInvalidRequest)
		}
		employee, err = s.store.EmployeeByCard(ctx, card)
	case models.ChannelPortal:
		id := strings.TrimSpace(req.EmployeeID)
		if id == "" {
			return employee, fmt.Errorf("%w: employee id kosong", ErrInvalidRequest)
		}
		employee, err = s.store.EmployeeByID(ctx, id)
	default:
		return employee, fmt.Errorf("%w: channel %q", ErrInvalidRequest, req.Channel)
	}

	if errors.Is(err, store.ErrNotFound) {
		return employee, ErrUnknownIdentity
	}
	if err != nil {
		return employee, persistence("baca pegawai", err)
	}
	return employee, nil
}

type tenantReader interface {
	TenantByID(ctx context.Context, id int64) (models.Tenant, error)
	DeviceByCode(ctx context.Context, code string) (models.Device, error)
}

// resolveTenant - lewat device kalau ada, kalau tidak pakai tenant pilihan
func (s *Service) resolveTenant(ctx context.Context, r tenantReader, req Request) (int64, error) {
	if code := strings.TrimSpace(req.DeviceCode); code != "" {
		device, err := r.DeviceByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("%w: device %q tidak terdaftar", ErrUnknownTenant, code)
		}
		if err != nil {
			return 0, persistence("baca device", err)
		}
		if !device.Bound() {
			return 0, ErrTenantNotBound
		}
		return *device.TenantID, nil
	}

	if req.TenantID <= 0 {
		return 0, fmt.Errorf("%w: tenant belum dipilih", ErrUnknownTenant)
	}
	if _, err := r.TenantByID(ctx, req.TenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUnknownTenant
		}
		return 0, persistence("baca tenant", err)
	}
	return req.TenantID, nil
}

func (s *Service) commit(ctx context.Context, req Request, employeeID string, tenantID int64, status schedule.Status) (Result, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Result{}, persistence("begin", err)
	}
	defer tx.Rollback()

	// baca ulang di dalam transaksi: binding device, data pegawai, kuota tenant
	current, err := s.resolveTenant(ctx, tx, req)
	if err != nil {
		return Result{}, err
	}
	if current != tenantID {
		return Result{}, fmt.Errorf("%w: binding device berubah", ErrTenantNotBound)
	}
	employee, err := tx.EmployeeByID(ctx, employeeID)
	if err != nil {
		return Result{}, persistence("baca ulang pegawai", err)
	}
	if employee.IsDisabled {
		return Result{}, ErrEmployeeDisabled
	}
	tenant, err := tx.TenantByID(ctx, tenantID)
	if err != nil {
		return Result{}, persistence("baca ulang tenant", err)
	}

	menuLabel, err := pickMenu(tenant, req)
	if err != nil {
		return Result{}, err
	}

	if _, err := tx.SessionRedemption(ctx, employeeID, status.SessionID); err == nil {
		return Result{}, ErrDuplicateRedemption
	} else if !errors.Is(err, store.ErrNotFound) {
		return Result{}, persistence("cek duplikat", err)
	}

	reservation, err := s.ledger.Reserve(ctx, tx, tenant, status.SessionID)
	if errors.Is(err, ledger.ErrQuotaExceeded) {
		return Result{}, ErrQuotaExceeded
	}
	if err != nil {
		return Result{}, persistence("reserve", err)
	}

	committedAt := s.resolver.Now()
	record := models.Transaction{
		EmployeeID:        employee.EmployeeID,
		EmployeeName:      employee.Name,
		EmployeeGroup:     employee.EmployeeGroup,
		CardNumber:        employee.CardNumber,
		TenantID:          tenant.ID,
		TenantName:        tenant.Name,
		SessionID:         status.SessionID,
		QueueNumber:       reservation.QueueNumber,
		MenuLabel:         menuLabel,
		OrderCode:         NewOrderCode(),
		TransactionNumber: TransactionNumber(committedAt.In(s.resolver.Schedule().Location()), reservation.QueueNumber),
		Channel:           req.Channel,
		TransactionDate:   committedAt,
	}
	if req.RequestID != "" {
		requestID := req.RequestID
		record.RequestID = &requestID
	}

	record.ID, err = tx.InsertTransaction(ctx, record)
	if err != nil {
		return Result{}, s.classifyConflict(ctx, req, err)
	}

	s.commitMu.Lock()
	if err := tx.Commit(); err != nil {
		s.commitMu.Unlock()
		return Result{}, persistence("commit", err)
	}
	s.hub.Publish(realtime.TypeTransactionCommitted, commitEvent(record, tenant, reservation.Used, req.OccurredAt))
	s.commitMu.Unlock()

	if req.RequestID != "" {
		rec := idempotency.Record{EmployeeID: employee.EmployeeID, TransactionID: record.ID}
		if err := s.idem.Put(context.WithoutCancel(ctx), req.RequestID, rec); err != nil {
			s.log.WithError(err).Warn("gagal simpan request id ke cache, DB tetap jadi acuan")
		}
	}

	return Result{Ticket: models.NewTicket(record, tenant, reservation.Used)}, nil
}

// pickMenu - portal wajib pilih menu kalau tenant punya menu, swipe boleh kosong
func pickMenu(tenant models.Tenant, req Request) (string, error) {
	label := strings.TrimSpace(req.MenuLabel)
	if label == "" {
		if req.Channel == models.ChannelPortal && len(tenant.OrderableMenu()) > 0 {
			return "", fmt.Errorf("%w: menu belum dipilih", ErrInvalidMenu)
		}
		return "", nil
	}
	item, ok := tenant.MatchMenu(label)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMenu, label)
	}
	return item.Label, nil
}

// classifyConflict - constraint unik DB menolak insert yang lolos cek di atas
func (s *Service) classifyConflict(ctx context.Context, req Request, err error) error {
	if !errors.Is(err, store.ErrConflict) {
		return persistence("insert", err)
	}
	if req.RequestID != "" {
		if _, lookupErr := s.store.TransactionByRequestID(ctx, req.RequestID); lookupErr == nil {
			return ErrRequestIDConflict
		}
	}
	return fmt.Errorf("%w: %v", ErrDuplicateRedemption, err)
}

// replay - request id yang sudah commit dijawab dengan tiket aslinya
func (s *Service) replay(ctx context.Context, requestID, employeeID string) (Result, bool, error) {
	var transactionID int64

	rec, ok, err := s.idem.Get(ctx, requestID)
	if err != nil {
		s.log.WithError(err).Warn("cache request id tidak bisa dibaca, cek ke DB")
	}
	if ok {
		if rec.EmployeeID != employeeID {
			return Result{}, false, ErrRequestIDConflict
		}
		transactionID = rec.TransactionID
	} else {
		existing, err := s.store.TransactionByRequestID(ctx, requestID)
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, false, nil
		}
		if err != nil {
			return Result{}, false, persistence("cek request id", err)
		}
		if existing.EmployeeID != employeeID {
			return Result{}, false, ErrRequestIDConflict
		}
		transactionID = existing.ID
	}

	tr, err := s.store.TransactionByID(ctx, transactionID)
	if err != nil {
		return Result{}, false, persistence("baca transaksi replay", err)
	}
	if tr.EmployeeID != employeeID {
		return Result{}, false, ErrRequestIDConflict
	}
	tenant, err := s.store.TenantByID(ctx, tr.TenantID)
	if err != nil {
		return Result{}, false, persistence("baca tenant replay", err)
	}
	used, err := s.store.UsedThrough(ctx, tr.TenantID, tr.SessionID, tr.ID)
	if err != nil {
		return Result{}, false, persistence("hitung used replay", err)
	}
	return Result{Ticket: models.NewTicket(tr, tenant, used), Replayed: true}, true, nil
}

func commitEvent(tr models.Transaction, tenant models.Tenant, used int, occurredAt *time.Time) realtime.CommitEvent {
	return realtime.CommitEvent{
		TransactionID: tr.ID,
		TenantID:      tenant.ID,
		TenantName:    tenant.Name,
		EmployeeID:    tr.EmployeeID,
		EmployeeName:  tr.EmployeeName,
		SessionID:     tr.SessionID,
		QueueNumber:   tr.QueueNumber,
		MenuLabel:     tr.MenuLabel,
		Channel:       tr.Channel,
		Used:          used,
		Quota:         tenant.Quota,
		IsLimited:     tenant.IsLimited,
		Available:     tenant.Available(used),
		CommittedAt:   tr.TransactionDate,
		OccurredAt:    occurredAt,
	}
}

// NewOrderCode - uuid tanpa tanda hubung, 32 hex
func NewOrderCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// TransactionNumber - YYMMDD-NNN, tanggal lokal + nomor antrian
func TransactionNumber(at time.Time, queueNumber int) string {
	return fmt.Sprintf("%s-%03d", at.Format("060102"), queueNumber)
}
