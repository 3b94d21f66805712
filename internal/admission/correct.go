package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"backend-kantin/internal/ledger"
	"backend-kantin/internal/models"
	"backend-kantin/internal/realtime"
	"backend-kantin/internal/store"
)

// Correction - koreksi admin. Field nil tidak diubah.
type Correction struct {
	EmployeeID      *string
	TenantID        *int64
	TransactionDate *time.Time
	MenuLabel       *string
}

type CorrectionEvent struct {
	Transaction       models.Transaction `json:"transaction"`
	PreviousTenantID  int64              `json:"previous_tenant_id"`
	PreviousSessionID string             `json:"previous_session_id"`
	CorrectedBy       string             `json:"corrected_by"`
}

// Correct - pindah ke (tenant, sesi) lain berarti masuk di ekor antrian
// tujuan dan tetap tunduk pada kuota dan aturan satu kali per sesi.
// Antrian asal bisa punya lubang setelahnya; nomor lama tidak dipakai ulang.
func (s *Service) Correct(ctx context.Context, id int64, c Correction, operator string) (models.Transaction, error) {
	original, err := s.store.TransactionByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Transaction{}, ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, persistence("baca transaksi", err)
	}

	targetEmployee := original.EmployeeID
	if c.EmployeeID != nil {
		targetEmployee = strings.TrimSpace(*c.EmployeeID)
	}
	targetTenant := original.TenantID
	if c.TenantID != nil {
		targetTenant = *c.TenantID
	}
	targetDate := original.TransactionDate
	targetSession := original.SessionID
	if c.TransactionDate != nil {
		targetDate = *c.TransactionDate
		targetSession = s.resolver.Schedule().SessionAt(targetDate).ID
	}

	unlockEmployees, err := s.employeeLocks.LockAll(ctx, employeeKey(original.EmployeeID), employeeKey(targetEmployee))
	if err != nil {
		return models.Transaction{}, persistence("lock pegawai", err)
	}
	defer unlockEmployees()
	unlockTenants, err := s.ledger.LockTenants(ctx,
		ledger.TenantKey(original.TenantID, original.SessionID),
		ledger.TenantKey(targetTenant, targetSession))
	if err != nil {
		return models.Transaction{}, persistence("lock tenant", err)
	}
	defer unlockTenants()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return models.Transaction{}, persistence("begin", err)
	}
	defer tx.Rollback()

	current, err := tx.TransactionByID(ctx, id)
	if err != nil {
		return models.Transaction{}, persistence("baca ulang transaksi", err)
	}
	if current.TenantID != original.TenantID || current.SessionID != original.SessionID || current.EmployeeID != original.EmployeeID {
		return models.Transaction{}, persistence("koreksi", errors.New("transaksi berubah saat dikoreksi, ulangi"))
	}

	updated := current

	employee, err := tx.EmployeeByID(ctx, targetEmployee)
	if errors.Is(err, store.ErrNotFound) {
		return models.Transaction{}, ErrUnknownIdentity
	}
	if err != nil {
		return models.Transaction{}, persistence("baca pegawai", err)
	}
	updated.EmployeeID = employee.EmployeeID
	updated.EmployeeName = employee.Name
	updated.EmployeeGroup = employee.EmployeeGroup
	if employee.EmployeeID != current.EmployeeID {
		updated.CardNumber = employee.CardNumber
	}

	tenant, err := tx.TenantByID(ctx, targetTenant)
	if errors.Is(err, store.ErrNotFound) {
		return models.Transaction{}, ErrUnknownTenant
	}
	if err != nil {
		return models.Transaction{}, persistence("baca tenant", err)
	}
	updated.TenantID = tenant.ID
	updated.TenantName = tenant.Name
	updated.SessionID = targetSession
	updated.TransactionDate = targetDate

	label := current.MenuLabel
	if c.MenuLabel != nil {
		label = strings.TrimSpace(*c.MenuLabel)
	}
	if label != "" {
		item, ok := tenant.MatchMenu(label)
		if !ok {
			return models.Transaction{}, fmt.Errorf("%w: %q", ErrInvalidMenu, label)
		}
		label = item.Label
	}
	updated.MenuLabel = label

	if updated.EmployeeID != current.EmployeeID || updated.SessionID != current.SessionID {
		other, err := tx.SessionRedemption(ctx, updated.EmployeeID, updated.SessionID)
		if err == nil && other.ID != current.ID {
			return models.Transaction{}, ErrDuplicateRedemption
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return models.Transaction{}, persistence("cek duplikat", err)
		}
	}

	moved := updated.TenantID != current.TenantID || updated.SessionID != current.SessionID
	if moved {
		reservation, err := s.ledger.Reserve(ctx, tx, tenant, updated.SessionID)
		if errors.Is(err, ledger.ErrQuotaExceeded) {
			return models.Transaction{}, ErrQuotaExceeded
		}
		if err != nil {
			return models.Transaction{}, persistence("reserve", err)
		}
		updated.QueueNumber = reservation.QueueNumber
	}
	updated.TransactionNumber = TransactionNumber(
		updated.TransactionDate.In(s.resolver.Schedule().Location()), updated.QueueNumber)

	if err := tx.UpdateTransaction(ctx, updated); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.Transaction{}, fmt.Errorf("%w: %v", ErrDuplicateRedemption, err)
		}
		return models.Transaction{}, persistence("update", err)
	}

	s.commitMu.Lock()
	if err := tx.Commit(); err != nil {
		s.commitMu.Unlock()
		return models.Transaction{}, persistence("commit", err)
	}
	s.hub.Publish(realtime.TypeTransactionCorrected, CorrectionEvent{
		Transaction:       updated,
		PreviousTenantID:  current.TenantID,
		PreviousSessionID: current.SessionID,
		CorrectedBy:       operator,
	})
	s.commitMu.Unlock()

	s.log.WithFields(logrus.Fields{
		"transaction_id": id,
		"operator":       operator,
		"tenant_id":      updated.TenantID,
		"session_id":     updated.SessionID,
		"queue_number":   updated.QueueNumber,
		"moved":          moved,
	}).Info("transaksi dikoreksi")

	return updated, nil
}
