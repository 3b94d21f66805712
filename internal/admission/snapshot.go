package admission

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"backend-kantin/internal/models"
	"backend-kantin/internal/realtime"
	"backend-kantin/internal/schedule"
	"backend-kantin/internal/store"
)

// Snapshot - data pull untuk dashboard, konsisten dengan Seq: semua event
// sampai Seq sudah terhitung, tidak ada yang lebih baru.
func (s *Service) Snapshot(ctx context.Context) (models.Snapshot, error) {
	now := s.resolver.Now()
	session := s.resolver.Schedule().SessionAt(now)

	s.commitMu.RLock()
	defer s.commitMu.RUnlock()

	seq := s.hub.Seq()
	tenants, err := s.store.TenantSnapshots(ctx, session.ID)
	if err != nil {
		return models.Snapshot{}, persistence("snapshot", err)
	}
	return models.Snapshot{
		SessionID: session.ID,
		Seq:       seq,
		Tenants:   tenants,
		TakenAt:   now,
	}, nil
}

func (s *Service) Status(ctx context.Context) schedule.Status {
	return s.resolver.Resolve(ctx)
}

// SetOverride - simpan mode baru (append-only) dan kabari viewer
func (s *Service) SetOverride(ctx context.Context, raw, operator string) (models.OverrideEntry, error) {
	mode, ok := models.ParseOverrideMode(raw)
	if !ok {
		return models.OverrideEntry{}, ErrInvalidRequest
	}
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return models.OverrideEntry{}, ErrInvalidRequest
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	entry, err := s.store.SetOverride(ctx, mode, operator, s.resolver.Now())
	if err != nil {
		return models.OverrideEntry{}, persistence("set override", err)
	}
	s.hub.Publish(realtime.TypeOverrideChanged, entry)

	s.log.WithFields(logrus.Fields{
		"mode":     entry.Mode,
		"operator": operator,
	}).Info("mode kantin diubah")
	return entry, nil
}

func (s *Service) OverrideHistory(ctx context.Context, limit int) ([]models.OverrideEntry, error) {
	history, err := s.store.OverrideHistory(ctx, limit)
	if err != nil {
		return nil, persistence("riwayat override", err)
	}
	return history, nil
}

func (s *Service) Transaction(ctx context.Context, id int64) (models.Transaction, error) {
	tr, err := s.store.TransactionByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return tr, ErrNotFound
	}
	if err != nil {
		return tr, persistence("baca transaksi", err)
	}
	return tr, nil
}

// Location - zona waktu kantin, dipakai untuk parsing tanggal di laporan
func (s *Service) Location() *time.Location {
	return s.resolver.Schedule().Location()
}

// TenantUsage - sisa kuota satu tenant di sesi sekarang, untuk portal
// sebelum pegawai memesan. Tanpa lock, angka bisa sudah berubah saat order.
func (s *Service) TenantUsage(ctx context.Context, tenantID int64) (models.TenantUsage, error) {
	tenant, err := s.store.TenantByID(ctx, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		return models.TenantUsage{}, ErrUnknownTenant
	}
	if err != nil {
		return models.TenantUsage{}, persistence("baca tenant", err)
	}

	session := s.resolver.Schedule().SessionAt(s.resolver.Now())
	used, available, err := s.ledger.Usage(ctx, tenant, session.ID)
	if err != nil {
		return models.TenantUsage{}, persistence("hitung kuota", err)
	}
	return models.TenantUsage{
		TenantID:   tenant.ID,
		TenantName: tenant.Name,
		SessionID:  session.ID,
		Quota:      tenant.Quota,
		IsLimited:  tenant.IsLimited,
		Used:       used,
		Available:  available,
		Menu:       tenant.OrderableMenu(),
	}, nil
}
