// Package ledger enforces per-tenant quota for one session. Counts are
// always derived from committed transactions; there is no counter to reset.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"backend-kantin/internal/models"
	"backend-kantin/internal/store"
)

var ErrQuotaExceeded = errors.New("kuota tenant sudah habis")

// UsageReader is satisfied by *store.Store and *store.Tx.
type UsageReader interface {
	TenantUsage(ctx context.Context, tenantID int64, sessionID string) (store.Usage, error)
}

// QueueClaimer is satisfied by *store.Tx.
type QueueClaimer interface {
	UsageReader
	ClaimQueue(ctx context.Context, tenantID int64, sessionID string, queue int) error
}

type Reservation struct {
	QueueNumber int
	// Used is the count including this reservation once committed.
	Used int
}

type Ledger struct {
	locks *KeyedMutex
	reads UsageReader
}

func New(reads UsageReader) *Ledger {
	return &Ledger{locks: NewKeyedMutex(), reads: reads}
}

func TenantKey(tenantID int64, sessionID string) string {
	return fmt.Sprintf("tenant:%d|%s", tenantID, sessionID)
}

// Lock - lock eksklusif untuk (tenant, sesi). Tenant atau sesi lain tidak ikut tertahan.
func (l *Ledger) Lock(ctx context.Context, tenantID int64, sessionID string) (func(), error) {
	return l.locks.Lock(ctx, TenantKey(tenantID, sessionID))
}

// LockTenants - untuk koreksi yang menyentuh dua antrian sekaligus
func (l *Ledger) LockTenants(ctx context.Context, keys ...string) (func(), error) {
	return l.locks.LockAll(ctx, keys...)
}

// Reserve harus dipanggil sambil memegang Lock untuk key yang sama dan di
// dalam transaksi DB yang nanti meng-insert transaksinya (q = tx itu).
// Nomor antrian tidak pernah dipakai ulang walau ada koreksi.
func (l *Ledger) Reserve(ctx context.Context, q QueueClaimer, tenant models.Tenant, sessionID string) (Reservation, error) {
	usage, err := q.TenantUsage(ctx, tenant.ID, sessionID)
	if err != nil {
		return Reservation{}, err
	}
	if tenant.IsLimited && usage.Used >= tenant.Quota {
		return Reservation{Used: usage.Used}, ErrQuotaExceeded
	}

	next := usage.MaxQueue + 1
	if err := q.ClaimQueue(ctx, tenant.ID, sessionID, next); err != nil {
		return Reservation{}, err
	}
	return Reservation{QueueNumber: next, Used: usage.Used + 1}, nil
}

// Usage - hitungan untuk jalur baca, tanpa lock
func (l *Ledger) Usage(ctx context.Context, tenant models.Tenant, sessionID string) (int, *int, error) {
	usage, err := l.reads.TenantUsage(ctx, tenant.ID, sessionID)
	if err != nil {
		return 0, nil, err
	}
	return usage.Used, tenant.Available(usage.Used), nil
}
