package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore - dipakai kalau REDIS_ADDR kosong. Hilang saat restart,
// jawaban tetap benar karena request_id dicek lagi di DB.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]memoryEntry
}

type memoryEntry struct {
	raw       string
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, records: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, requestID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[requestID]
	if !ok {
		return Record{}, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.records, requestID)
		return Record{}, false, nil
	}
	rec, err := decode(entry.raw)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *MemoryStore) Put(_ context.Context, requestID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.records[requestID]; ok && now.Before(entry.expiresAt) {
		return nil
	}
	s.records[requestID] = memoryEntry{raw: encode(rec), expiresAt: now.Add(s.ttl)}
	s.sweep(now)
	return nil
}

func (s *MemoryStore) sweep(now time.Time) {
	if len(s.records) < 4096 {
		return
	}
	for key, entry := range s.records {
		if !now.Before(entry.expiresAt) {
			delete(s.records, key)
		}
	}
}
