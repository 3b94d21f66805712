package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreKeepsFirstRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	_, ok, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "req-1", Record{EmployeeID: "E1", TransactionID: 10}))
	require.NoError(t, s.Put(ctx, "req-1", Record{EmployeeID: "E2", TransactionID: 11}))

	rec, ok, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Record{EmployeeID: "E1", TransactionID: 10}, rec)
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "req-1", Record{EmployeeID: "E1", TransactionID: 1}))
	now = now.Add(2 * time.Minute)

	_, ok, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "req-1", Record{EmployeeID: "E9", TransactionID: 9}))
	rec, ok, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(9), rec.TransactionID)
}

func TestRecordEncoding(t *testing.T) {
	rec := Record{EmployeeID: "EMP|01", TransactionID: 42}
	got, err := decode(encode(rec))
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = decode("tanpa-pemisah")
	assert.Error(t, err)
	_, err = decode("abc|E1")
	assert.Error(t, err)
}
