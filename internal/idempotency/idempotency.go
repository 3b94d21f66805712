// Package idempotency remembers which transaction a client request id
// produced, so a retried admission can be answered without re-running it.
// The transactions.request_id column stays authoritative; this is the fast path.
package idempotency

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DefaultTTL = 24 * time.Hour

type Record struct {
	EmployeeID    string
	TransactionID int64
}

type Store interface {
	Get(ctx context.Context, requestID string) (Record, bool, error)
	// Put keeps the first record for a request id.
	Put(ctx context.Context, requestID string, rec Record) error
}

func encode(rec Record) string {
	return strconv.FormatInt(rec.TransactionID, 10) + "|" + rec.EmployeeID
}

func decode(raw string) (Record, error) {
	idPart, employeeID, ok := strings.Cut(raw, "|")
	if !ok {
		return Record{}, fmt.Errorf("idempotency: format record tidak valid %q", raw)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("idempotency: id transaksi tidak valid %q", raw)
	}
	return Record{EmployeeID: employeeID, TransactionID: id}, nil
}
