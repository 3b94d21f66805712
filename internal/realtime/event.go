package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventVersion = 1

	TypeTransactionCommitted = "transaction.committed"
	TypeTransactionCorrected = "transaction.corrected"
	TypeOverrideChanged      = "override.changed"
	TypeSnapshot             = "snapshot"
)

// Event - envelope yang dikirim ke semua viewer
type Event struct {
	Version int    `json:"version"`
	Type    string `json:"type"`
	Seq     uint64 `json:"seq"`
	Data    any    `json:"data"`
}

// CommitEvent - isi event transaction.committed
type CommitEvent struct {
	TransactionID int64      `json:"transaction_id"`
	TenantID      int64      `json:"tenant_id"`
	TenantName    string     `json:"tenant_name"`
	EmployeeID    string     `json:"employee_id"`
	EmployeeName  string     `json:"employee_name"`
	SessionID     string     `json:"session_id"`
	QueueNumber   int        `json:"queue_number"`
	MenuLabel     string     `json:"menu_label,omitempty"`
	Channel       string     `json:"channel"`
	Used          int        `json:"used"`
	Quota         int        `json:"quota"`
	IsLimited     bool       `json:"is_limited"`
	Available     *int       `json:"available"`
	CommittedAt   time.Time  `json:"committed_at"`
	OccurredAt    *time.Time `json:"occurred_at,omitempty"`
}

// Frame - bentuk SSE: "id: <seq>\ndata: <json>\n\n"
func (e Event) Frame() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\ndata: %s\n\n", e.Seq, body)), nil
}
