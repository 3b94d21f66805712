package models

import (
	"time"
)

const (
	ChannelSwipe  = "swipe"
	ChannelPortal = "portal"
)

type Transaction struct {
	ID                int64     `json:"id"`
	EmployeeID        string    `json:"employee_id"`
	EmployeeName      string    `json:"employee_name"`
	EmployeeGroup     string    `json:"employee_group"`
	CardNumber        string    `json:"card_number"`
	TenantID          int64     `json:"tenant_id"`
	TenantName        string    `json:"tenant_name"`
	SessionID         string    `json:"session_id"`
	QueueNumber       int       `json:"queue_number"`
	MenuLabel         string    `json:"menu_label"`
	OrderCode         string    `json:"order_code"`
	TransactionNumber string    `json:"transaction_number"`
	Channel           string    `json:"channel"`
	RequestID         *string   `json:"request_id,omitempty"`
	TransactionDate   time.Time `json:"transaction_date"`
}

// Ticket - payload yang dikembalikan ke client setelah admission berhasil.
// Field diset eksplisit, tidak ada alias.
type Ticket struct {
	TransactionID     int64     `json:"transaction_id"`
	OrderCode         string    `json:"order_code"`
	TransactionNumber string    `json:"transaction_number"`
	QueueNumber       int       `json:"queue_number"`
	SessionID         string    `json:"session_id"`
	EmployeeID        string    `json:"employee_id"`
	EmployeeName      string    `json:"employee_name"`
	CardNumber        string    `json:"card_number"`
	TenantID          int64     `json:"tenant_id"`
	TenantName        string    `json:"tenant_name"`
	VerificationCode  string    `json:"verification_code"`
	MenuLabel         string    `json:"menu_label,omitempty"`
	Used              int       `json:"used"`
	Quota             int       `json:"quota"`
	IsLimited         bool      `json:"is_limited"`
	Available         *int      `json:"available"`
	CommittedAt       time.Time `json:"committed_at"`
}

func NewTicket(tx Transaction, tenant Tenant, used int) Ticket {
	return Ticket{
		TransactionID:     tx.ID,
		OrderCode:         tx.OrderCode,
		TransactionNumber: tx.TransactionNumber,
		QueueNumber:       tx.QueueNumber,
		SessionID:         tx.SessionID,
		EmployeeID:        tx.EmployeeID,
		EmployeeName:      tx.EmployeeName,
		CardNumber:        tx.CardNumber,
		TenantID:          tenant.ID,
		TenantName:        tenant.Name,
		VerificationCode:  tenant.VerificationCode,
		MenuLabel:         tx.MenuLabel,
		Used:              used,
		Quota:             tenant.Quota,
		IsLimited:         tenant.IsLimited,
		Available:         tenant.Available(used),
		CommittedAt:       tx.TransactionDate,
	}
}

// LastOrder - ringkasan order terakhir per tenant untuk dashboard
type LastOrder struct {
	TransactionID int64  `json:"transaction_id"`
	QueueNumber   int    `json:"queue_number"`
	EmployeeID    string `json:"employee_id"`
	EmployeeName  string `json:"employee_name"`
	MenuLabel     string `json:"menu_label,omitempty"`
}

type TenantSnapshot struct {
	TenantID    int64      `json:"tenant_id"`
	TenantName  string     `json:"tenant_name"`
	Menu        []string   `json:"menu"`
	Quota       int        `json:"quota"`
	IsLimited   bool       `json:"is_limited"`
	Used        int        `json:"used"`
	Available   *int       `json:"available"`
	LastOrder   *LastOrder `json:"last_order"`
	DeviceCodes []string   `json:"device_codes"`
}

// TenantUsage - sisa kuota satu tenant untuk portal
type TenantUsage struct {
	TenantID   int64      `json:"tenant_id"`
	TenantName string     `json:"tenant_name"`
	SessionID  string     `json:"session_id"`
	Quota      int        `json:"quota"`
	IsLimited  bool       `json:"is_limited"`
	Used       int        `json:"used"`
	Available  *int       `json:"available"`
	Menu       []MenuItem `json:"menu"`
}

type Snapshot struct {
	SessionID string           `json:"session_id"`
	Seq       uint64           `json:"seq"`
	Tenants   []TenantSnapshot `json:"tenants"`
	TakenAt   time.Time        `json:"taken_at"`
}
