package models

// Device - card reader fisik, opsional terikat ke satu tenant
type Device struct {
	ID         int64  `json:"id"`
	DeviceCode string `json:"device_code"`
	TenantID   *int64 `json:"tenant_id"`
}

func (d Device) Bound() bool {
	return d.TenantID != nil
}
