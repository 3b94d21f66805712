package models

// Employee - data pegawai, read-only dari sisi admission
type Employee struct {
	ID            int64  `json:"id"`
	EmployeeID    string `json:"employee_id"`
	CardNumber    string `json:"card_number"`
	Name          string `json:"name"`
	EmployeeGroup string `json:"employee_group"`
	Email         string `json:"email,omitempty"`
	IsDisabled    bool   `json:"is_disabled"`
}
