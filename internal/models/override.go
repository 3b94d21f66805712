package models

import (
	"strings"
	"time"
)

type OverrideMode string

const (
	OverrideOpen   OverrideMode = "OPEN"
	OverrideClose  OverrideMode = "CLOSE"
	OverrideNormal OverrideMode = "NORMAL"
)

// ParseOverrideMode - nilai yang tidak dikenal jatuh ke NORMAL.
// ok false kalau input bukan salah satu mode.
func ParseOverrideMode(s string) (OverrideMode, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OPEN":
		return OverrideOpen, true
	case "CLOSE", "CLOSED":
		return OverrideClose, true
	case "NORMAL":
		return OverrideNormal, true
	}
	return OverrideNormal, false
}

type OverrideEntry struct {
	ID        int64        `json:"id"`
	Mode      OverrideMode `json:"mode"`
	ChangedBy string       `json:"changed_by"`
	ChangedAt time.Time    `json:"changed_at"`
}

type SetOverrideRequest struct {
	Mode string `json:"mode" validate:"required,oneof=OPEN CLOSE NORMAL"`
}
