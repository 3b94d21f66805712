package models

import "strings"

type Tenant struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Menu             []string `json:"menu"`
	Quota            int      `json:"quota"`
	IsLimited        bool     `json:"is_limited"`
	VerificationCode string   `json:"verification_code"`
}

// Available - sisa kuota untuk used transaksi. nil berarti tidak dibatasi.
func (t Tenant) Available(used int) *int {
	if !t.IsLimited {
		return nil
	}
	left := t.Quota - used
	if left < 0 {
		left = 0
	}
	return &left
}

// MenuItem - satu baris menu, format "kategori: item" atau label polos
type MenuItem struct {
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
	Item     string `json:"item"`
}

func ParseMenuItem(label string) MenuItem {
	label = strings.TrimSpace(label)
	category, item, found := strings.Cut(label, ":")
	if !found {
		return MenuItem{Label: label, Item: label}
	}
	return MenuItem{
		Label:    label,
		Category: strings.TrimSpace(category),
		Item:     strings.TrimSpace(item),
	}
}

func (m MenuItem) Orderable() bool {
	return m.Item != ""
}

// OrderableMenu returns the menu entries an employee can actually pick.
func (t Tenant) OrderableMenu() []MenuItem {
	items := make([]MenuItem, 0, len(t.Menu))
	for _, label := range t.Menu {
		item := ParseMenuItem(label)
		if item.Orderable() {
			items = append(items, item)
		}
	}
	return items
}

// MatchMenu cari entry menu yang cocok dengan label (full label atau item saja).
func (t Tenant) MatchMenu(label string) (MenuItem, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return MenuItem{}, false
	}
	for _, item := range t.OrderableMenu() {
		if strings.EqualFold(item.Label, label) || strings.EqualFold(item.Item, label) {
			return item, true
		}
	}
	return MenuItem{}, false
}
