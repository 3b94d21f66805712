package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Window - satu jendela layanan harian, misal pagi=08:00-11:00.
// Open/Close disimpan sebagai offset dari tengah malam waktu lokal.
type Window struct {
	Name  string
	Open  time.Duration
	Close time.Duration
}

// Overnight - jam tutup melewati tengah malam, contoh buka 22:00 tutup 02:00
func (w Window) Overnight() bool {
	return w.Close <= w.Open
}

func (w Window) OpenClock() string  { return formatOffset(w.Open) }
func (w Window) CloseClock() string { return formatOffset(w.Close) }

func formatOffset(d time.Duration) string {
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%02d:%02d", h, m)
}

// parseClock - format bisa HH:MM:SS atau HH:MM
func parseClock(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if strings.Count(value, ":") == 1 {
		value += ":00"
	}
	t, err := time.Parse("15:04:05", value)
	if err != nil {
		return 0, fmt.Errorf("jam tidak valid %q", value)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// ParseWindows - "08:00-11:00" atau "pagi=08:00-11:00,siang=12:00-14:00".
// Jendela tanpa nama diberi nama urut s1, s2, ...
func ParseWindows(raw string) ([]Window, error) {
	var windows []Window
	seen := make(map[string]bool)

	for i, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name := fmt.Sprintf("s%d", i+1)
		if n, rest, ok := strings.Cut(part, "="); ok {
			name = strings.TrimSpace(n)
			part = strings.TrimSpace(rest)
		}
		if name == "" || strings.ContainsAny(name, "# ") {
			return nil, fmt.Errorf("nama sesi tidak valid %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("nama sesi dobel %q", name)
		}
		seen[name] = true

		openRaw, closeRaw, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("format sesi harus HH:MM-HH:MM, dapat %q", part)
		}
		open, err := parseClock(openRaw)
		if err != nil {
			return nil, err
		}
		closeAt, err := parseClock(closeRaw)
		if err != nil {
			return nil, err
		}
		if open == closeAt {
			return nil, fmt.Errorf("sesi %q: jam buka sama dengan jam tutup", name)
		}
		windows = append(windows, Window{Name: name, Open: open, Close: closeAt})
	}

	if len(windows) == 0 {
		return nil, fmt.Errorf("CANTEEN_SESSIONS kosong")
	}
	sort.SliceStable(windows, func(i, j int) bool { return windows[i].Open < windows[j].Open })
	return windows, nil
}

// occurrence - jendela yang dibuka pada tanggal day (lokal)
func (w Window) occurrence(day time.Time) (time.Time, time.Time) {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	openTime := midnight.Add(w.Open)
	closeTime := midnight.Add(w.Close)

	// Jam tutup di hari berikutnya
	if w.Overnight() {
		closeTime = closeTime.Add(24 * time.Hour)
	}
	return openTime, closeTime
}

// active - kalau now ada di dalam jendela, kembalikan jam buka/tutupnya.
// Jendela overnight yang dibuka kemarin masih dihitung.
func (w Window) active(now time.Time) (time.Time, time.Time, bool) {
	openTime, closeTime := w.occurrence(now)

	// Jika sekarang sebelum jam buka, berarti masih di periode kemarin
	if w.Overnight() && now.Before(openTime) {
		openTime, closeTime = w.occurrence(now.AddDate(0, 0, -1))
	}

	if !now.Before(openTime) && now.Before(closeTime) {
		return openTime, closeTime, true
	}
	return openTime, closeTime, false
}
