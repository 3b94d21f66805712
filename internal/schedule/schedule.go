// Package schedule decides whether the canteen accepts orders right now
// and which quota session a moment in time belongs to.
package schedule

import (
	"fmt"
	"time"
)

const (
	ReasonOverrideOpen    = "override_open"
	ReasonOverrideClose   = "override_close"
	ReasonScheduleOpen    = "schedule_open"
	ReasonBeforeOpen      = "before_open"
	ReasonAfterClose      = "after_close"
	ReasonBetweenSessions = "between_sessions"
	ReasonResolverError   = "resolver_error"
)

// Session - bucket kuota. ID dipakai sebagai session_id di tabel transaksi.
type Session struct {
	ID      string
	Name    string
	Date    string
	Window  Window
	OpenAt  time.Time
	CloseAt time.Time
	Active  bool
	Reason  string
}

type Schedule struct {
	windows []Window
	loc     *time.Location
}

func NewSchedule(windows []Window, loc *time.Location) (*Schedule, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("schedule: minimal satu jendela sesi")
	}
	if loc == nil {
		return nil, fmt.Errorf("schedule: zona waktu kosong")
	}
	return &Schedule{windows: windows, loc: loc}, nil
}

// Load - parse CANTEEN_SESSIONS dan CANTEEN_TIMEZONE
func Load(sessions, timezone string) (*Schedule, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule: zona waktu %q: %w", timezone, err)
	}
	windows, err := ParseWindows(sessions)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	return NewSchedule(windows, loc)
}

func (s *Schedule) Location() *time.Location { return s.loc }

func (s *Schedule) Windows() []Window {
	out := make([]Window, len(s.windows))
	copy(out, s.windows)
	return out
}

func (s *Schedule) sessionID(openAt time.Time, w Window) string {
	date := openAt.Format("2006-01-02")
	if len(s.windows) == 1 {
		return date
	}
	return date + "#" + w.Name
}

func (s *Schedule) session(w Window, openAt, closeAt time.Time, active bool, reason string) Session {
	return Session{
		ID:      s.sessionID(openAt, w),
		Name:    w.Name,
		Date:    openAt.Format("2006-01-02"),
		Window:  w,
		OpenAt:  openAt,
		CloseAt: closeAt,
		Active:  active,
		Reason:  reason,
	}
}

// SessionAt - jendela yang memuat t menang. Kalau tidak ada, jendela
// terakhir yang sudah dibuka hari itu; kalau belum ada juga, jendela
// pertama hari itu. Sisa jendela overnight ikut tanggal jam bukanya.
func (s *Schedule) SessionAt(t time.Time) Session {
	now := t.In(s.loc)

	for _, w := range s.windows {
		if openAt, closeAt, ok := w.active(now); ok {
			return s.session(w, openAt, closeAt, true, ReasonScheduleOpen)
		}
	}

	var (
		started  *Window
		startAt  time.Time
		closeAt  time.Time
		upcoming bool
	)
	for i := range s.windows {
		w := s.windows[i]
		openAt, c := w.occurrence(now)
		if now.Before(openAt) {
			upcoming = true
			continue
		}
		if started == nil || openAt.After(startAt) {
			started, startAt, closeAt = &s.windows[i], openAt, c
		}
	}

	if started != nil {
		reason := ReasonAfterClose
		if upcoming {
			reason = ReasonBetweenSessions
		}
		return s.session(*started, startAt, closeAt, false, reason)
	}

	first := s.windows[0]
	openAt, c := first.occurrence(now)
	return s.session(first, openAt, c, false, ReasonBeforeOpen)
}
