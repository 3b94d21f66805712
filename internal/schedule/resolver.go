package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"backend-kantin/internal/models"
)

type OverrideReader interface {
	CurrentOverride(ctx context.Context) (models.OverrideEntry, error)
}

// Status - jawaban "kantin buka atau tidak, sesi mana"
type Status struct {
	IsOpen      bool                `json:"is_open"`
	Mode        models.OverrideMode `json:"mode"`
	Reason      string              `json:"reason"`
	Message     string              `json:"message"`
	OpenTime    string              `json:"open_time"`
	CloseTime   string              `json:"close_time"`
	SessionID   string              `json:"session_id"`
	Session     string              `json:"session"`
	ChangedBy   string              `json:"changed_by,omitempty"`
	ChangedAt   *time.Time          `json:"changed_at,omitempty"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
}

type Resolver struct {
	schedule  *Schedule
	overrides OverrideReader
	clock     Clock
	log       *logrus.Entry
}

func NewResolver(schedule *Schedule, overrides OverrideReader, clock Clock, logger *logrus.Logger) *Resolver {
	return &Resolver{
		schedule:  schedule,
		overrides: overrides,
		clock:     clock,
		log:       logger.WithField("component", "schedule"),
	}
}

func (r *Resolver) Schedule() *Schedule { return r.schedule }

func (r *Resolver) Now() time.Time { return r.clock.Now() }

// Resolve dibaca setiap admission. Gagal baca override = tutup.
func (r *Resolver) Resolve(ctx context.Context) Status {
	now := r.clock.Now()
	if now.IsZero() {
		return Status{
			Mode:        models.OverrideNormal,
			Reason:      ReasonResolverError,
			Message:     "Jam server tidak tersedia, pemesanan ditutup sementara",
			EvaluatedAt: now,
		}
	}

	session := r.schedule.SessionAt(now)
	status := Status{
		SessionID:   session.ID,
		Session:     session.Name,
		OpenTime:    session.Window.OpenClock(),
		CloseTime:   session.Window.CloseClock(),
		EvaluatedAt: now,
	}

	entry, err := r.overrides.CurrentOverride(ctx)
	if err != nil {
		r.log.WithError(err).Error("gagal baca override, kantin dianggap tutup")
		status.Mode = models.OverrideNormal
		status.Reason = ReasonResolverError
		status.Message = "Status kantin tidak dapat dibaca, pemesanan ditutup sementara"
		return status
	}

	status.Mode = entry.Mode
	if !entry.ChangedAt.IsZero() {
		changedAt := entry.ChangedAt
		status.ChangedBy = entry.ChangedBy
		status.ChangedAt = &changedAt
	}

	switch entry.Mode {
	case models.OverrideOpen:
		status.IsOpen = true
		status.Reason = ReasonOverrideOpen
		status.Message = "Kantin dibuka oleh operator"
	case models.OverrideClose:
		status.Reason = ReasonOverrideClose
		status.Message = "Kantin ditutup oleh operator"
	default:
		status.IsOpen = session.Active
		status.Reason = session.Reason
		status.Message = scheduleMessage(session)
	}
	return status
}

func scheduleMessage(s Session) string {
	switch s.Reason {
	case ReasonScheduleOpen:
		return fmt.Sprintf("Kantin buka sampai pukul %s", s.Window.CloseClock())
	case ReasonBeforeOpen:
		return fmt.Sprintf("Kantin belum buka, buka pukul %s", s.Window.OpenClock())
	case ReasonBetweenSessions:
		return fmt.Sprintf("Sesi %s sudah selesai, tunggu sesi berikutnya", s.Name)
	default:
		return fmt.Sprintf("Kantin sudah tutup pukul %s", s.Window.CloseClock())
	}
}
