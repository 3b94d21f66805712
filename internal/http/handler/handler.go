// Package handler is the HTTP surface of the canteen: station swipes,
// portal orders, the operator dashboard and the live feeds.
package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"backend-kantin/internal/admission"
	"backend-kantin/internal/config"
	"backend-kantin/internal/realtime"
	"backend-kantin/internal/store"
)

const (
	operatorTokenTTL = 12 * time.Hour
	portalTokenTTL   = 8 * time.Hour
)

type Handler struct {
	svc      *admission.Service
	store    *store.Store
	hub      *realtime.Hub
	settings config.Settings
	log      *logrus.Entry

	keepAlive    time.Duration
	pingInterval time.Duration
}

func New(svc *admission.Service, st *store.Store, hub *realtime.Hub, settings config.Settings, logger *logrus.Logger) *Handler {
	return &Handler{
		svc:          svc,
		store:        st,
		hub:          hub,
		settings:     settings,
		log:          logger.WithField("component", "http"),
		keepAlive:    15 * time.Second,
		pingInterval: 20 * time.Second,
	}
}

// statusFor - kode HTTP untuk tiap outcome admission
func statusFor(kind admission.Kind, replayed bool) int {
	switch kind {
	case admission.KindSuccess:
		if replayed {
			return fiber.StatusOK
		}
		return fiber.StatusCreated
	case admission.KindQuotaExceeded, admission.KindDuplicateRedemption, admission.KindRequestIDConflict:
		return fiber.StatusConflict
	case admission.KindCanteenClosed, admission.KindEmployeeDisabled:
		return fiber.StatusForbidden
	case admission.KindUnknownIdentity, admission.KindUnknownTenant, admission.KindNotFound:
		return fiber.StatusNotFound
	case admission.KindTenantNotBound:
		return fiber.StatusUnprocessableEntity
	case admission.KindInvalidMenu, admission.KindInvalidRequest:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// respond - balasan admission selalu pakai skema v1
func respond(c *fiber.Ctx, res admission.Result, err error) error {
	resp := admission.NewResponse(res, err)
	return c.Status(statusFor(resp.Outcome, resp.Replayed)).JSON(resp)
}

// fail - error non-admission (koreksi, override, laporan) pakai {"error": ...}
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	kind := admission.KindOf(err)
	resp := admission.NewResponse(admission.Result{}, err)
	if !kind.Expected() {
		h.log.WithError(err).WithField("path", c.Path()).Error("request gagal")
	}
	return c.Status(statusFor(kind, false)).JSON(fiber.Map{
		"error":   resp.Message,
		"outcome": kind,
	})
}

func operatorName(c *fiber.Ctx) string {
	name, _ := c.Locals("name").(string)
	return name
}
