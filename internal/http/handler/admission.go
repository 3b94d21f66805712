package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"backend-kantin/internal/admission"
	"backend-kantin/internal/models"
)

type swipeRequest struct {
	CardNumber string     `json:"card_number"`
	DeviceCode string     `json:"device_code"`
	TenantID   int64      `json:"tenant_id"`
	MenuLabel  string     `json:"menu_label"`
	RequestID  string     `json:"request_id"`
	OccurredAt *time.Time `json:"occurred_at"`
}

type orderRequest struct {
	TenantID   int64      `json:"tenant_id"`
	MenuLabel  string     `json:"menu_label"`
	RequestID  string     `json:"request_id"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// requestID - header Idempotency-Key menang atas field body
func requestID(c *fiber.Ctx, body string) string {
	if key := strings.TrimSpace(c.Get("Idempotency-Key")); key != "" {
		return key
	}
	return strings.TrimSpace(body)
}

// Swipe - tap kartu di card reader tenant
func (h *Handler) Swipe(c *fiber.Ctx) error {
	var req swipeRequest
	if err := c.BodyParser(&req); err != nil {
		return respond(c, admission.Result{}, admission.ErrInvalidRequest)
	}

	res, err := h.svc.Admit(c.UserContext(), admission.Request{
		Channel:    models.ChannelSwipe,
		CardNumber: req.CardNumber,
		DeviceCode: req.DeviceCode,
		TenantID:   req.TenantID,
		MenuLabel:  req.MenuLabel,
		RequestID:  requestID(c, req.RequestID),
		OccurredAt: req.OccurredAt,
	})
	return respond(c, res, err)
}

// Order - pesan dari portal, identitas pegawai dari JWT
func (h *Handler) Order(c *fiber.Ctx) error {
	employeeID, _ := c.Locals("employee_id").(string)
	if employeeID == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Token bukan milik pegawai",
		})
	}

	var req orderRequest
	if err := c.BodyParser(&req); err != nil {
		return respond(c, admission.Result{}, admission.ErrInvalidRequest)
	}

	res, err := h.svc.Admit(c.UserContext(), admission.Request{
		Channel:    models.ChannelPortal,
		EmployeeID: employeeID,
		TenantID:   req.TenantID,
		MenuLabel:  req.MenuLabel,
		RequestID:  requestID(c, req.RequestID),
		OccurredAt: req.OccurredAt,
	})
	return respond(c, res, err)
}
