package handler

import (
	"github.com/gofiber/fiber/v2"

	"backend-kantin/internal/models"
)

func (h *Handler) PortalStatus(c *fiber.Ctx) error {
	return c.JSON(h.svc.Status(c.UserContext()))
}

// TenantUsage - sisa kuota tenant di sesi sekarang
func (h *Handler) TenantUsage(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ID tenant tidak valid",
		})
	}

	usage, err := h.svc.TenantUsage(c.UserContext(), int64(id))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    usage,
	})
}

// Overview - status kantin + snapshot per tenant untuk dashboard
func (h *Handler) Overview(c *fiber.Ctx) error {
	ctx := c.UserContext()
	snap, err := h.svc.Snapshot(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"status":   h.svc.Status(ctx),
		"snapshot": snap,
	})
}

func (h *Handler) SetOverride(c *fiber.Ctx) error {
	var req models.SetOverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if _, ok := models.ParseOverrideMode(req.Mode); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Mode harus OPEN, CLOSE, atau NORMAL",
		})
	}

	entry, err := h.svc.SetOverride(c.UserContext(), req.Mode, operatorName(c))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Mode kantin diubah ke " + string(entry.Mode),
		"data":    entry,
		"status":  h.svc.Status(c.UserContext()),
	})
}

func (h *Handler) OverrideHistory(c *fiber.Ctx) error {
	history, err := h.svc.OverrideHistory(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    history,
	})
}
