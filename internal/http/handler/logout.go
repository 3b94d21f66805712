package handler

import "github.com/gofiber/fiber/v2"

// Logout - token JWT stateless, client cukup buang token
func (h *Handler) Logout(c *fiber.Ctx) error {
	role, _ := c.Locals("role").(string)
	h.log.WithField("role", role).Debugf("logout %s", operatorName(c))

	return c.JSON(fiber.Map{
		"message": "Logout berhasil",
	})
}
