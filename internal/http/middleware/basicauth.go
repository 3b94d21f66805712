package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

// StationAuth - card reader di tenant login pakai basic auth.
// User kosong berarti station belum dikonfigurasi, semua request ditolak.
func StationAuth(user, pass string) fiber.Handler {
	if user == "" {
		return func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}
	}
	return basicauth.New(basicauth.Config{
		Users: map[string]string{
			user: pass,
		},
		Unauthorized: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		},
	})
}
