package handler

import (
	"github.com/gofiber/fiber/v2"

	"backend-kantin/internal/http/middleware"
	"backend-kantin/internal/models"
)

// Register - route publik dulu, baru group /api yang wajib JWT
func (h *Handler) Register(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Kantin API jalan",
		})
	})

	app.Post("/san/login", h.Login)
	app.Post("/api/auth/portal-login", h.PortalLogin)
	app.Get("/api/portal/status", h.PortalStatus)
	app.Get("/api/portal/tenants/:id/usage", h.TenantUsage)
	app.Get("/api/dashboard/overview", h.Overview)
	app.Get("/api/sse", h.Stream)

	app.Use("/ws", UpgradeWebSocket)
	app.Get("/ws/live", h.LiveWebSocket())

	// Card reader
	app.Post("/api/stations/swipe", middleware.StationAuth(h.settings.StationUser, h.settings.StationPass), h.Swipe)

	// Base API (semua wajib login)
	api := app.Group("/api", middleware.JWTAuth())

	api.Post("/logout", h.Logout)

	// ===== PORTAL PEGAWAI =====
	api.Post("/orders", middleware.RoleAuth(models.RoleEmployee), h.Order)

	// ===== SUPER ADMIN ROUTES =====
	api.Put("/portal/override", middleware.RoleAuth(models.RoleSuperUser), h.SetOverride)
	api.Get("/portal/override/history", middleware.RoleAuth(models.RoleSuperUser), h.OverrideHistory)

	api.Get("/transactions", middleware.RoleAuth(models.RoleSuperUser), h.ListTransactions)
	api.Get("/transactions/:id", middleware.RoleAuth(models.RoleSuperUser), h.GetTransaction)
	api.Put("/transactions/:id", middleware.RoleAuth(models.RoleSuperUser), h.CorrectTransaction)

	api.Post("/tenants/:id/verification-code", middleware.RoleAuth(models.RoleSuperUser), h.RegenerateVerificationCode)
}
