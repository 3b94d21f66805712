package handler

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"backend-kantin/internal/config"
	"backend-kantin/internal/helper"
	"backend-kantin/internal/models"
	"backend-kantin/internal/store"
)

func (h *Handler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Username dan password harus diisi",
		})
	}

	if h.settings.RecaptchaSecret != "" {
		if req.RecaptchaToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "reCAPTCHA token tidak valid",
			})
		}

		ok, score, err := config.VerifyRecaptcha(c.UserContext(), h.settings.RecaptchaSecret, req.RecaptchaToken)
		if err != nil {
			h.log.WithError(err).Warn("verifikasi recaptcha gagal")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Gagal verifikasi reCAPTCHA",
			})
		}

		if !ok || score < config.RecaptchaMinScore {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Aktivitas mencurigakan terdeteksi",
			})
		}
	}

	user, err := helper.CheckUserRole(c.UserContext(), h.store, req.Username, models.RoleSuperUser)
	switch {
	case errors.Is(err, helper.ErrUserNotFound):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Username atau password salah",
		})
	case errors.Is(err, helper.ErrUserBanned):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Akun Anda telah diblokir",
		})
	case errors.Is(err, helper.ErrInvalidRole):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Anda tidak memiliki akses ke dashboard",
		})
	case err != nil:
		h.log.WithError(err).Error("login gagal baca user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Username atau password salah",
		})
	}

	token, err := config.GenerateToken(user.ID, user.Name, user.Role, "", operatorTokenTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"user":    models.ToUserResponse(user),
		"message": "Login berhasil! Selamat datang kembali, " + user.Name,
	})
}

// PortalLogin - pegawai masuk ke portal pemesanan pakai token dari PORTAL_TOKENS
func (h *Handler) PortalLogin(c *fiber.Ctx) error {
	var req models.PortalLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if req.EmployeeID == "" || req.PortalToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Employee ID dan token harus diisi",
		})
	}

	expected, ok := h.settings.PortalTokens[req.EmployeeID]
	if !ok || subtle.ConstantTimeCompare([]byte(expected), []byte(req.PortalToken)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Employee ID atau token salah",
		})
	}

	employee, err := h.store.EmployeeByID(c.UserContext(), req.EmployeeID)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Employee ID atau token salah",
		})
	}
	if err != nil {
		h.log.WithError(err).Error("portal login gagal baca pegawai")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}
	if employee.IsDisabled {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Pegawai dinonaktifkan, hubungi admin",
		})
	}

	token, err := config.GenerateToken(0, employee.Name, models.RoleEmployee, employee.EmployeeID, portalTokenTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"token":    token,
		"employee": employee,
		"message":  "Selamat datang, " + employee.Name,
	})
}
