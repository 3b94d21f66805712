package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"backend-kantin/internal/admission"
	"backend-kantin/internal/store"
)

type correctionRequest struct {
	EmployeeID      *string `json:"employee_id"`
	TenantID        *int64  `json:"tenant_id"`
	TransactionDate *string `json:"transaction_date"`
	MenuLabel       *string `json:"menu_label"`
}

// parseLocalTime - "2006-01-02 15:04:05" di zona kantin, atau RFC3339
func parseLocalTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("format tanggal tidak dikenal")
}

// ListTransactions - laporan transaksi dengan filter dan pagination
func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	filter := store.TransactionFilter{
		EmployeeGroup: strings.TrimSpace(c.Query("group")),
		EmployeeID:    strings.TrimSpace(c.Query("employee_id")),
		TenantID:      int64(c.QueryInt("tenant_id", 0)),
		Limit:         limit,
		Offset:        (page - 1) * limit,
	}

	loc := h.svc.Location()
	if from := c.Query("from"); from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, loc)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Format from harus YYYY-MM-DD",
			})
		}
		filter.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, loc)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Format to harus YYYY-MM-DD",
			})
		}
		// inklusif sampai akhir hari
		filter.To = t.AddDate(0, 0, 1)
	}

	rows, total, err := h.store.ListTransactions(c.UserContext(), filter)
	if err != nil {
		h.log.WithError(err).Error("gagal ambil daftar transaksi")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Gagal mengambil data transaksi",
		})
	}

	totalPages := (total + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    rows,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total_data":  total,
			"total_pages": totalPages,
		},
	})
}

func (h *Handler) GetTransaction(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ID transaksi tidak valid",
		})
	}

	tr, err := h.svc.Transaction(c.UserContext(), int64(id))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    tr,
	})
}

// CorrectTransaction - koreksi admin: pegawai, tenant, tanggal, menu
func (h *Handler) CorrectTransaction(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ID transaksi tidak valid",
		})
	}

	var req correctionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.EmployeeID == nil && req.TenantID == nil && req.TransactionDate == nil && req.MenuLabel == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Tidak ada perubahan",
		})
	}

	correction := admission.Correction{
		EmployeeID: req.EmployeeID,
		TenantID:   req.TenantID,
		MenuLabel:  req.MenuLabel,
	}
	if req.TransactionDate != nil {
		t, err := parseLocalTime(*req.TransactionDate, h.svc.Location())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Format transaction_date tidak valid",
			})
		}
		correction.TransactionDate = &t
	}

	tr, err := h.svc.Correct(c.UserContext(), int64(id), correction, operatorName(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Transaksi berhasil dikoreksi",
		"data":    tr,
	})
}

// RegenerateVerificationCode - kode verifikasi tenant baru, kode lama tidak berlaku
func (h *Handler) RegenerateVerificationCode(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ID tenant tidak valid",
		})
	}

	code, err := h.store.RegenerateVerificationCode(c.UserContext(), int64(id))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tenant tidak ditemukan",
		})
	}
	if err != nil {
		h.log.WithError(err).WithField("tenant_id", id).Error("gagal generate kode verifikasi")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Gagal generate kode verifikasi",
		})
	}

	h.log.WithFields(logrus.Fields{
		"tenant_id": id,
		"operator":  operatorName(c),
	}).Info("kode verifikasi tenant diganti")

	return c.JSON(fiber.Map{
		"message":           "Kode verifikasi berhasil diganti",
		"verification_code": code,
	})
}
