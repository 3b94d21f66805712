package admission

import (
	"errors"

	"backend-kantin/internal/models"
)

const ResponseVersion = 1

// Cue - sinyal suara/visual di layar kasir dan portal
const (
	CueSuccess      = "success"
	CueFailed       = "failed"
	CueLimitReached = "limit_reached"
)

// Response - skema hasil admission v1. Satu bentuk untuk semua outcome.
type Response struct {
	Version  int            `json:"version"`
	Outcome  Kind           `json:"outcome"`
	Cue      string         `json:"cue"`
	Message  string         `json:"message"`
	Replayed bool           `json:"replayed"`
	Ticket   *models.Ticket `json:"ticket,omitempty"`
}

var messages = map[Kind]string{
	KindSuccess:             "Transaksi berhasil, silakan ambil pesanan",
	KindUnknownIdentity:     "Kartu atau ID pegawai tidak terdaftar",
	KindEmployeeDisabled:    "Pegawai dinonaktifkan, hubungi admin",
	KindCanteenClosed:       "Kantin sedang tutup",
	KindUnknownTenant:       "Tenant tidak ditemukan",
	KindTenantNotBound:      "Perangkat belum terhubung ke tenant",
	KindDuplicateRedemption: "Anda sudah melakukan transaksi di sesi ini. Satu orang hanya bisa pesan satu kali",
	KindQuotaExceeded:       "Kuota tenant sudah habis",
	KindInvalidMenu:         "Menu tidak tersedia di tenant ini",
	KindRequestIDConflict:   "Request ID sudah dipakai",
	KindInvalidRequest:      "Request tidak valid",
	KindNotFound:            "Transaksi tidak ditemukan",
	KindPersistenceFailure:  "Terjadi kesalahan, transaksi tidak tersimpan. Silakan coba lagi",
}

func CueOf(k Kind) string {
	switch k {
	case KindSuccess:
		return CueSuccess
	case KindQuotaExceeded:
		return CueLimitReached
	default:
		return CueFailed
	}
}

// NewResponse - err nil berarti res berisi tiket
func NewResponse(res Result, err error) Response {
	kind := KindOf(err)
	resp := Response{
		Version: ResponseVersion,
		Outcome: kind,
		Cue:     CueOf(kind),
		Message: messages[kind],
	}

	var closed *ClosedError
	if errors.As(err, &closed) && closed.Status.Message != "" {
		resp.Message = closed.Status.Message
	}

	if err == nil {
		ticket := res.Ticket
		resp.Ticket = &ticket
		resp.Replayed = res.Replayed
		if res.Replayed {
			resp.Message = "Transaksi ini sudah tercatat sebelumnya"
		}
	}
	return resp
}
