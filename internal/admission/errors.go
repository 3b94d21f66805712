package admission

import (
	"errors"

	"backend-kantin/internal/ledger"
	"backend-kantin/internal/schedule"
)

// Hasil yang diharapkan dari Admit. Pemanggil membedakannya lewat errors.Is
// atau KindOf; masing-masing punya cue suara sendiri di front-end.
var (
	ErrUnknownIdentity     = errors.New("kartu atau pegawai tidak dikenal")
	ErrEmployeeDisabled    = errors.New("pegawai dinonaktifkan")
	ErrCanteenClosed       = errors.New("kantin sedang tutup")
	ErrUnknownTenant       = errors.New("tenant tidak dikenal")
	ErrTenantNotBound      = errors.New("device belum terhubung ke tenant")
	ErrDuplicateRedemption = errors.New("pegawai sudah bertransaksi di sesi ini")
	ErrQuotaExceeded       = ledger.ErrQuotaExceeded
	ErrInvalidMenu         = errors.New("menu tidak tersedia di tenant ini")
	ErrRequestIDConflict   = errors.New("request id sudah dipakai pegawai lain")
	ErrInvalidRequest      = errors.New("request tidak valid")
	ErrNotFound            = errors.New("transaksi tidak ditemukan")
	ErrPersistence         = errors.New("gagal menyimpan transaksi")
)

// ClosedError membawa status resolver supaya pesan ke user sesuai alasannya
type ClosedError struct {
	Status schedule.Status
}

func (e *ClosedError) Error() string {
	return ErrCanteenClosed.Error() + " (" + e.Status.Reason + ")"
}

func (e *ClosedError) Unwrap() error { return ErrCanteenClosed }

type Kind string

const (
	KindSuccess             Kind = "success"
	KindUnknownIdentity     Kind = "unknown_identity"
	KindEmployeeDisabled    Kind = "employee_disabled"
	KindCanteenClosed       Kind = "canteen_closed"
	KindUnknownTenant       Kind = "unknown_tenant"
	KindTenantNotBound      Kind = "tenant_not_bound"
	KindDuplicateRedemption Kind = "duplicate_redemption"
	KindQuotaExceeded       Kind = "quota_exceeded"
	KindInvalidMenu         Kind = "invalid_menu"
	KindRequestIDConflict   Kind = "request_id_conflict"
	KindInvalidRequest      Kind = "invalid_request"
	KindNotFound            Kind = "not_found"
	KindPersistenceFailure  Kind = "persistence_failure"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnknownIdentity, KindUnknownIdentity},
	{ErrEmployeeDisabled, KindEmployeeDisabled},
	{ErrCanteenClosed, KindCanteenClosed},
	{ErrUnknownTenant, KindUnknownTenant},
	{ErrTenantNotBound, KindTenantNotBound},
	{ErrDuplicateRedemption, KindDuplicateRedemption},
	{ErrQuotaExceeded, KindQuotaExceeded},
	{ErrInvalidMenu, KindInvalidMenu},
	{ErrRequestIDConflict, KindRequestIDConflict},
	{ErrInvalidRequest, KindInvalidRequest},
	{ErrNotFound, KindNotFound},
}

// KindOf - nil = success, error lain yang tidak dikenali = persistence_failure
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindPersistenceFailure
}

// Expected - hasil operasional rutin, bukan kegagalan sistem
func (k Kind) Expected() bool {
	return k != KindPersistenceFailure
}
