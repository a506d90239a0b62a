package httpapi

import (
	"net/http"
	"strings"

	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/service"

	"go.uber.org/zap"
)

const (
	pickupsPrefix      = "/api/pickups/"
	pickupStatusPrefix = "/api/pickups/status/"

	defaultScannerNote = "Package collected via QR scanner"
)

// PickupsHandler scanner and pickup-desk endpoints
type PickupsHandler struct {
	vouchers *service.VoucherService
	logger   *zap.Logger
}

func NewPickupsHandler(vouchers *service.VoucherService, logger *zap.Logger) *PickupsHandler {
	return &PickupsHandler{vouchers: vouchers, logger: logger}
}

// ServeHTTP dispatches the /api/pickups/ subtree.
func (h *PickupsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/pickups/verify":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Verify(w, r)
	case path == "/api/pickups/confirm":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		requireStaff(h.Confirm)(w, r)
	case path == "/api/pickups/today":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		requireStaff(h.Today)(w, r)
	case path == "/api/pickups/recent-scans":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		requireStaff(h.RecentScans)(w, r)
	case strings.HasPrefix(path, pickupStatusPrefix):
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.Status(w, r)
	case strings.HasSuffix(path, "/complete"):
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		requireStaff(h.Complete)(w, r)
	case strings.HasSuffix(path, "/status"):
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		requireStaff(h.Override)(w, r)
	case strings.HasSuffix(path, "/qr.png"):
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		requireStaff(h.Image)(w, r)
	default:
		notFound(w)
	}
}

// Verify POST /api/pickups/verify {pickup_code}; read-only.
func (h *PickupsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PickupCode string `json:"pickup_code"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	view, err := h.vouchers.Verify(r.Context(), payload.PickupCode)
	if err != nil {
		writeError(w, h.logger, "VerifyPickup", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("Valid pickup code.", view))
}

// Confirm POST /api/pickups/confirm {pickup_id | pickup_code, notes}
func (h *PickupsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PickupID   int64  `json:"pickup_id"`
		PickupCode string `json:"pickup_code"`
		Notes      string `json:"notes"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if strings.TrimSpace(payload.Notes) == "" {
		payload.Notes = defaultScannerNote
	}
	view, err := h.vouchers.Complete(r.Context(), service.CompleteRequest{
		PickupID:   payload.PickupID,
		PickupCode: payload.PickupCode,
		Operator:   currentStaff(r).Label(),
		Notes:      payload.Notes,
	})
	if err != nil {
		writeError(w, h.logger, "ConfirmPickup", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("Pickup confirmed for "+view.ApplicantName+"!", view))
}

// Complete POST /api/pickups/{id}/complete {notes}
func (h *PickupsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	raw, ok := pathParam(r.URL.Path, pickupsPrefix, "/complete")
	id, valid := parseID(raw)
	if !ok || !valid {
		notFound(w)
		return
	}
	var payload struct {
		Notes string `json:"notes"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	view, err := h.vouchers.Complete(r.Context(), service.CompleteRequest{
		PickupID: id,
		Operator: currentStaff(r).Label(),
		Notes:    payload.Notes,
	})
	if err != nil {
		writeError(w, h.logger, "CompletePickup", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("Pickup completed successfully!", view))
}

// Override POST /api/pickups/{id}/status {status, notes}
func (h *PickupsHandler) Override(w http.ResponseWriter, r *http.Request) {
	raw, ok := pathParam(r.URL.Path, pickupsPrefix, "/status")
	id, valid := parseID(raw)
	if !ok || !valid {
		notFound(w)
		return
	}
	var payload struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	v, err := h.vouchers.Override(r.Context(), id,
		domain.VoucherStatus(strings.ToUpper(strings.TrimSpace(payload.Status))),
		payload.Notes, currentStaff(r).Label())
	if err != nil {
		writeError(w, h.logger, "OverridePickup", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("Pickup status updated.", map[string]any{
		"pickup_id":   v.ID,
		"pickup_code": v.PickupCode,
		"status":      v.Status,
	}))
}

// Status GET /api/pickups/status/{code}
func (h *PickupsHandler) Status(w http.ResponseWriter, r *http.Request) {
	code, ok := pathParam(r.URL.Path, pickupStatusPrefix, "")
	if !ok {
		notFound(w)
		return
	}
	view, err := h.vouchers.Status(r.Context(), code)
	if err != nil {
		writeError(w, h.logger, "PickupStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("", view))
}

// Today GET /api/pickups/today
func (h *PickupsHandler) Today(w http.ResponseWriter, r *http.Request) {
	queue, err := h.vouchers.TodayQueue(r.Context())
	if err != nil {
		writeError(w, h.logger, "TodayQueue", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("", queue))
}

// RecentScans GET /api/pickups/recent-scans?limit=
func (h *PickupsHandler) RecentScans(w http.ResponseWriter, r *http.Request) {
	scans, err := h.vouchers.RecentScans(r.Context(), parseInt(r.URL.Query().Get("limit"), 10))
	if err != nil {
		writeError(w, h.logger, "RecentScans", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("", scans))
}

// Image GET /api/pickups/{id}/qr.png
func (h *PickupsHandler) Image(w http.ResponseWriter, r *http.Request) {
	raw, ok := pathParam(r.URL.Path, pickupsPrefix, "/qr.png")
	id, valid := parseID(raw)
	if !ok || !valid {
		notFound(w)
		return
	}
	png, err := h.vouchers.Image(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "PickupImage", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
