package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/iamyinka/reliefproj/internal/service"

	"go.uber.org/zap"
)

const applicationsPrefix = "/api/applications/"

// ApplicationsHandler submission, status and review endpoints
type ApplicationsHandler struct {
	apps   *service.ApplicationService
	logger *zap.Logger
}

func NewApplicationsHandler(apps *service.ApplicationService, logger *zap.Logger) *ApplicationsHandler {
	return &ApplicationsHandler{apps: apps, logger: logger}
}

// ServeHTTP dispatches /api/applications/{id}[/approve|/reject].
func (h *ApplicationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/approve"):
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		requireStaff(h.Approve)(w, r)
	case strings.HasSuffix(path, "/reject"):
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		requireStaff(h.Reject)(w, r)
	default:
		if _, ok := pathParam(path, applicationsPrefix, ""); !ok {
			notFound(w)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		requireStaff(h.Get)(w, r)
	}
}

type submitResult struct {
	Result[*service.SubmitResponse]
	ReferenceNumber string `json:"reference_number"`
}

// Submit POST /api/applications/submit
func (h *ApplicationsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	resp, err := h.apps.Submit(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "SubmitApplication", err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResult{
		Result:          Ok("Application submitted successfully!", resp),
		ReferenceNumber: resp.ReferenceNumber,
	})
}

// Status GET /api/applications/status?phone=…|reference_number=…
func (h *ApplicationsHandler) Status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := h.apps.CheckStatus(r.Context(), q.Get("phone"), q.Get("reference_number"))
	if err != nil {
		writeError(w, h.logger, "ApplicationStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("", view))
}

// Eligibility GET /api/applications/eligibility?phone=…
func (h *ApplicationsHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	e, err := h.apps.CheckEligibility(r.Context(), r.URL.Query().Get("phone"))
	if err != nil {
		writeError(w, h.logger, "Eligibility", err)
		return
	}
	type eligibilityData struct {
		*service.Eligibility
		BlockingReference string `json:"blocking_reference,omitempty"`
	}
	data := eligibilityData{Eligibility: e}
	if e.Blocking != nil {
		data.BlockingReference = e.Blocking.ReferenceNumber
	}
	writeJSON(w, http.StatusOK, Ok("", data))
}

// List GET /api/applications?status=&search=&page=&size=
func (h *ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.apps.List(r.Context(), service.ListApplicationsRequest{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Page:   parseInt(q.Get("page"), 1),
		Size:   parseInt(q.Get("size"), 20),
	})
	if err != nil {
		writeError(w, h.logger, "ListApplications", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("", resp))
}

// Get GET /api/applications/{id}
func (h *ApplicationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := pathParam(r.URL.Path, applicationsPrefix, "")
	detail, err := h.apps.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetApplication", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("", detail))
}

type reviewPayload struct {
	Notes string `json:"notes"`
}

type reviewResult struct {
	Result[*service.ReviewResponse]
	Status     string `json:"status"`
	PickupCode string `json:"pickup_code,omitempty"`
}

// Approve POST /api/applications/{id}/approve
func (h *ApplicationsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "/approve", "ApproveApplication", h.apps.Approve, "Application approved successfully!")
}

// Reject POST /api/applications/{id}/reject
func (h *ApplicationsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "/reject", "RejectApplication", h.apps.Reject, "Application rejected.")
}

func (h *ApplicationsHandler) review(
	w http.ResponseWriter,
	r *http.Request,
	suffix, op string,
	decide func(ctx context.Context, req service.ReviewRequest) (*service.ReviewResponse, error),
	message string,
) {
	id, ok := pathParam(r.URL.Path, applicationsPrefix, suffix)
	if !ok {
		notFound(w)
		return
	}
	var payload reviewPayload
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	resp, err := decide(r.Context(), service.ReviewRequest{
		ApplicationID: id,
		Reviewer:      currentStaff(r).Label(),
		Notes:         payload.Notes,
	})
	if err != nil {
		writeError(w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewResult{
		Result:     Ok(message, resp),
		Status:     string(resp.Status),
		PickupCode: resp.PickupCode,
	})
}
