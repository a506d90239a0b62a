package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/events"
	"github.com/iamyinka/reliefproj/internal/repository"
	"github.com/iamyinka/reliefproj/internal/service"

	"go.uber.org/zap"
)

// EventFeed reads back recently published workflow events.
type EventFeed interface {
	Recent(ctx context.Context, n int64) ([]events.Event, error)
}

// ReportsHandler staff exports, daily statistics and the activity feed
type ReportsHandler struct {
	reports *service.ReportService
	stats   *service.StatsService
	feed    EventFeed
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

func NewReportsHandler(reports *service.ReportService, stats *service.StatsService, feed EventFeed, loc *time.Location, logger *zap.Logger) *ReportsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportsHandler{reports: reports, stats: stats, feed: feed, loc: loc, logger: logger, now: time.Now}
}

// ExportApplications GET /api/reports/applications.xlsx?status=&search=
func (h *ReportsHandler) ExportApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := domain.ApplicationStatus(strings.ToUpper(strings.TrimSpace(q.Get("status"))))
	if status != "" && !status.Valid() {
		v := domain.NewValidationError()
		v.Add("status", fmt.Sprintf("%q is not a valid status.", q.Get("status")))
		writeError(w, h.logger, "ExportApplications", v)
		return
	}
	data, err := h.reports.ExportApplications(r.Context(), repository.ApplicationsFilter{
		Status: status,
		Search: strings.TrimSpace(q.Get("search")),
	})
	if err != nil {
		writeError(w, h.logger, "ExportApplications", err)
		return
	}
	filename := fmt.Sprintf("applications_%s.xlsx", h.now().In(h.loc).Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Daily GET /api/reports/daily?date=YYYY-MM-DD (default today)
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	day := h.now()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			v := domain.NewValidationError()
			v.Add("date", "Enter a valid date (YYYY-MM-DD).")
			writeError(w, h.logger, "DailyStats", v)
			return
		}
		day = d
	}
	st, err := h.stats.DailyOrStored(r.Context(), day)
	if err != nil {
		writeError(w, h.logger, "DailyStats", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("", st))
}

// RecentEvents GET /api/events/recent?limit=
func (h *ReportsHandler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if h.feed == nil {
		writeJSON(w, http.StatusOK, Ok("", []events.Event{}))
		return
	}
	evs, err := h.feed.Recent(r.Context(), int64(limit))
	if err != nil {
		writeError(w, h.logger, "RecentEvents", err)
		return
	}
	if evs == nil {
		evs = []events.Event{}
	}
	writeJSON(w, http.StatusOK, Ok("", evs))
}
