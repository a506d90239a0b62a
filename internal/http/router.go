package httpapi

import (
	"net/http"

	"github.com/iamyinka/reliefproj/internal/metrics"

	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux with manual path parsing.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers an http.Handler (metrics, sub-routers).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func only(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w)
			return
		}
		h(w, r)
	}
}

// RegisterApplicationRoutes /api/applications
func (r *Router) RegisterApplicationRoutes(h *ApplicationsHandler) {
	r.Handle("/api/applications/submit", only(http.MethodPost, h.Submit))
	r.Handle("/api/applications/status", only(http.MethodGet, h.Status))
	r.Handle("/api/applications/eligibility", only(http.MethodGet, h.Eligibility))
	r.Handle("/api/applications", only(http.MethodGet, requireStaff(h.List)))
	r.HandleHandler(applicationsPrefix, h)
}

// RegisterPickupRoutes /api/pickups
func (r *Router) RegisterPickupRoutes(h *PickupsHandler) {
	r.HandleHandler(pickupsPrefix, h)
}

// RegisterPackageRoutes /api/packages
func (r *Router) RegisterPackageRoutes(h *PackagesHandler) {
	r.Handle("/api/packages", requireStaff(h.Collection))
	r.HandleHandler(packagesPrefix, h)
}

// RegisterReportRoutes /api/reports and /api/events
func (r *Router) RegisterReportRoutes(h *ReportsHandler) {
	r.Handle("/api/reports/applications.xlsx", only(http.MethodGet, requireStaff(h.ExportApplications)))
	r.Handle("/api/reports/daily", only(http.MethodGet, requireStaff(h.Daily)))
	r.Handle("/api/events/recent", only(http.MethodGet, requireStaff(h.RecentEvents)))
}

// RegisterOpsRoutes /healthz and /metrics
func (r *Router) RegisterOpsRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.HandleHandler("/metrics", metrics.Handler())
}
