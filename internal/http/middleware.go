package httpapi

import (
	"net/http"
	"regexp"
	"time"

	"github.com/iamyinka/reliefproj/internal/metrics"

	"go.uber.org/zap"
)

var (
	uuidSegment = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	idSegment   = regexp.MustCompile(`/\d+(/|$)`)
	codeSegment = regexp.MustCompile(`/status/[^/]+$`)
)

// normalizePath collapses ids and codes so metric label cardinality stays bounded.
func normalizePath(path string) string {
	path = uuidSegment.ReplaceAllString(path, "/{id}")
	path = idSegment.ReplaceAllString(path, "/{id}$1")
	path = codeSegment.ReplaceAllString(path, "/status/{code}")
	return path
}

// withRequestLog logs one line per request.
func withRequestLog(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &metrics.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.Status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Wrap applies request logging and Prometheus instrumentation.
func Wrap(h http.Handler, logger *zap.Logger) http.Handler {
	return metrics.InstrumentHandler(withRequestLog(h, logger), normalizePath)
}
