package httpapi

import (
	"context"
	"net/http"
	"strings"
)

// Staff is the reviewer / operator identity injected by the upstream gateway.
type Staff struct {
	ID   string
	Name string
}

// Label is what gets stored as reviewed_by / completed_by.
func (s Staff) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

type staffKey struct{}

func staffFromContext(ctx context.Context) (Staff, bool) {
	s, ok := ctx.Value(staffKey{}).(Staff)
	return s, ok
}

// requireStaff rejects requests without X-User-ID with 401.
func requireStaff(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, Fail("Authentication required."))
			return
		}
		staff := Staff{ID: id, Name: strings.TrimSpace(r.Header.Get("X-User-Name"))}
		next(w, r.WithContext(context.WithValue(r.Context(), staffKey{}, staff)))
	}
}

func currentStaff(r *http.Request) Staff {
	s, _ := staffFromContext(r.Context())
	return s
}
