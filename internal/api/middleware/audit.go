package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/legalwatchdog/platform/internal/audit"
	"github.com/legalwatchdog/platform/internal/tenant"
)

// AuditTrail records every successful mutation on the organization-scoped
// surface. Reads are not audited; denied requests already land in the
// structured log.
type AuditTrail struct {
	recorder *audit.Service
}

func NewAuditTrail(recorder *audit.Service) *AuditTrail {
	return &AuditTrail{recorder: recorder}
}

func (a *AuditTrail) Record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		access := tenant.AccessFromContext(r.Context())
		if access == nil || ww.Status() >= 400 {
			return
		}

		a.recorder.Log(r.Context(), access, audit.Entry{
			Action:       r.Method + " " + routePattern(r),
			ResourceType: resourceType(r),
			IPAddress:    r.RemoteAddr,
		})
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// resourceType names the first path segment after the organization, e.g.
// "tickets" for /organizations/{organization_id}/tickets/{ticket_id}/close.
func resourceType(r *http.Request) string {
	pattern := routePattern(r)
	parts := strings.Split(pattern, "/")
	for i, p := range parts {
		if p == "{organization_id}" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
