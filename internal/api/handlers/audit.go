package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/audit"
	"github.com/legalwatchdog/platform/internal/tenant"
)

type AuditHandler struct {
	svc *audit.Service
}

func NewAuditHandler(svc *audit.Service) *AuditHandler {
	return &AuditHandler{svc: svc}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	q := audit.Query{Action: r.URL.Query().Get("action")}
	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	if v := r.URL.Query().Get("start"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			q.StartDate = &t
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			q.EndDate = &t
		}
	}

	logs, err := h.svc.List(r.Context(), access, q)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "audit logs", map[string]interface{}{"logs": logs, "count": len(logs)})
}
