package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/notify"
	"github.com/legalwatchdog/platform/internal/tenant"
)

type NotifyHandler struct {
	svc *notify.Service
}

func NewNotifyHandler(svc *notify.Service) *NotifyHandler {
	return &NotifyHandler{svc: svc}
}

func (h *NotifyHandler) List(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.svc.List(r.Context(), access, unreadOnly, 0)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "notifications",
		map[string]interface{}{"notifications": notifications, "count": len(notifications)})
}

func (h *NotifyHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "notification_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.svc.MarkRead(r.Context(), access, id); err != nil {
		respond.Failure(w, http.StatusNotFound, "notification not found")
		return
	}
	respond.Success(w, http.StatusOK, "notification marked read", nil)
}

func (h *NotifyHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	n, err := h.svc.MarkAllRead(r.Context(), access)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "notifications marked read", map[string]interface{}{"updated": n})
}
