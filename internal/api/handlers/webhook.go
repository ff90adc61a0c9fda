package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/tenant"
	"github.com/legalwatchdog/platform/internal/webhook"
)

type WebhookHandler struct {
	svc *webhook.Service
}

func NewWebhookHandler(svc *webhook.Service) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	var in webhook.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respond.Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	hook, err := h.svc.Create(r.Context(), access, in)
	if err != nil {
		respond.Error(w, err)
		return
	}
	// The secret appears in this response only.
	respond.Success(w, http.StatusCreated, "webhook created; store the secret now, it will not be shown again",
		map[string]interface{}{"webhook": hook, "secret": hook.Secret})
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	hooks, err := h.svc.List(r.Context(), access)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "webhooks", map[string]interface{}{"webhooks": hooks, "count": len(hooks)})
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "webhook_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid webhook id")
		return
	}

	if err := h.svc.Delete(r.Context(), access, id); err != nil {
		if errors.Is(err, webhook.ErrNotFound) {
			respond.Failure(w, http.StatusNotFound, "webhook not found")
			return
		}
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "webhook deleted", nil)
}
