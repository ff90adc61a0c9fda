package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/apikey"
	"github.com/legalwatchdog/platform/internal/tenant"
)

type APIKeyHandler struct {
	svc *apikey.Service
}

func NewAPIKeyHandler(svc *apikey.Service) *APIKeyHandler {
	return &APIKeyHandler{svc: svc}
}

func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	var in apikey.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respond.Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	key, plaintext, err := h.svc.Create(r.Context(), access, in)
	if err != nil {
		respond.Error(w, err)
		return
	}
	// The plaintext appears in this response only.
	respond.Success(w, http.StatusCreated, "api key created; store the key now, it will not be shown again",
		map[string]interface{}{"api_key": key, "key": plaintext})
}

func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	keys, err := h.svc.List(r.Context(), access)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "api keys", map[string]interface{}{"api_keys": keys, "count": len(keys)})
}

func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	keyID, err := uuid.Parse(chi.URLParam(r, "key_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid key id")
		return
	}

	if err := h.svc.Revoke(r.Context(), access, keyID); err != nil {
		if errors.Is(err, apikey.ErrNotFound) {
			respond.Failure(w, http.StatusNotFound, "api key not found")
			return
		}
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "api key revoked", nil)
}

func (h *APIKeyHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	keyID, err := uuid.Parse(chi.URLParam(r, "key_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid key id")
		return
	}

	key, plaintext, err := h.svc.Rotate(r.Context(), access, keyID)
	if err != nil {
		if errors.Is(err, apikey.ErrNotFound) {
			respond.Failure(w, http.StatusNotFound, "api key not found")
			return
		}
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "api key rotated; store the new key now",
		map[string]interface{}{"api_key": key, "key": plaintext})
}
