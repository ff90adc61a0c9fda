package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/billing"
	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
)

type BillingHandler struct {
	svc *billing.Service
}

func NewBillingHandler(svc *billing.Service) *BillingHandler {
	return &BillingHandler{svc: svc}
}

func (h *BillingHandler) Get(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	account, err := h.svc.Account(r.Context(), access.OrganizationID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			respond.Failure(w, http.StatusNotFound, "billing account not found")
			return
		}
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "billing account", account)
}

type statusRequest struct {
	Status models.BillingStatus `json:"status"`
}

func (h *BillingHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		respond.Failure(w, http.StatusBadRequest, "status is required")
		return
	}

	account, err := h.svc.SetStatus(r.Context(), access.OrganizationID, req.Status)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			respond.Failure(w, http.StatusNotFound, "billing account not found")
			return
		}
		if errors.Is(err, billing.ErrBadTransition) {
			respond.Failure(w, http.StatusConflict, err.Error())
			return
		}
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "billing status updated", account)
}
