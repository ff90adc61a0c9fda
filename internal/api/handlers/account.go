package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/legalwatchdog/platform/internal/account"
	"github.com/legalwatchdog/platform/internal/api/respond"
)

type AccountHandler struct {
	svc *account.Service
}

func NewAccountHandler(svc *account.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in account.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respond.Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	user, org, err := h.svc.Register(r.Context(), in)
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			respond.Failure(w, http.StatusConflict, err.Error())
			return
		}
		respond.Error(w, err)
		return
	}

	respond.Success(w, http.StatusCreated, "organization registered; check your email for a verification code",
		map[string]interface{}{"user": user, "organization": org})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrRateLimited):
			w.Header().Set("Retry-After", "60")
			respond.Failure(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		case errors.Is(err, account.ErrInvalidCredentials):
			respond.Failure(w, http.StatusUnauthorized, "invalid email or password")
		default:
			respond.Error(w, err)
		}
		return
	}

	respond.Success(w, http.StatusOK, "logged in", result)
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == "" || raw == header {
		respond.Failure(w, http.StatusBadRequest, "missing bearer token")
		return
	}

	if err := h.svc.Logout(r.Context(), raw); err != nil {
		respond.Error(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "logged out", nil)
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *AccountHandler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.RequestVerification(r.Context(), req.Email); err != nil {
		respond.Error(w, err)
		return
	}
	// Same response whether or not the email exists.
	respond.Success(w, http.StatusOK, "if the email is registered, a verification code has been sent", nil)
}

func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Code == "" {
		respond.Failure(w, http.StatusBadRequest, "email and code are required")
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid verification code")
		return
	}
	respond.Success(w, http.StatusOK, "email verified", nil)
}
