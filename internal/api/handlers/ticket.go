package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
	"github.com/legalwatchdog/platform/internal/ticket"
)

type TicketHandler struct {
	svc *ticket.Service
}

func NewTicketHandler(svc *ticket.Service) *TicketHandler {
	return &TicketHandler{svc: svc}
}

func ticketError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		respond.Failure(w, http.StatusNotFound, "ticket not found")
	case errors.Is(err, ticket.ErrTicketClosed):
		respond.Failure(w, http.StatusConflict, "ticket is closed")
	case errors.Is(err, ticket.ErrLinkInvalid):
		respond.Failure(w, http.StatusUnauthorized, "magic link is invalid or expired")
	case errors.Is(err, ticket.ErrParticipantGone):
		respond.Failure(w, http.StatusForbidden, "guest access has been revoked")
	case errors.Is(err, ticket.ErrCommentTooLarge):
		respond.Failure(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		respond.Error(w, err)
	}
}

func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	var in ticket.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respond.Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.svc.Create(r.Context(), access, in)
	if err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusCreated, "ticket created", t)
}

func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	status := models.TicketStatus(r.URL.Query().Get("status"))

	tickets, err := h.svc.List(r.Context(), access, status)
	if err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "tickets", map[string]interface{}{"tickets": tickets, "count": len(tickets)})
}

func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	t, err := h.svc.Get(r.Context(), access, id)
	if err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "ticket", t)
}

func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	var in ticket.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.svc.Update(r.Context(), access, id, in)
	if err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "ticket updated", t)
}

func (h *TicketHandler) Close(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	t, err := h.svc.Close(r.Context(), access, id)
	if err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "ticket closed", t)
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *TicketHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.svc.AddComment(r.Context(), access, id, req.Body)
	if err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusCreated, "comment added", c)
}

func (h *TicketHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	comments, err := h.svc.ListComments(r.Context(), access, id)
	if err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "comments", map[string]interface{}{"comments": comments, "count": len(comments)})
}

func (h *TicketHandler) InviteParticipant(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	var in ticket.ParticipantInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, linkToken, err := h.svc.InviteParticipant(r.Context(), access, id, in)
	if err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusCreated, "participant invited",
		map[string]interface{}{"participant": p, "magic_link_token": linkToken})
}

func (h *TicketHandler) RevokeParticipant(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	ticketID, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	participantID, err := uuid.Parse(chi.URLParam(r, "participant_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid participant id")
		return
	}

	if err := h.svc.RevokeParticipant(r.Context(), access, ticketID, participantID); err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "participant access revoked", nil)
}

type redeemRequest struct {
	Token string `json:"token"`
}

// RedeemMagicLink is unauthenticated; the link token is the credential.
func (h *TicketHandler) RedeemMagicLink(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respond.Failure(w, http.StatusBadRequest, "token is required")
		return
	}

	guestToken, participant, err := h.svc.RedeemMagicLink(r.Context(), req.Token)
	if err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "guest access granted", map[string]interface{}{
		"access_token": guestToken,
		"token_type":   "bearer",
		"participant":  participant,
	})
}

// Guest endpoints run behind guest authentication.
func (h *TicketHandler) GuestView(w http.ResponseWriter, r *http.Request) {
	guest := tenant.GuestFromContext(r.Context())
	t, comments, err := h.svc.GuestView(r.Context(), guest)
	if err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "ticket", map[string]interface{}{"ticket": t, "comments": comments})
}

func (h *TicketHandler) GuestComment(w http.ResponseWriter, r *http.Request) {
	guest := tenant.GuestFromContext(r.Context())

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.svc.GuestComment(r.Context(), guest, req.Body)
	if err != nil {
		ticketError(w, err)
		return
	}
	respond.Success(w, http.StatusCreated, "comment added", c)
}
