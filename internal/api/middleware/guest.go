package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/auth"
	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
)

// GuestDirectory loads the rows a guest token refers to.
type GuestDirectory interface {
	ParticipantByID(ctx context.Context, id uuid.UUID) (*models.ExternalParticipant, error)
	TicketByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
}

// GuestChain authenticates external participants. It is the guest
// counterpart of Chain.Authenticate: instead of a principal it produces a
// tenant.Guest scoped to exactly one ticket.
type GuestChain struct {
	codec *auth.GuestCodec
	dir   GuestDirectory
}

func NewGuestChain(codec *auth.GuestCodec, dir GuestDirectory) *GuestChain {
	return &GuestChain{codec: codec, dir: dir}
}

func (g *GuestChain) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearerToken(r)
		if raw == "" {
			respond.Failure(w, http.StatusUnauthorized, "missing guest access token")
			return
		}

		claims, err := g.codec.Decode(raw)
		if err != nil {
			respond.Failure(w, http.StatusUnauthorized, "invalid guest access token")
			return
		}

		participantID, err := uuid.Parse(claims.Subject)
		if err != nil {
			respond.Failure(w, http.StatusUnauthorized, "invalid guest access token")
			return
		}
		ticketID, err := uuid.Parse(claims.TicketID)
		if err != nil {
			respond.Failure(w, http.StatusUnauthorized, "invalid guest access token")
			return
		}

		participant, err := g.dir.ParticipantByID(r.Context(), participantID)
		if err != nil || !participant.IsActive {
			respond.Failure(w, http.StatusForbidden, "guest access has been revoked")
			return
		}

		// The token is pinned to one ticket; nothing else is reachable.
		if participant.TicketID != ticketID {
			slog.Warn("guest token ticket mismatch",
				"participant_id", participantID, "token_ticket", ticketID, "participant_ticket", participant.TicketID)
			respond.Failure(w, http.StatusForbidden, "guest access has been revoked")
			return
		}

		ticket, err := g.dir.TicketByID(r.Context(), ticketID)
		if err != nil {
			respond.Failure(w, http.StatusForbidden, "guest access has been revoked")
			return
		}
		if ticket.Status == models.TicketClosed {
			respond.Failure(w, http.StatusForbidden, "ticket is closed")
			return
		}

		guest := &tenant.Guest{Participant: participant, Ticket: ticket}
		next.ServeHTTP(w, r.WithContext(tenant.WithGuest(r.Context(), guest)))
	})
}
