package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalwatchdog/platform/internal/auth"
	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
)

type stubGuestDirectory struct {
	participants map[uuid.UUID]*models.ExternalParticipant
	tickets      map[uuid.UUID]*models.Ticket
}

func (d *stubGuestDirectory) ParticipantByID(_ context.Context, id uuid.UUID) (*models.ExternalParticipant, error) {
	p, ok := d.participants[id]
	if !ok {
		return nil, auth.ErrDirectoryNotFound
	}
	return p, nil
}

func (d *stubGuestDirectory) TicketByID(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	t, ok := d.tickets[id]
	if !ok {
		return nil, auth.ErrDirectoryNotFound
	}
	return t, nil
}

type guestFixture struct {
	chain       *GuestChain
	codec       *auth.GuestCodec
	dir         *stubGuestDirectory
	participant *models.ExternalParticipant
	ticket      *models.Ticket
}

func newGuestFixture(t *testing.T) *guestFixture {
	t.Helper()

	codec := auth.NewGuestCodec("test-secret", time.Hour)

	ticket := &models.Ticket{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Title:          "Data retention question",
		Status:         models.TicketOpen,
	}
	participant := &models.ExternalParticipant{
		ID:       uuid.New(),
		TicketID: ticket.ID,
		Email:    "counsel@example.com",
		IsActive: true,
	}
	dir := &stubGuestDirectory{
		participants: map[uuid.UUID]*models.ExternalParticipant{participant.ID: participant},
		tickets:      map[uuid.UUID]*models.Ticket{ticket.ID: ticket},
	}

	return &guestFixture{
		chain:       NewGuestChain(codec, dir),
		codec:       codec,
		dir:         dir,
		participant: participant,
		ticket:      ticket,
	}
}

func (f *guestFixture) serve(t *testing.T, token string) (*httptest.ResponseRecorder, *tenant.Guest) {
	t.Helper()
	var seen *tenant.Guest
	handler := f.chain.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = tenant.GuestFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/guest/ticket", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestGuestChainHappyPath(t *testing.T) {
	f := newGuestFixture(t)

	token, err := f.codec.Issue(f.participant.ID, f.ticket.ID)
	require.NoError(t, err)

	rec, guest := f.serve(t, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, guest)
	assert.Equal(t, f.participant.ID, guest.Participant.ID)
	assert.Equal(t, f.ticket.ID, guest.Ticket.ID)
}

func TestGuestChainMissingToken(t *testing.T) {
	f := newGuestFixture(t)
	rec, _ := f.serve(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuestChainRevokedParticipant(t *testing.T) {
	f := newGuestFixture(t)
	token, err := f.codec.Issue(f.participant.ID, f.ticket.ID)
	require.NoError(t, err)

	f.participant.IsActive = false

	rec, _ := f.serve(t, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "revoked")
}

// A token minted for one ticket must not open a different ticket, even for
// a participant who exists.
func TestGuestChainTicketMismatch(t *testing.T) {
	f := newGuestFixture(t)

	otherTicket := &models.Ticket{ID: uuid.New(), Status: models.TicketOpen}
	f.dir.tickets[otherTicket.ID] = otherTicket

	token, err := f.codec.Issue(f.participant.ID, otherTicket.ID)
	require.NoError(t, err)

	rec, _ := f.serve(t, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuestChainClosedTicket(t *testing.T) {
	f := newGuestFixture(t)
	token, err := f.codec.Issue(f.participant.ID, f.ticket.ID)
	require.NoError(t, err)

	f.ticket.Status = models.TicketClosed

	rec, _ := f.serve(t, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "closed")
}

func TestGuestChainRejectsUserToken(t *testing.T) {
	f := newGuestFixture(t)

	userCodec := auth.NewTokenCodec("test-secret", "legalwatchdog", time.Hour)
	token, _, err := userCodec.Issue(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)

	rec, _ := f.serve(t, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
