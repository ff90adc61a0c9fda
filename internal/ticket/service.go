package ticket

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalwatchdog/platform/internal/auth"
	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
)

var (
	ErrNotFound        = errors.New("ticket not found")
	ErrTicketClosed    = errors.New("ticket is closed")
	ErrLinkInvalid     = errors.New("magic link is invalid or expired")
	ErrParticipantGone = errors.New("participant access has been revoked")
	ErrCommentTooLarge = errors.New("comment exceeds the allowed length")
)

const (
	defaultMagicLinkTTL = 72 * time.Hour
	maxCommentBodyBytes = 64 << 10
)

// Events is the ticket service's hook into notifications and webhooks.
type Events interface {
	TicketEvent(ctx context.Context, orgID uuid.UUID, event string, payload interface{})
}

type Service struct {
	db         *pgxpool.Pool
	guestCodec *auth.GuestCodec
	events     Events
}

func NewService(db *pgxpool.Pool, guestCodec *auth.GuestCodec, events Events) *Service {
	return &Service{db: db, guestCodec: guestCodec, events: events}
}

type CreateInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
}

func (in *CreateInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, access *tenant.Access, in CreateInput) (*models.Ticket, error) {
	t := &models.Ticket{
		ID:             uuid.New(),
		OrganizationID: access.OrganizationID,
		ProjectID:      in.ProjectID,
		Title:          in.Title,
		Description:    in.Description,
		Status:         models.TicketOpen,
		CreatedBy:      access.User.ID,
		AssignedTo:     in.AssignedTo,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO tickets (id, organization_id, project_id, title, description, status, created_by, assigned_to)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		t.ID, t.OrganizationID, t.ProjectID, t.Title, t.Description, t.Status, t.CreatedBy, t.AssignedTo,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}

	s.events.TicketEvent(ctx, t.OrganizationID, "ticket.created", t)
	return t, nil
}

func (s *Service) Get(ctx context.Context, access *tenant.Access, ticketID uuid.UUID) (*models.Ticket, error) {
	t, err := s.byID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := access.Verify(t.OrganizationID); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, access *tenant.Access, status models.TicketStatus) ([]models.Ticket, error) {
	query := `SELECT id, organization_id, project_id, title, description, status, created_by, assigned_to, closed_at, created_at, updated_at
	          FROM tickets WHERE organization_id = $1`
	args := []interface{}{access.OrganizationID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
			&t.CreatedBy, &t.AssignedTo, &t.ClosedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return tickets, nil
}

type UpdateInput struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Status      *models.TicketStatus `json:"status,omitempty"`
	AssignedTo  *uuid.UUID           `json:"assigned_to,omitempty"`
}

func (s *Service) Update(ctx context.Context, access *tenant.Access, ticketID uuid.UUID, in UpdateInput) (*models.Ticket, error) {
	t, err := s.Get(ctx, access, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Status == models.TicketClosed {
		return nil, ErrTicketClosed
	}

	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil && *in.Status != models.TicketClosed {
		t.Status = *in.Status
	}
	if in.AssignedTo != nil {
		t.AssignedTo = in.AssignedTo
	}

	err = s.db.QueryRow(ctx,
		`UPDATE tickets SET title = $1, description = $2, status = $3, assigned_to = $4, updated_at = now()
		 WHERE id = $5 RETURNING updated_at`,
		t.Title, t.Description, t.Status, t.AssignedTo, t.ID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	return t, nil
}

// Close finalizes a ticket. Closing is a distinct operation rather than a
// status update: it stamps closed_at and cuts off all guest access at once.
func (s *Service) Close(ctx context.Context, access *tenant.Access, ticketID uuid.UUID) (*models.Ticket, error) {
	t, err := s.Get(ctx, access, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Status == models.TicketClosed {
		return t, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`UPDATE tickets SET status = $1, closed_at = now(), updated_at = now()
		 WHERE id = $2 RETURNING status, closed_at, updated_at`,
		models.TicketClosed, t.ID,
	).Scan(&t.Status, &t.ClosedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("close ticket: %w", err)
	}

	// Guests lose entry the moment the ticket closes.
	if _, err := tx.Exec(ctx,
		`UPDATE external_participants SET is_active = false WHERE ticket_id = $1`, t.ID); err != nil {
		return nil, fmt.Errorf("deactivate participants: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit close: %w", err)
	}

	slog.Info("ticket closed", "ticket_id", t.ID, "by", access.User.ID)
	s.events.TicketEvent(ctx, t.OrganizationID, "ticket.closed", t)
	return t, nil
}

func (s *Service) AddComment(ctx context.Context, access *tenant.Access, ticketID uuid.UUID, body string) (*models.TicketComment, error) {
	t, err := s.Get(ctx, access, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Status == models.TicketClosed {
		return nil, ErrTicketClosed
	}
	return s.insertComment(ctx, t, &access.User.ID, nil, body)
}

func (s *Service) ListComments(ctx context.Context, access *tenant.Access, ticketID uuid.UUID) ([]models.TicketComment, error) {
	if _, err := s.Get(ctx, access, ticketID); err != nil {
		return nil, err
	}
	return s.commentsFor(ctx, ticketID)
}

type ParticipantInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// InviteParticipant registers a guest on the ticket and mints a magic link
// token, returned in plaintext exactly once.
func (s *Service) InviteParticipant(ctx context.Context, access *tenant.Access, ticketID uuid.UUID, in ParticipantInput) (*models.ExternalParticipant, string, error) {
	t, err := s.Get(ctx, access, ticketID)
	if err != nil {
		return nil, "", err
	}
	if t.Status == models.TicketClosed {
		return nil, "", ErrTicketClosed
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !strings.Contains(email, "@") {
		return nil, "", errors.New("a valid email is required")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("generate magic link token: %w", err)
	}
	linkToken := hex.EncodeToString(raw)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	p := &models.ExternalParticipant{
		ID:        uuid.New(),
		TicketID:  t.ID,
		Email:     email,
		Name:      in.Name,
		IsActive:  true,
		InvitedBy: access.User.ID,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO external_participants (id, ticket_id, email, name, is_active, invited_by)
		 VALUES ($1, $2, $3, $4, true, $5)
		 ON CONFLICT (ticket_id, email)
		 DO UPDATE SET is_active = true, name = EXCLUDED.name
		 RETURNING id, created_at`,
		p.ID, p.TicketID, p.Email, p.Name, p.InvitedBy,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("insert participant: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO magic_links (id, token_hash, guest_email, ticket_id, created_by, expires_at, max_uses, use_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0)`,
		uuid.New(), auth.HashToken(linkToken), email, t.ID, access.User.ID,
		time.Now().Add(defaultMagicLinkTTL), 3,
	)
	if err != nil {
		return nil, "", fmt.Errorf("insert magic link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("commit invite: %w", err)
	}

	slog.Info("participant invited",
		"ticket_id", t.ID, "email", email, "invited_by", access.User.ID)
	return p, linkToken, nil
}

// RevokeParticipant cuts a guest off immediately. Outstanding guest tokens
// keep verifying cryptographically but fail the active-participant check.
func (s *Service) RevokeParticipant(ctx context.Context, access *tenant.Access, ticketID, participantID uuid.UUID) error {
	if _, err := s.Get(ctx, access, ticketID); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE external_participants SET is_active = false WHERE id = $1 AND ticket_id = $2`,
		participantID, ticketID,
	)
	if err != nil {
		return fmt.Errorf("revoke participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	slog.Info("participant revoked",
		"ticket_id", ticketID, "participant_id", participantID, "by", access.User.ID)
	return nil
}

// RedeemMagicLink exchanges a magic link token for a guest access token.
// Links are use-counted and expire; each redemption is recorded atomically
// so a link can never exceed max_uses under concurrent redemption.
func (s *Service) RedeemMagicLink(ctx context.Context, linkToken string) (string, *models.ExternalParticipant, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	link := &models.MagicLink{}
	err = tx.QueryRow(ctx,
		`SELECT id, guest_email, ticket_id, expires_at, max_uses, use_count
		 FROM magic_links WHERE token_hash = $1 FOR UPDATE`,
		auth.HashToken(linkToken),
	).Scan(&link.ID, &link.GuestEmail, &link.TicketID, &link.ExpiresAt, &link.MaxUses, &link.UseCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrLinkInvalid
	}
	if err != nil {
		return "", nil, fmt.Errorf("load magic link: %w", err)
	}

	if time.Now().After(link.ExpiresAt) || link.UseCount >= link.MaxUses {
		return "", nil, ErrLinkInvalid
	}

	t, err := s.byID(ctx, link.TicketID)
	if err != nil {
		return "", nil, ErrLinkInvalid
	}
	if t.Status == models.TicketClosed {
		return "", nil, ErrTicketClosed
	}

	p := &models.ExternalParticipant{}
	err = tx.QueryRow(ctx,
		`SELECT id, ticket_id, email, name, is_active, invited_by, created_at
		 FROM external_participants WHERE ticket_id = $1 AND email = $2`,
		link.TicketID, link.GuestEmail,
	).Scan(&p.ID, &p.TicketID, &p.Email, &p.Name, &p.IsActive, &p.InvitedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrLinkInvalid
	}
	if err != nil {
		return "", nil, fmt.Errorf("load participant: %w", err)
	}
	if !p.IsActive {
		return "", nil, ErrParticipantGone
	}

	_, err = tx.Exec(ctx,
		`UPDATE magic_links SET use_count = use_count + 1, used_at = now() WHERE id = $1`, link.ID,
	)
	if err != nil {
		return "", nil, fmt.Errorf("record redemption: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", nil, fmt.Errorf("commit redemption: %w", err)
	}

	guestToken, err := s.guestCodec.Issue(p.ID, p.TicketID)
	if err != nil {
		return "", nil, err
	}

	slog.Info("magic link redeemed", "ticket_id", p.TicketID, "participant_id", p.ID)
	return guestToken, p, nil
}

// GuestComment posts on behalf of an authenticated guest. The ticket is
// taken from the guest context, never from the request.
func (s *Service) GuestComment(ctx context.Context, guest *tenant.Guest, body string) (*models.TicketComment, error) {
	if guest.Ticket.Status == models.TicketClosed {
		return nil, ErrTicketClosed
	}
	return s.insertComment(ctx, guest.Ticket, nil, &guest.Participant.ID, body)
}

func (s *Service) GuestView(ctx context.Context, guest *tenant.Guest) (*models.Ticket, []models.TicketComment, error) {
	comments, err := s.commentsFor(ctx, guest.Ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return guest.Ticket, comments, nil
}

// ParticipantByID and TicketByID serve the guest authentication middleware.
func (s *Service) ParticipantByID(ctx context.Context, id uuid.UUID) (*models.ExternalParticipant, error) {
	p := &models.ExternalParticipant{}
	err := s.db.QueryRow(ctx,
		`SELECT id, ticket_id, email, name, is_active, invited_by, created_at
		 FROM external_participants WHERE id = $1`, id,
	).Scan(&p.ID, &p.TicketID, &p.Email, &p.Name, &p.IsActive, &p.InvitedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	return p, nil
}

func (s *Service) TicketByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	return s.byID(ctx, id)
}

func (s *Service) byID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	t := &models.Ticket{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, project_id, title, description, status, created_by, assigned_to, closed_at, created_at, updated_at
		 FROM tickets WHERE id = $1`, id,
	).Scan(&t.ID, &t.OrganizationID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.CreatedBy, &t.AssignedTo, &t.ClosedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	return t, nil
}

func (s *Service) insertComment(ctx context.Context, t *models.Ticket, authorID, guestID *uuid.UUID, body string) (*models.TicketComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errors.New("comment body is required")
	}
	if len(body) > maxCommentBodyBytes {
		return nil, ErrCommentTooLarge
	}

	c := &models.TicketComment{
		ID:       uuid.New(),
		TicketID: t.ID,
		AuthorID: authorID,
		GuestID:  guestID,
		Body:     body,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO ticket_comments (id, ticket_id, author_id, guest_id, body)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		c.ID, c.TicketID, c.AuthorID, c.GuestID, c.Body,
	).Scan(&c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	s.events.TicketEvent(ctx, t.OrganizationID, "ticket.commented", c)
	return c, nil
}

func (s *Service) commentsFor(ctx context.Context, ticketID uuid.UUID) ([]models.TicketComment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, ticket_id, author_id, guest_id, body, created_at
		 FROM ticket_comments WHERE ticket_id = $1 ORDER BY created_at`,
		ticketID,
	)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.TicketComment
	for rows.Next() {
		var c models.TicketComment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.GuestID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}
