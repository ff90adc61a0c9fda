package models

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

type Ticket struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	OrganizationID uuid.UUID    `json:"organization_id" db:"organization_id"`
	ProjectID      *uuid.UUID   `json:"project_id,omitempty" db:"project_id"`
	Title          string       `json:"title" db:"title"`
	Description    string       `json:"description" db:"description"`
	Status         TicketStatus `json:"status" db:"status"`
	CreatedBy      uuid.UUID    `json:"created_by" db:"created_by"`
	AssignedTo     *uuid.UUID   `json:"assigned_to,omitempty" db:"assigned_to"`
	ClosedAt       *time.Time   `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

type TicketComment struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TicketID  uuid.UUID  `json:"ticket_id" db:"ticket_id"`
	AuthorID  *uuid.UUID `json:"author_id,omitempty" db:"author_id"`
	GuestID   *uuid.UUID `json:"guest_id,omitempty" db:"guest_id"`
	Body      string     `json:"body" db:"body"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// ExternalParticipant is a guest collaborator on a single ticket. Guests
// never hold memberships; their access is scoped by guest tokens.
type ExternalParticipant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TicketID  uuid.UUID `json:"ticket_id" db:"ticket_id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name,omitempty" db:"name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	InvitedBy uuid.UUID `json:"invited_by" db:"invited_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MagicLink grants time-boxed, use-counted guest entry to one ticket.
type MagicLink struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TokenHash  string     `json:"-" db:"token_hash"`
	GuestEmail string     `json:"guest_email" db:"guest_email"`
	TicketID   uuid.UUID  `json:"ticket_id" db:"ticket_id"`
	CreatedBy  uuid.UUID  `json:"created_by" db:"created_by"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	UsedAt     *time.Time `json:"used_at,omitempty" db:"used_at"`
	MaxUses    int        `json:"max_uses" db:"max_uses"`
	UseCount   int        `json:"use_count" db:"use_count"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
