package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotifyRevisionChange NotificationKind = "revision_change"
	NotifyScrapeFailure  NotificationKind = "scrape_failure"
	NotifyTicketEvent    NotificationKind = "ticket_event"
)

type Notification struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	OrganizationID uuid.UUID        `json:"organization_id" db:"organization_id"`
	UserID         uuid.UUID        `json:"user_id" db:"user_id"`
	Kind           NotificationKind `json:"kind" db:"kind"`
	Title          string           `json:"title" db:"title"`
	Body           string           `json:"body" db:"body"`
	Payload        json.RawMessage  `json:"payload,omitempty" db:"payload"`
	ReadAt         *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

type Webhook struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrganizationID uuid.UUID       `json:"organization_id" db:"organization_id"`
	URL            string          `json:"url" db:"url"`
	Events         json.RawMessage `json:"events" db:"events"`
	Secret         string          `json:"-" db:"secret"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
