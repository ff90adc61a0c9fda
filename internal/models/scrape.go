package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description,omitempty" db:"description"`
	CreatedBy      uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

type Jurisdiction struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	ProjectID      uuid.UUID `json:"project_id" db:"project_id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description,omitempty" db:"description"`
	Guidance       string    `json:"guidance,omitempty" db:"guidance"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type Source struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	JurisdictionID uuid.UUID  `json:"jurisdiction_id" db:"jurisdiction_id"`
	URL            string     `json:"url" db:"url"`
	Title          string     `json:"title,omitempty" db:"title"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	LastScrapedAt  *time.Time `json:"last_scraped_at,omitempty" db:"last_scraped_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

type ScrapeJobStatus string

const (
	ScrapeJobQueued    ScrapeJobStatus = "queued"
	ScrapeJobRunning   ScrapeJobStatus = "running"
	ScrapeJobSucceeded ScrapeJobStatus = "succeeded"
	ScrapeJobFailed    ScrapeJobStatus = "failed"
)

type ScrapeJob struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrganizationID uuid.UUID       `json:"organization_id" db:"organization_id"`
	SourceID       uuid.UUID       `json:"source_id" db:"source_id"`
	Status         ScrapeJobStatus `json:"status" db:"status"`
	Error          string          `json:"error,omitempty" db:"error"`
	TriggeredBy    *uuid.UUID      `json:"triggered_by,omitempty" db:"triggered_by"`
	StartedAt      *time.Time      `json:"started_at,omitempty" db:"started_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty" db:"finished_at"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Revision is one captured snapshot of a source. A new revision is stored
// only when the content hash differs from the previous one.
type Revision struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrganizationID uuid.UUID       `json:"organization_id" db:"organization_id"`
	SourceID       uuid.UUID       `json:"source_id" db:"source_id"`
	ContentHash    string          `json:"content_hash" db:"content_hash"`
	Content        string          `json:"content,omitempty" db:"content"`
	Summary        string          `json:"summary,omitempty" db:"summary"`
	Metadata       json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	ScrapedAt      time.Time       `json:"scraped_at" db:"scraped_at"`
}
