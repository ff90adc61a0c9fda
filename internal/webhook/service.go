package webhook

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
)

var ErrNotFound = errors.New("webhook not found")

// KnownEvents lists the event names an organization can subscribe to.
func KnownEvents() []string {
	return []string{
		"revision.changed",
		"scrape.failed",
		"ticket.created",
		"ticket.commented",
		"ticket.closed",
	}
}

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type CreateInput struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

func (in *CreateInput) Validate() error {
	u, err := url.Parse(in.URL)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return errors.New("url must be a valid https URL")
	}
	if len(in.Events) == 0 {
		return errors.New("at least one event is required")
	}
	known := make(map[string]bool)
	for _, e := range KnownEvents() {
		known[e] = true
	}
	for _, e := range in.Events {
		if !known[e] {
			return fmt.Errorf("unknown event %q", e)
		}
	}
	return nil
}

// Create registers an endpoint and returns the signing secret exactly once.
func (s *Service) Create(ctx context.Context, access *tenant.Access, in CreateInput) (*models.Webhook, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate webhook secret: %w", err)
	}

	events, err := json.Marshal(in.Events)
	if err != nil {
		return nil, fmt.Errorf("marshal events: %w", err)
	}

	w := &models.Webhook{
		ID:             uuid.New(),
		OrganizationID: access.OrganizationID,
		URL:            in.URL,
		Events:         events,
		Secret:         hex.EncodeToString(raw),
		IsActive:       true,
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO webhooks (id, organization_id, url, events, secret, is_active)
		 VALUES ($1, $2, $3, $4, $5, true) RETURNING created_at`,
		w.ID, w.OrganizationID, w.URL, w.Events, w.Secret,
	).Scan(&w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert webhook: %w", err)
	}
	return w, nil
}

func (s *Service) List(ctx context.Context, access *tenant.Access) ([]models.Webhook, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, organization_id, url, events, is_active, created_at
		 FROM webhooks WHERE organization_id = $1 ORDER BY created_at`,
		access.OrganizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []models.Webhook
	for rows.Next() {
		var w models.Webhook
		if err := rows.Scan(&w.ID, &w.OrganizationID, &w.URL, &w.Events, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		hooks = append(hooks, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhooks: %w", err)
	}
	return hooks, nil
}

func (s *Service) Delete(ctx context.Context, access *tenant.Access, webhookID uuid.UUID) error {
	var orgID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT organization_id FROM webhooks WHERE id = $1`, webhookID).Scan(&orgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load webhook: %w", err)
	}
	if err := access.Verify(orgID); err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `DELETE FROM webhooks WHERE id = $1`, webhookID)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}
