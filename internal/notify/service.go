package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
	"github.com/legalwatchdog/platform/internal/webhook"
)

// Service records in-app notifications and fans events out to webhooks. It
// is the single place event producers call; they never talk to the webhook
// dispatcher directly.
type Service struct {
	db         *pgxpool.Pool
	dispatcher *webhook.Dispatcher
}

func NewService(db *pgxpool.Pool, dispatcher *webhook.Dispatcher) *Service {
	return &Service{db: db, dispatcher: dispatcher}
}

// RevisionChange notifies every active member of the organization that a
// monitored source changed.
func (s *Service) RevisionChange(ctx context.Context, orgID uuid.UUID, rev *models.Revision, sourceTitle string) {
	title := "Regulatory source changed"
	if sourceTitle != "" {
		title = fmt.Sprintf("%s changed", sourceTitle)
	}
	body := rev.Summary
	if body == "" {
		body = "A new revision was captured. Summary is not available yet."
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"revision_id": rev.ID,
		"source_id":   rev.SourceID,
	})

	s.broadcast(ctx, orgID, models.NotifyRevisionChange, title, body, payload)
	s.dispatcher.DispatchEvent(ctx, orgID, "revision.changed", map[string]interface{}{
		"revision_id":  rev.ID,
		"source_id":    rev.SourceID,
		"content_hash": rev.ContentHash,
		"summary":      rev.Summary,
		"scraped_at":   rev.ScrapedAt,
	})
}

func (s *Service) ScrapeFailure(ctx context.Context, orgID, sourceID uuid.UUID, reason string) {
	payload, _ := json.Marshal(map[string]interface{}{"source_id": sourceID, "reason": reason})

	s.broadcast(ctx, orgID, models.NotifyScrapeFailure,
		"Scrape failed", fmt.Sprintf("A monitored source could not be fetched: %s", reason), payload)
	s.dispatcher.DispatchEvent(ctx, orgID, "scrape.failed", map[string]interface{}{
		"source_id": sourceID,
		"reason":    reason,
	})
}

func (s *Service) TicketEvent(ctx context.Context, orgID uuid.UUID, event string, payload interface{}) {
	s.dispatcher.DispatchEvent(ctx, orgID, event, payload)
}

// broadcast inserts one notification per active member in a single
// statement.
func (s *Service) broadcast(ctx context.Context, orgID uuid.UUID, kind models.NotificationKind, title, body string, payload []byte) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO notifications (id, organization_id, user_id, kind, title, body, payload)
		 SELECT gen_random_uuid(), $1, m.user_id, $2, $3, $4, $5
		 FROM user_organizations m WHERE m.organization_id = $1 AND m.is_active = true`,
		orgID, kind, title, body, payload,
	)
	if err != nil {
		slog.Error("notification broadcast failed", "organization_id", orgID, "kind", kind, "error", err)
	}
}

func (s *Service) List(ctx context.Context, access *tenant.Access, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `SELECT id, organization_id, user_id, kind, title, body, payload, read_at, created_at
	          FROM notifications WHERE organization_id = $1 AND user_id = $2`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT $3`

	rows, err := s.db.Query(ctx, query, access.OrganizationID, access.User.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.OrganizationID, &n.UserID, &n.Kind, &n.Title, &n.Body,
			&n.Payload, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

func (s *Service) MarkRead(ctx context.Context, access *tenant.Access, notificationID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read_at = now()
		 WHERE id = $1 AND user_id = $2 AND organization_id = $3 AND read_at IS NULL`,
		notificationID, access.User.ID, access.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, access *tenant.Access) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read_at = now()
		 WHERE user_id = $1 AND organization_id = $2 AND read_at IS NULL`,
		access.User.ID, access.OrganizationID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}
