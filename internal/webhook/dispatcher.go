package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dispatcher delivers organization webhooks. Deliveries run on a background
// loop so event producers never block on a slow endpoint.
type Dispatcher struct {
	db         *pgxpool.Pool
	httpClient *http.Client
	deliveries chan delivery
}

type delivery struct {
	WebhookID uuid.UUID
	URL       string
	Secret    string
	Event     string
	Payload   []byte
}

func NewDispatcher(db *pgxpool.Pool) *Dispatcher {
	d := &Dispatcher{
		db: db,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		deliveries: make(chan delivery, 1000),
	}
	go d.processLoop()
	return d
}

// DispatchEvent fans an event out to every active webhook of the
// organization subscribed to it.
func (d *Dispatcher) DispatchEvent(ctx context.Context, orgID uuid.UUID, event string, payload interface{}) {
	body, err := json.Marshal(map[string]interface{}{
		"event":           event,
		"organization_id": orgID,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"data":            payload,
	})
	if err != nil {
		slog.Error("webhook payload marshal failed", "event", event, "error", err)
		return
	}

	rows, err := d.db.Query(ctx,
		`SELECT id, url, secret FROM webhooks
		 WHERE organization_id = $1 AND is_active = true AND events ? $2`,
		orgID, event,
	)
	if err != nil {
		slog.Error("webhook lookup failed", "organization_id", orgID, "event", event, "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var del delivery
		if err := rows.Scan(&del.WebhookID, &del.URL, &del.Secret); err != nil {
			slog.Error("webhook scan failed", "error", err)
			continue
		}
		del.Event = event
		del.Payload = body

		select {
		case d.deliveries <- del:
		default:
			slog.Warn("webhook delivery queue full, dropping", "webhook_id", del.WebhookID, "event", event)
		}
	}
	if err := rows.Err(); err != nil {
		slog.Error("webhook iteration failed", "organization_id", orgID, "event", event, "error", err)
	}
}

func (d *Dispatcher) processLoop() {
	for del := range d.deliveries {
		d.deliver(del)
	}
}

func (d *Dispatcher) deliver(del delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, del.URL, bytes.NewReader(del.Payload))
	if err != nil {
		slog.Error("webhook request creation failed", "webhook_id", del.WebhookID, "error", err)
		d.recordDelivery(ctx, del, 0, err)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", del.Event)
	req.Header.Set("X-Webhook-Signature", Sign(del.Payload, del.Secret))
	req.Header.Set("X-Webhook-ID", del.WebhookID.String())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		slog.Error("webhook delivery failed", "webhook_id", del.WebhookID, "error", err)
		d.recordDelivery(ctx, del, 0, err)
		return
	}
	defer resp.Body.Close()

	d.recordDelivery(ctx, del, resp.StatusCode, nil)

	if resp.StatusCode >= 400 {
		slog.Warn("webhook received non-success response", "webhook_id", del.WebhookID, "status", resp.StatusCode)
	}
}

func (d *Dispatcher) recordDelivery(ctx context.Context, del delivery, status int, deliveryErr error) {
	var deliveredAt *time.Time
	if deliveryErr == nil && status < 400 {
		now := time.Now()
		deliveredAt = &now
	}

	_, err := d.db.Exec(ctx,
		`INSERT INTO webhook_deliveries (id, webhook_id, event, payload, response_status, attempts, delivered_at)
		 VALUES ($1, $2, $3, $4, $5, 1, $6)`,
		uuid.New(), del.WebhookID, del.Event, del.Payload, status, deliveredAt,
	)
	if err != nil {
		slog.Error("failed to record webhook delivery", "webhook_id", del.WebhookID, "error", err)
	}
}

// Sign computes the signature receivers verify: HMAC-SHA256 of the raw body
// keyed by the webhook secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}
