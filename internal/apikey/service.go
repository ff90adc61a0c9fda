package apikey

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

const keyPrefix = "lw_"

var ErrNotFound = errors.New("api key not found")

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type CreateInput struct {
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (in *CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	for _, s := range in.Scopes {
		if strings.TrimSpace(s) == "" {
			return errors.New("scopes must be non-empty strings")
		}
	}
	return nil
}

// Create mints a key and returns the plaintext exactly once. Only the sha256
// hash is stored; a lost key is rotated, never recovered.
func (s *Service) Create(ctx context.Context, access *tenant.Access, in CreateInput) (*models.APIKey, string, error) {
	plaintext, err := generateKey()
	if err != nil {
		return nil, "", err
	}

	key := &models.APIKey{
		ID:             uuid.New(),
		OrganizationID: access.OrganizationID,
		UserID:         &access.User.ID,
		KeyHash:        auth.HashToken(plaintext),
		Name:           in.Name,
		Scopes:         in.Scopes,
		ExpiresAt:      in.ExpiresAt,
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO api_keys (id, organization_id, user_id, key_hash, name, scopes, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		key.ID, key.OrganizationID, key.UserID, key.KeyHash, key.Name, key.Scopes, key.ExpiresAt,
	).Scan(&key.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("insert api key: %w", err)
	}

	slog.Info("api key created",
		"key_id", key.ID, "organization_id", key.OrganizationID, "created_by", access.User.ID)
	return key, plaintext, nil
}

func (s *Service) List(ctx context.Context, access *tenant.Access) ([]models.APIKey, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, organization_id, user_id, name, scopes, last_used_at, expires_at, revoked_at, created_at
		 FROM api_keys WHERE organization_id = $1 ORDER BY created_at DESC`,
		access.OrganizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	var keys []models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.OrganizationID, &k.UserID, &k.Name, &k.Scopes,
			&k.LastUsedAt, &k.ExpiresAt, &k.RevokedAt, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return keys, nil
}

func (s *Service) Revoke(ctx context.Context, access *tenant.Access, keyID uuid.UUID) error {
	var orgID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT organization_id FROM api_keys WHERE id = $1`, keyID).Scan(&orgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load api key: %w", err)
	}
	if err := access.Verify(orgID); err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, keyID,
	)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}

	slog.Info("api key revoked", "key_id", keyID, "by", access.User.ID)
	return nil
}

// Rotate revokes the old key and mints a replacement with the same name and
// scopes in one transaction.
func (s *Service) Rotate(ctx context.Context, access *tenant.Access, keyID uuid.UUID) (*models.APIKey, string, error) {
	old := &models.APIKey{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, user_id, name, scopes, expires_at FROM api_keys WHERE id = $1 AND revoked_at IS NULL`,
		keyID,
	).Scan(&old.ID, &old.OrganizationID, &old.UserID, &old.Name, &old.Scopes, &old.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("load api key: %w", err)
	}
	if err := access.Verify(old.OrganizationID); err != nil {
		return nil, "", err
	}

	plaintext, err := generateKey()
	if err != nil {
		return nil, "", err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE api_keys SET revoked_at = now() WHERE id = $1`, keyID); err != nil {
		return nil, "", fmt.Errorf("revoke old key: %w", err)
	}

	replacement := &models.APIKey{
		ID:             uuid.New(),
		OrganizationID: old.OrganizationID,
		UserID:         &access.User.ID,
		KeyHash:        auth.HashToken(plaintext),
		Name:           old.Name,
		Scopes:         old.Scopes,
		ExpiresAt:      old.ExpiresAt,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO api_keys (id, organization_id, user_id, key_hash, name, scopes, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		replacement.ID, replacement.OrganizationID, replacement.UserID, replacement.KeyHash,
		replacement.Name, replacement.Scopes, replacement.ExpiresAt,
	).Scan(&replacement.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("insert replacement key: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("commit rotation: %w", err)
	}

	slog.Info("api key rotated", "old_key_id", keyID, "new_key_id", replacement.ID, "by", access.User.ID)
	return replacement, plaintext, nil
}

// Lookup resolves a presented plaintext key for request authentication.
// Revoked and expired keys resolve to ErrNotFound; callers treat both the
// same as an unknown key.
func (s *Service) Lookup(ctx context.Context, plaintext string) (*models.APIKey, error) {
	if !strings.HasPrefix(plaintext, keyPrefix) {
		return nil, ErrNotFound
	}

	k := &models.APIKey{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, user_id, key_hash, name, scopes, last_used_at, expires_at, revoked_at, created_at
		 FROM api_keys WHERE key_hash = $1`,
		auth.HashToken(plaintext),
	).Scan(&k.ID, &k.OrganizationID, &k.UserID, &k.KeyHash, &k.Name, &k.Scopes,
		&k.LastUsedAt, &k.ExpiresAt, &k.RevokedAt, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}

	if k.RevokedAt != nil {
		return nil, ErrNotFound
	}
	if k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now()) {
		return nil, ErrNotFound
	}

	s.touch(k.ID)
	return k, nil
}

// touch records usage without holding up the request.
func (s *Service) touch(keyID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.db.Exec(ctx, `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, keyID); err != nil {
			slog.Warn("failed to record api key use", "key_id", keyID, "error", err)
		}
	}()
}

func generateKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return keyPrefix + hex.EncodeToString(raw), nil
}
