package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalwatchdog/platform/internal/models"
)

// PgDirectory implements Directory against the relational store.
type PgDirectory struct {
	db *pgxpool.Pool
}

func NewPgDirectory(db *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{db: db}
}

func (d *PgDirectory) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := d.db.QueryRow(ctx,
		`SELECT id, organization_id, role_id, email, full_name, hashed_password,
		        is_active, is_verified, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.OrganizationID, &u.RoleID, &u.Email, &u.FullName, &u.HashedPassword,
		&u.IsActive, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDirectoryNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (d *PgDirectory) RoleByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var r models.Role
	err := d.db.QueryRow(ctx,
		`SELECT id, organization_id, name, description, permissions, created_at
		 FROM roles WHERE id = $1`, id,
	).Scan(&r.ID, &r.OrganizationID, &r.Name, &r.Description, &r.Permissions, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDirectoryNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return &r, nil
}

func (d *PgDirectory) ActiveMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := d.db.QueryRow(ctx,
		`SELECT id, user_id, organization_id, role_id, is_active, created_at
		 FROM user_organizations
		 WHERE user_id = $1 AND organization_id = $2 AND is_active = true`,
		userID, orgID,
	).Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.RoleID, &m.IsActive, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDirectoryNotFound
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}
