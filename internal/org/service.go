package org

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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalwatchdog/platform/internal/auth"
	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrRoleInUse         = errors.New("role is assigned to members")
	ErrRoleNameTaken     = errors.New("a role with this name already exists")
	ErrLastAdmin         = errors.New("organization must keep at least one active admin")
	ErrInvitationInvalid = errors.New("invitation is invalid or expired")
)

const invitationTTL = 7 * 24 * time.Hour

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

func (s *Service) Get(ctx context.Context, access *tenant.Access) (*models.Organization, error) {
	org := &models.Organization{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, email, settings, created_at, updated_at FROM organizations WHERE id = $1`,
		access.OrganizationID,
	).Scan(&org.ID, &org.Name, &org.Email, &org.Settings, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	return org, nil
}

type Member struct {
	models.User
	MembershipID uuid.UUID `json:"membership_id"`
	RoleName     string    `json:"role_name"`
	MemberActive bool      `json:"membership_active"`
}

func (s *Service) ListMembers(ctx context.Context, access *tenant.Access) ([]Member, error) {
	rows, err := s.db.Query(ctx,
		`SELECT u.id, u.email, u.full_name, u.is_active, u.is_verified, u.created_at,
		        m.id, m.role_id, r.name, m.is_active
		 FROM user_organizations m
		 JOIN users u ON u.id = m.user_id
		 JOIN roles r ON r.id = m.role_id
		 WHERE m.organization_id = $1
		 ORDER BY u.created_at`,
		access.OrganizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Email, &m.FullName, &m.IsActive, &m.IsVerified, &m.CreatedAt,
			&m.MembershipID, &m.RoleID, &m.RoleName, &m.MemberActive); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.OrganizationID = access.OrganizationID
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// DeactivateMember disables the user's membership. The last active holder of
// a role granting manage_users cannot be removed, so the organization never
// locks itself out.
func (s *Service) DeactivateMember(ctx context.Context, access *tenant.Access, userID uuid.UUID) error {
	if userID == access.User.ID {
		return ErrLastAdmin
	}

	var admins int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_organizations m
		 JOIN roles r ON r.id = m.role_id
		 WHERE m.organization_id = $1 AND m.is_active = true
		   AND (r.permissions->>'manage_users')::boolean = true
		   AND m.user_id <> $2`,
		access.OrganizationID, userID,
	).Scan(&admins)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins == 0 {
		return ErrLastAdmin
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE user_organizations SET is_active = false
		 WHERE user_id = $1 AND organization_id = $2`,
		userID, access.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("deactivate membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	slog.Info("membership deactivated",
		"organization_id", access.OrganizationID, "user_id", userID, "by", access.User.ID)
	return nil
}

// AssignRole changes a member's role within the organization. The role must
// belong to the same organization.
func (s *Service) AssignRole(ctx context.Context, access *tenant.Access, userID, roleID uuid.UUID) error {
	role, err := s.GetRole(ctx, access, roleID)
	if err != nil {
		return err
	}
	if err := access.Verify(role.OrganizationID); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE user_organizations SET role_id = $1
		 WHERE user_id = $2 AND organization_id = $3 AND is_active = true`,
		roleID, userID, access.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ListRoles(ctx context.Context, access *tenant.Access) ([]models.Role, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, organization_id, name, description, permissions, created_at
		 FROM roles WHERE organization_id = $1 ORDER BY name`,
		access.OrganizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.OrganizationID, &r.Name, &r.Description, &r.Permissions, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func (s *Service) GetRole(ctx context.Context, access *tenant.Access, roleID uuid.UUID) (*models.Role, error) {
	r := &models.Role{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, name, description, permissions, created_at
		 FROM roles WHERE id = $1`, roleID,
	).Scan(&r.ID, &r.OrganizationID, &r.Name, &r.Description, &r.Permissions, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load role: %w", err)
	}
	if err := access.Verify(r.OrganizationID); err != nil {
		return nil, err
	}
	return r, nil
}

type RoleInput struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Permissions auth.PermissionSet `json:"permissions"`
}

func (in *RoleInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

func (s *Service) CreateRole(ctx context.Context, access *tenant.Access, in RoleInput) (*models.Role, error) {
	permsJSON, err := in.Permissions.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal permissions: %w", err)
	}

	r := &models.Role{
		ID:             uuid.New(),
		OrganizationID: access.OrganizationID,
		Name:           in.Name,
		Description:    in.Description,
		Permissions:    permsJSON,
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO roles (id, organization_id, name, description, permissions)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		r.ID, r.OrganizationID, r.Name, r.Description, r.Permissions,
	).Scan(&r.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrRoleNameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert role: %w", err)
	}
	return r, nil
}

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation, here only ever the (organization_id, name) key on roles.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Service) UpdateRole(ctx context.Context, access *tenant.Access, roleID uuid.UUID, in RoleInput) (*models.Role, error) {
	if _, err := s.GetRole(ctx, access, roleID); err != nil {
		return nil, err
	}

	permsJSON, err := in.Permissions.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal permissions: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE roles SET name = $1, description = $2, permissions = $3 WHERE id = $4`,
		in.Name, in.Description, permsJSON, roleID,
	)
	if isUniqueViolation(err) {
		return nil, ErrRoleNameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return s.GetRole(ctx, access, roleID)
}

// DeleteRole refuses while any membership still points at the role.
func (s *Service) DeleteRole(ctx context.Context, access *tenant.Access, roleID uuid.UUID) error {
	if _, err := s.GetRole(ctx, access, roleID); err != nil {
		return err
	}

	var inUse int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_organizations WHERE role_id = $1 AND is_active = true`, roleID,
	).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("count role use: %w", err)
	}
	if inUse > 0 {
		return ErrRoleInUse
	}

	_, err = s.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, roleID)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

type InviteInput struct {
	Email  string    `json:"email"`
	RoleID uuid.UUID `json:"role_id"`
}

// Invite creates a pending invitation and returns the raw token exactly
// once. Only its hash is stored.
func (s *Service) Invite(ctx context.Context, access *tenant.Access, in InviteInput) (*models.Invitation, string, error) {
	if _, err := s.GetRole(ctx, access, in.RoleID); err != nil {
		return nil, "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("generate invitation token: %w", err)
	}
	token := hex.EncodeToString(raw)

	inv := &models.Invitation{
		ID:             uuid.New(),
		OrganizationID: access.OrganizationID,
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		RoleID:         in.RoleID,
		InvitedBy:      access.User.ID,
		TokenHash:      auth.HashToken(token),
		Status:         models.InvitationPending,
		ExpiresAt:      time.Now().Add(invitationTTL),
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO invitations (id, organization_id, email, role_id, invited_by, token_hash, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`,
		inv.ID, inv.OrganizationID, inv.Email, inv.RoleID, inv.InvitedBy, inv.TokenHash, inv.Status, inv.ExpiresAt,
	).Scan(&inv.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("insert invitation: %w", err)
	}

	slog.Info("invitation created",
		"organization_id", inv.OrganizationID, "email", inv.Email, "invited_by", inv.InvitedBy)
	return inv, token, nil
}

type AcceptInput struct {
	Token    string `json:"token"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// Accept redeems an invitation token. An existing user gains a membership in
// the inviting organization; a new user account is created first. The
// invitation is single-use.
func (s *Service) Accept(ctx context.Context, in AcceptInput) (*models.User, error) {
	inv := &models.Invitation{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, email, role_id, status, expires_at
		 FROM invitations WHERE token_hash = $1`,
		auth.HashToken(in.Token),
	).Scan(&inv.ID, &inv.OrganizationID, &inv.Email, &inv.RoleID, &inv.Status, &inv.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvitationInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv.Status != models.InvitationPending || time.Now().After(inv.ExpiresAt) {
		return nil, ErrInvitationInvalid
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	user := &models.User{}
	err = tx.QueryRow(ctx,
		`SELECT id, organization_id, role_id, email, is_active, is_verified FROM users WHERE email = $1`, inv.Email,
	).Scan(&user.ID, &user.OrganizationID, &user.RoleID, &user.Email, &user.IsActive, &user.IsVerified)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if len(in.Password) < 8 {
			return nil, errors.New("password must be at least 8 characters")
		}
		hashed, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user = &models.User{
			ID:             uuid.New(),
			OrganizationID: inv.OrganizationID,
			RoleID:         inv.RoleID,
			Email:          inv.Email,
			FullName:       in.FullName,
			IsActive:       true,
			IsVerified:     true, // reaching the emailed token proves mailbox control
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO users (id, organization_id, role_id, email, full_name, hashed_password, is_active, is_verified)
			 VALUES ($1, $2, $3, $4, $5, $6, true, true)`,
			user.ID, user.OrganizationID, user.RoleID, user.Email, user.FullName, hashed,
		)
		if err != nil {
			return nil, fmt.Errorf("insert user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO user_organizations (id, user_id, organization_id, role_id, is_active)
		 VALUES ($1, $2, $3, $4, true)
		 ON CONFLICT (user_id, organization_id)
		 DO UPDATE SET role_id = EXCLUDED.role_id, is_active = true`,
		uuid.New(), user.ID, inv.OrganizationID, inv.RoleID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE invitations SET status = $1 WHERE id = $2`, models.InvitationAccepted, inv.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark invitation accepted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit accept: %w", err)
	}

	slog.Info("invitation accepted", "organization_id", inv.OrganizationID, "user_id", user.ID)
	return user, nil
}
