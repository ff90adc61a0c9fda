package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalwatchdog/platform/internal/auth"
	"github.com/legalwatchdog/platform/internal/cache"
	"github.com/legalwatchdog/platform/internal/models"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRateLimited        = errors.New("too many login attempts")
)

// Mailer enqueues outbound mail. Satisfied by the task queue client so the
// request path never blocks on SMTP.
type Mailer interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

type Service struct {
	db          *pgxpool.Pool
	cache       *cache.Cache
	codec       *auth.TokenCodec
	revocations *auth.RevocationStore
	mailer      Mailer

	loginMaxPerMin int
	otpTTL         time.Duration
	trialDays      int
}

func NewService(db *pgxpool.Pool, c *cache.Cache, codec *auth.TokenCodec, rev *auth.RevocationStore, mailer Mailer, loginMaxPerMin, otpExpiryMins, trialDays int) *Service {
	return &Service{
		db:             db,
		cache:          c,
		codec:          codec,
		revocations:    rev,
		mailer:         mailer,
		loginMaxPerMin: loginMaxPerMin,
		otpTTL:         time.Duration(otpExpiryMins) * time.Minute,
		trialDays:      trialDays,
	}
}

type RegisterInput struct {
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	FullName         string `json:"full_name"`
	Password         string `json:"password"`
}

func (in *RegisterInput) Validate() error {
	if strings.TrimSpace(in.OrganizationName) == "" {
		return errors.New("organization_name is required")
	}
	if !strings.Contains(in.Email, "@") {
		return errors.New("a valid email is required")
	}
	if len(in.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// Register creates an organization with its four template roles, the owner
// user holding the admin role, an active membership, and a trialing billing
// account. Everything commits or nothing does.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, *models.Organization, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists); err != nil {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, nil, ErrEmailTaken
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	org := &models.Organization{ID: uuid.New(), Name: in.OrganizationName, Email: email}
	err = tx.QueryRow(ctx,
		`INSERT INTO organizations (id, name, email, settings) VALUES ($1, $2, $3, '{}')
		 RETURNING created_at, updated_at`,
		org.ID, org.Name, org.Email,
	).Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert organization: %w", err)
	}

	var adminRoleID uuid.UUID
	for name, perms := range auth.RoleTemplates() {
		permsJSON, err := perms.MarshalJSON()
		if err != nil {
			return nil, nil, fmt.Errorf("marshal %s permissions: %w", name, err)
		}
		roleID := uuid.New()
		_, err = tx.Exec(ctx,
			`INSERT INTO roles (id, organization_id, name, description, permissions)
			 VALUES ($1, $2, $3, $4, $5)`,
			roleID, org.ID, name, name+" role", permsJSON,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("insert role %s: %w", name, err)
		}
		if name == "admin" {
			adminRoleID = roleID
		}
	}

	user := &models.User{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		RoleID:         adminRoleID,
		Email:          email,
		FullName:       in.FullName,
		HashedPassword: hashed,
		IsActive:       true,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO users (id, organization_id, role_id, email, full_name, hashed_password, is_active, is_verified)
		 VALUES ($1, $2, $3, $4, $5, $6, true, false)
		 RETURNING created_at, updated_at`,
		user.ID, user.OrganizationID, user.RoleID, user.Email, user.FullName, user.HashedPassword,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO user_organizations (id, user_id, organization_id, role_id, is_active)
		 VALUES ($1, $2, $3, $4, true)`,
		uuid.New(), user.ID, org.ID, adminRoleID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert membership: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO billing_accounts (id, organization_id, status, trial_ends_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New(), org.ID, models.BillingTrialing, time.Now().AddDate(0, 0, s.trialDays),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert billing account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit registration: %w", err)
	}

	if err := s.sendOTP(ctx, user); err != nil {
		// Registration already committed; verification can be re-requested.
		slog.Warn("failed to send verification code", "user_id", user.ID, "error", err)
	}

	slog.Info("organization registered", "organization_id", org.ID, "owner_id", user.ID)
	return user, org, nil
}

type LoginResult struct {
	Token     string       `json:"access_token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"`
	User      *models.User `json:"user"`
}

// Login verifies credentials and issues an access token. Attempts are
// throttled per email before the password is ever checked.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if !s.cache.Allow(ctx, "login:attempts:"+email, s.loginMaxPerMin, time.Minute) {
		return nil, ErrRateLimited
	}

	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, role_id, email, full_name, hashed_password, is_active, is_verified, created_at, updated_at
		 FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.OrganizationID, &user.RoleID, &user.Email, &user.FullName,
		&user.HashedPassword, &user.IsActive, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Burn a comparison anyway so timing does not reveal which emails exist.
		auth.CheckPassword("$2a$10$000000000000000000000u0000000000000000000000000000000", password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !auth.CheckPassword(user.HashedPassword, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	token, _, err := s.codec.Issue(user.ID, user.OrganizationID, user.RoleID)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", "user_id", user.ID, "organization_id", user.OrganizationID)
	return &LoginResult{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(s.codec.TTL().Seconds()),
		User:      user,
	}, nil
}

// Logout denylists the presented token for its remaining lifetime. Works on
// expired tokens too: the jti is read without signature validation, and an
// already-dead token simply gets a zero TTL no-op.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	jti := s.codec.UnverifiedJTI(rawToken)
	if jti == "" {
		return nil
	}
	return s.revocations.Revoke(ctx, jti, s.codec.RemainingTTL(rawToken))
}

// RequestVerification re-issues an email verification code. Always reports
// success to the caller regardless of whether the email exists.
func (s *Service) RequestVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`SELECT id, email, is_verified FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Email, &user.IsVerified)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && user.IsVerified) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	return s.sendOTP(ctx, user)
}

// VerifyEmail consumes the code and marks the user verified.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.New("invalid verification code")
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	ok, err := s.cache.ConsumeOTP(ctx, userID.String(), code)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("invalid verification code")
	}

	_, err = s.db.Exec(ctx, `UPDATE users SET is_verified = true, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	slog.Info("email verified", "user_id", userID)
	return nil
}

func (s *Service) sendOTP(ctx context.Context, user *models.User) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.cache.SetOTP(ctx, user.ID.String(), code, s.otpTTL); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return s.mailer.EnqueueEmail(ctx, user.Email,
		"Verify your email",
		fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.otpTTL.Minutes())),
	)
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
