package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/legalwatchdog/platform/internal/models"
)

// Directory is the narrow read surface the chain needs. The production
// implementation is pgx-backed; tests supply an in-memory fake.
type Directory interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	RoleByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	// ActiveMembership returns the membership for (user, org) only when it
	// exists and is active; an inactive membership reads as absent.
	ActiveMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error)
}

// ErrDirectoryNotFound must be returned by Directory implementations for
// absent rows so the resolver can distinguish "missing" from a query error.
var ErrDirectoryNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "auth: not found" }

// Resolver runs the authorization chain: codec, revocation store, principal
// lookup, role and membership resolution. Each stage is a predicate over the
// previous stage's output; there is no state between requests.
type Resolver struct {
	codec       *TokenCodec
	revocations *RevocationStore
	dir         Directory
}

func NewResolver(codec *TokenCodec, revocations *RevocationStore, dir Directory) *Resolver {
	return &Resolver{codec: codec, revocations: revocations, dir: dir}
}

func (r *Resolver) Codec() *TokenCodec { return r.codec }

// ResolvePrincipal authenticates a raw bearer credential.
//
// Order matters: decode, claims presence, revocation, user load, active,
// verified. A failure at any step short-circuits the rest.
func (r *Resolver) ResolvePrincipal(ctx context.Context, raw string) (*models.User, *Claims, error) {
	claims, err := r.codec.Decode(raw)
	if err != nil {
		if err == ErrTokenExpired {
			return nil, nil, Unauthenticated("token has expired")
		}
		return nil, nil, Unauthenticated("invalid token")
	}

	if claims.Subject == "" || claims.ID == "" {
		return nil, nil, Unauthenticated("invalid token payload")
	}

	revoked, err := r.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Fail closed: an unreachable revocation store must not let
		// possibly revoked tokens through.
		slog.Error("revocation check failed", "jti", claims.ID, "error", err)
		return nil, nil, Unauthenticated("could not validate credentials")
	}
	if revoked {
		slog.Warn("attempted use of revoked token", "jti", claims.ID, "sub", claims.Subject)
		return nil, nil, Unauthenticated("token has been revoked")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, nil, Unauthenticated("invalid token payload")
	}

	user, err := r.dir.UserByID(ctx, userID)
	if err != nil {
		// Only an absent row is the client's problem. A failed query must
		// not read as a credential failure.
		if !errors.Is(err, ErrDirectoryNotFound) {
			slog.Error("user lookup failed", "user_id", userID, "error", err)
			return nil, nil, Integrity("user lookup failed")
		}
		return nil, nil, Unauthenticated("user not found")
	}

	if !user.IsActive {
		slog.Warn("inactive account rejected", "user_id", user.ID, "email", user.Email)
		return nil, nil, Unauthenticated("user account is inactive")
	}
	if !user.IsVerified {
		// Distinct from inactive: verification is recoverable by the user.
		return nil, nil, Forbidden("email not verified")
	}

	return user, claims, nil
}

// ResolveRole loads the principal's primary role. A principal without a role
// is a data-integrity violation, not a client error.
func (r *Resolver) ResolveRole(ctx context.Context, user *models.User) (*models.Role, PermissionSet, error) {
	role, err := r.dir.RoleByID(ctx, user.RoleID)
	if err != nil {
		slog.Error("user references missing role", "user_id", user.ID, "role_id", user.RoleID)
		return nil, nil, Integrity("user role not found")
	}
	perms, err := ParsePermissions(role.Permissions)
	if err != nil {
		slog.Error("role has malformed permissions", "role_id", role.ID, "error", err)
		return nil, nil, Integrity("role permissions malformed")
	}
	return role, perms, nil
}

// ResolveMembership scopes the principal to one organization. The org id
// comes from the request path; missing and inactive memberships are
// deliberately indistinguishable to the client.
func (r *Resolver) ResolveMembership(ctx context.Context, user *models.User, orgID uuid.UUID) (*models.Membership, *models.Role, PermissionSet, error) {
	membership, err := r.dir.ActiveMembership(ctx, user.ID, orgID)
	if err != nil {
		if !errors.Is(err, ErrDirectoryNotFound) {
			slog.Error("membership lookup failed",
				"user_id", user.ID, "organization_id", orgID, "error", err)
			return nil, nil, nil, Integrity("membership lookup failed")
		}
		slog.Warn("membership denied",
			"user_id", user.ID, "email", user.Email, "organization_id", orgID)
		return nil, nil, nil, Forbidden("not a member of this organization")
	}

	role, err := r.dir.RoleByID(ctx, membership.RoleID)
	if err != nil {
		slog.Error("membership references missing role",
			"membership_id", membership.ID, "role_id", membership.RoleID)
		return nil, nil, nil, Integrity("membership role not found")
	}

	perms, err := ParsePermissions(role.Permissions)
	if err != nil {
		slog.Error("role has malformed permissions", "role_id", role.ID, "error", err)
		return nil, nil, nil, Integrity("role permissions malformed")
	}

	return membership, role, perms, nil
}
