package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/auth"
	"github.com/legalwatchdog/platform/internal/tenant"
)

// Chain wires the authorization pipeline into chi middleware. Stages run in
// a fixed order: Authenticate, then RequireOrg for organization-scoped
// routes, then a permission gate. Each stage fails fast; a later stage never
// runs after an earlier denial.
type Chain struct {
	resolver *auth.Resolver
}

func NewChain(resolver *auth.Resolver) *Chain {
	return &Chain{resolver: resolver}
}

// Authenticate resolves the bearer credential into a principal and stores
// it in the request context.
func (c *Chain) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// An earlier stage (API key auth) may have established access already.
		if tenant.AccessFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		raw := extractBearerToken(r)
		if raw == "" {
			respond.Failure(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		user, _, err := c.resolver.ResolvePrincipal(r.Context(), raw)
		if err != nil {
			respond.Error(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(tenant.WithUser(r.Context(), user)))
	})
}

// RequireOrg resolves the principal's membership in the organization named
// by the route path. The id is read from the path only; body-supplied org
// ids are never trusted (services cross-check them via Access.Verify).
func (c *Chain) RequireOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID, err := uuid.Parse(chi.URLParam(r, "organization_id"))
		if err != nil {
			// Malformed ids never reach the database.
			respond.Failure(w, http.StatusBadRequest, "invalid organization id")
			return
		}

		// API key access is already scoped to one organization; the path
		// must name that organization.
		if access := tenant.AccessFromContext(r.Context()); access != nil {
			if access.OrganizationID != orgID {
				respond.Failure(w, http.StatusForbidden, "API key does not belong to this organization")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		user := tenant.UserFromContext(r.Context())
		if user == nil {
			respond.Failure(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		membership, role, perms, err := c.resolver.ResolveMembership(r.Context(), user, orgID)
		if err != nil {
			respond.Error(w, err)
			return
		}

		access := &tenant.Access{
			User:           user,
			OrganizationID: orgID,
			Membership:     membership,
			Role:           role,
			Permissions:    perms,
		}
		next.ServeHTTP(w, r.WithContext(tenant.WithAccess(r.Context(), access)))
	})
}

// RequirePermission gates a route on one capability flag of the resolved
// tenant role.
func (c *Chain) RequirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access := tenant.AccessFromContext(r.Context())
			if access == nil {
				respond.Failure(w, http.StatusForbidden, "no organization context")
				return
			}
			if !access.Can(perm) {
				slog.Warn("permission denied",
					"actor", actorLabel(access),
					"organization_id", access.OrganizationID,
					"permission", string(perm), "path", r.URL.Path)
				respond.Denial(w, auth.MissingPermissions(perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission passes when at least one flag is granted. The denial
// message lists every permission that was checked, not just one.
func (c *Chain) RequireAnyPermission(perms ...auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access := tenant.AccessFromContext(r.Context())
			if access == nil {
				respond.Failure(w, http.StatusForbidden, "no organization context")
				return
			}
			if !access.Permissions.HasAny(perms...) {
				slog.Warn("permission denied",
					"actor", actorLabel(access),
					"organization_id", access.OrganizationID, "path", r.URL.Path)
				respond.Denial(w, auth.MissingPermissions(perms...))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireBillingAdmin is the permission gate pinned to billing management,
// layered on top of the tenant resolver.
func (c *Chain) RequireBillingAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access := tenant.AccessFromContext(r.Context())
		if access == nil {
			respond.Failure(w, http.StatusForbidden, "no organization context")
			return
		}
		if !access.Can(auth.PermManageBilling) {
			slog.Warn("billing admin denied",
				"actor", actorLabel(access), "organization_id", access.OrganizationID)
			respond.Failure(w, http.StatusForbidden, "not allowed to manage billing")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actorLabel identifies the caller in logs. API key access carries no user.
func actorLabel(access *tenant.Access) string {
	if access.User != nil {
		return access.User.Email
	}
	return "api-key"
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
