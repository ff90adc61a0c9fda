package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/auth"
	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
)

// KeyLookup resolves a presented plaintext key to its stored record.
type KeyLookup interface {
	Lookup(ctx context.Context, plaintext string) (*models.APIKey, error)
}

// APIKeyAuth authenticates machine callers by a header-presented key. A
// valid key yields organization access limited to the key's scopes; it never
// widens to the owning user's full role. A key is only as alive as its
// owner: every key is created by a user, and a deactivated or missing owner
// means a dead key, so downstream code can rely on Access.User being set.
type APIKeyAuth struct {
	keys   KeyLookup
	dir    auth.Directory
	header string
}

func NewAPIKeyAuth(keys KeyLookup, dir auth.Directory, header string) *APIKeyAuth {
	return &APIKeyAuth{keys: keys, dir: dir, header: header}
}

func (m *APIKeyAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(m.header)
		if presented == "" {
			// No key: fall through, a later stage may accept a bearer token.
			next.ServeHTTP(w, r)
			return
		}

		key, err := m.keys.Lookup(r.Context(), presented)
		if err != nil {
			respond.Failure(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		if key.UserID == nil {
			respond.Failure(w, http.StatusForbidden, "API key has no active owner")
			return
		}
		user, err := m.dir.UserByID(r.Context(), *key.UserID)
		if err != nil {
			if errors.Is(err, auth.ErrDirectoryNotFound) {
				respond.Failure(w, http.StatusForbidden, "API key has no active owner")
				return
			}
			respond.Error(w, auth.Integrity("api key owner lookup failed"))
			return
		}
		if !user.IsActive {
			respond.Failure(w, http.StatusForbidden, "API key has no active owner")
			return
		}

		perms := make(auth.PermissionSet, len(key.Scopes))
		for _, s := range key.Scopes {
			perms[auth.Permission(s)] = true
		}

		access := &tenant.Access{
			User:           user,
			OrganizationID: key.OrganizationID,
			Permissions:    perms,
		}

		ctx := tenant.WithAccess(r.Context(), access)
		ctx = tenant.WithUser(ctx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
