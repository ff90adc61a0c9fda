package tenant

import (
	"github.com/google/uuid"

	"github.com/legalwatchdog/platform/internal/auth"
	"github.com/legalwatchdog/platform/internal/models"
)

// Access is the immutable result of resolving a principal's membership in
// one organization. It is built once per request and carried through the
// rest of handling; nothing re-queries membership after this point. User is
// always set: bearer access resolves the principal, API key access resolves
// the key's owner (a key without an active owner is rejected upstream).
// Membership and Role are nil for API key access.
type Access struct {
	User           *models.User
	OrganizationID uuid.UUID
	Membership     *models.Membership
	Role           *models.Role
	Permissions    auth.PermissionSet
}

// Verify re-checks a fetched resource against the tenant boundary. Even
// after membership is confirmed, a resource's recorded organization can
// diverge from the path (stale ids, soft-deleted parents), so every loaded
// resource is compared before being returned or mutated.
func (a *Access) Verify(resourceOrgID uuid.UUID) error {
	if resourceOrgID != a.OrganizationID {
		return auth.Forbidden("access denied: resource belongs to a different organization")
	}
	return nil
}

func (a *Access) Can(p auth.Permission) bool {
	return a.Permissions.Has(p)
}
