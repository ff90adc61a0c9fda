package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalwatchdog/platform/internal/models"
)

// fakeDirectory is an in-memory Directory for resolver tests. The err
// fields simulate a backing store that cannot be queried at all.
type fakeDirectory struct {
	users       map[uuid.UUID]*models.User
	roles       map[uuid.UUID]*models.Role
	memberships map[string]*models.Membership // userID|orgID

	userErr       error
	membershipErr error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:       make(map[uuid.UUID]*models.User),
		roles:       make(map[uuid.UUID]*models.Role),
		memberships: make(map[string]*models.Membership),
	}
}

func (d *fakeDirectory) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if d.userErr != nil {
		return nil, d.userErr
	}
	u, ok := d.users[id]
	if !ok {
		return nil, ErrDirectoryNotFound
	}
	return u, nil
}

func (d *fakeDirectory) RoleByID(_ context.Context, id uuid.UUID) (*models.Role, error) {
	r, ok := d.roles[id]
	if !ok {
		return nil, ErrDirectoryNotFound
	}
	return r, nil
}

func (d *fakeDirectory) ActiveMembership(_ context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	if d.membershipErr != nil {
		return nil, d.membershipErr
	}
	m, ok := d.memberships[userID.String()+"|"+orgID.String()]
	if !ok || !m.IsActive {
		return nil, ErrDirectoryNotFound
	}
	return m, nil
}

func (d *fakeDirectory) addMember(user *models.User, orgID, roleID uuid.UUID) {
	d.memberships[user.ID.String()+"|"+orgID.String()] = &models.Membership{
		ID:             uuid.New(),
		UserID:         user.ID,
		OrganizationID: orgID,
		RoleID:         roleID,
		IsActive:       true,
	}
}

type resolverFixture struct {
	resolver *Resolver
	codec    *TokenCodec
	dir      *fakeDirectory
	user     *models.User
	orgID    uuid.UUID
	roleID   uuid.UUID
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	codec := NewTokenCodec("test-secret", "legalwatchdog", time.Hour)
	dir := newFakeDirectory()

	orgID := uuid.New()
	roleID := uuid.New()
	permsJSON, err := AdminPermissions().MarshalJSON()
	require.NoError(t, err)
	dir.roles[roleID] = &models.Role{
		ID:             roleID,
		OrganizationID: orgID,
		Name:           "admin",
		Permissions:    permsJSON,
	}

	user := &models.User{
		ID:             uuid.New(),
		OrganizationID: orgID,
		RoleID:         roleID,
		Email:          "owner@example.com",
		IsActive:       true,
		IsVerified:     true,
	}
	dir.users[user.ID] = user
	dir.addMember(user, orgID, roleID)

	return &resolverFixture{
		resolver: NewResolver(codec, NewRevocationStore(rdb), dir),
		codec:    codec,
		dir:      dir,
		user:     user,
		orgID:    orgID,
		roleID:   roleID,
	}
}

func (f *resolverFixture) token(t *testing.T) string {
	t.Helper()
	raw, _, err := f.codec.Issue(f.user.ID, f.orgID, f.roleID)
	require.NoError(t, err)
	return raw
}

func requireDenial(t *testing.T, err error, status int) *Denial {
	t.Helper()
	d, ok := AsDenial(err)
	require.True(t, ok, "expected denial, got %v", err)
	assert.Equal(t, status, d.StatusCode())
	return d
}

func TestResolvePrincipal(t *testing.T) {
	f := newResolverFixture(t)

	user, claims, err := f.resolver.ResolvePrincipal(context.Background(), f.token(t))
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, user.ID)
	assert.Equal(t, f.user.ID.String(), claims.Subject)
}

func TestResolvePrincipalInvalidToken(t *testing.T) {
	f := newResolverFixture(t)

	_, _, err := f.resolver.ResolvePrincipal(context.Background(), "not-a-token")
	d := requireDenial(t, err, http.StatusUnauthorized)
	assert.Equal(t, "invalid token", d.Message)
}

func TestResolvePrincipalExpiredToken(t *testing.T) {
	f := newResolverFixture(t)

	expired := NewTokenCodec("test-secret", "legalwatchdog", -time.Minute)
	raw, _, err := expired.Issue(f.user.ID, f.orgID, f.roleID)
	require.NoError(t, err)

	_, _, err = f.resolver.ResolvePrincipal(context.Background(), raw)
	d := requireDenial(t, err, http.StatusUnauthorized)
	assert.Equal(t, "token has expired", d.Message)
}

func TestResolvePrincipalRevokedToken(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	raw := f.token(t)
	claims, err := f.codec.Decode(raw)
	require.NoError(t, err)
	require.NoError(t, f.resolver.revocations.Revoke(ctx, claims.ID, time.Hour))

	_, _, err = f.resolver.ResolvePrincipal(ctx, raw)
	d := requireDenial(t, err, http.StatusUnauthorized)
	assert.Equal(t, "token has been revoked", d.Message)
}

func TestResolvePrincipalUnknownUser(t *testing.T) {
	f := newResolverFixture(t)

	raw := f.token(t)
	delete(f.dir.users, f.user.ID)

	_, _, err := f.resolver.ResolvePrincipal(context.Background(), raw)
	requireDenial(t, err, http.StatusUnauthorized)
}

func TestResolvePrincipalInactiveUser(t *testing.T) {
	f := newResolverFixture(t)
	f.user.IsActive = false

	_, _, err := f.resolver.ResolvePrincipal(context.Background(), f.token(t))
	d := requireDenial(t, err, http.StatusUnauthorized)
	assert.Equal(t, "user account is inactive", d.Message)
}

// Unverified is 403, not 401: the credential is fine, the account state is
// what blocks the request, and the user can fix it themselves.
func TestResolvePrincipalUnverifiedUser(t *testing.T) {
	f := newResolverFixture(t)
	f.user.IsVerified = false

	_, _, err := f.resolver.ResolvePrincipal(context.Background(), f.token(t))
	d := requireDenial(t, err, http.StatusForbidden)
	assert.Equal(t, "email not verified", d.Message)
}

func TestResolveRoleMissingRoleIsIntegrity(t *testing.T) {
	f := newResolverFixture(t)
	delete(f.dir.roles, f.roleID)

	_, _, err := f.resolver.ResolveRole(context.Background(), f.user)
	requireDenial(t, err, http.StatusInternalServerError)
}

func TestResolveMembership(t *testing.T) {
	f := newResolverFixture(t)

	membership, role, perms, err := f.resolver.ResolveMembership(context.Background(), f.user, f.orgID)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, membership.UserID)
	assert.Equal(t, "admin", role.Name)
	assert.True(t, perms.Has(PermManageUsers))
}

func TestResolveMembershipNonMember(t *testing.T) {
	f := newResolverFixture(t)

	_, _, _, err := f.resolver.ResolveMembership(context.Background(), f.user, uuid.New())
	d := requireDenial(t, err, http.StatusForbidden)
	assert.Equal(t, "not a member of this organization", d.Message)
}

// A deactivated membership must read exactly like a missing one.
func TestResolveMembershipInactive(t *testing.T) {
	f := newResolverFixture(t)
	f.dir.memberships[f.user.ID.String()+"|"+f.orgID.String()].IsActive = false

	_, _, _, err := f.resolver.ResolveMembership(context.Background(), f.user, f.orgID)
	d := requireDenial(t, err, http.StatusForbidden)
	assert.Equal(t, "not a member of this organization", d.Message)
}

// A store outage during user lookup is a server fault, not a bad
// credential: the caller must see 500, never "user not found".
func TestResolvePrincipalStoreOutage(t *testing.T) {
	f := newResolverFixture(t)
	f.dir.userErr = errors.New("connection refused")

	_, _, err := f.resolver.ResolvePrincipal(context.Background(), f.token(t))
	d := requireDenial(t, err, http.StatusInternalServerError)
	assert.NotEqual(t, "user not found", d.Message)
}

// Likewise for membership: an unreachable store must not read as
// "not a member of this organization".
func TestResolveMembershipStoreOutage(t *testing.T) {
	f := newResolverFixture(t)
	f.dir.membershipErr = errors.New("connection refused")

	_, _, _, err := f.resolver.ResolveMembership(context.Background(), f.user, f.orgID)
	d := requireDenial(t, err, http.StatusInternalServerError)
	assert.NotEqual(t, "not a member of this organization", d.Message)
}

// Resolving the same token twice yields the same principal, membership and
// role; nothing in the chain is request-order dependent.
func TestResolveChainIsRepeatable(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()
	raw := f.token(t)

	user1, claims1, err := f.resolver.ResolvePrincipal(ctx, raw)
	require.NoError(t, err)
	user2, claims2, err := f.resolver.ResolvePrincipal(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, user1.ID, user2.ID)
	assert.Equal(t, claims1.Subject, claims2.Subject)
	assert.Equal(t, claims1.ID, claims2.ID)

	m1, r1, p1, err := f.resolver.ResolveMembership(ctx, user1, f.orgID)
	require.NoError(t, err)
	m2, r2, p2, err := f.resolver.ResolveMembership(ctx, user2, f.orgID)
	require.NoError(t, err)
	assert.Equal(t, m1.ID, m2.ID)
	assert.Equal(t, r1.ID, r2.ID)
	assert.Equal(t, p1, p2)
}

func TestResolveMembershipMalformedPermissions(t *testing.T) {
	f := newResolverFixture(t)
	f.dir.roles[f.roleID].Permissions = []byte("{not json")

	_, _, _, err := f.resolver.ResolveMembership(context.Background(), f.user, f.orgID)
	requireDenial(t, err, http.StatusInternalServerError)
}
