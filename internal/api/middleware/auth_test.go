package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/auth"
	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
)

type stubDirectory struct {
	users       map[uuid.UUID]*models.User
	roles       map[uuid.UUID]*models.Role
	memberships map[string]*models.Membership
}

func (d *stubDirectory) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, auth.ErrDirectoryNotFound
	}
	return u, nil
}

func (d *stubDirectory) RoleByID(_ context.Context, id uuid.UUID) (*models.Role, error) {
	r, ok := d.roles[id]
	if !ok {
		return nil, auth.ErrDirectoryNotFound
	}
	return r, nil
}

func (d *stubDirectory) ActiveMembership(_ context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	m, ok := d.memberships[userID.String()+"|"+orgID.String()]
	if !ok || !m.IsActive {
		return nil, auth.ErrDirectoryNotFound
	}
	return m, nil
}

type chainFixture struct {
	chain  *Chain
	codec  *auth.TokenCodec
	user   *models.User
	orgID  uuid.UUID
	roleID uuid.UUID
}

func newChainFixture(t *testing.T, perms auth.PermissionSet) *chainFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	orgID := uuid.New()
	roleID := uuid.New()
	permsJSON, err := perms.MarshalJSON()
	require.NoError(t, err)

	user := &models.User{
		ID:         uuid.New(),
		RoleID:     roleID,
		Email:      "member@example.com",
		IsActive:   true,
		IsVerified: true,
	}

	dir := &stubDirectory{
		users: map[uuid.UUID]*models.User{user.ID: user},
		roles: map[uuid.UUID]*models.Role{roleID: {
			ID: roleID, OrganizationID: orgID, Name: "member", Permissions: permsJSON,
		}},
		memberships: map[string]*models.Membership{
			user.ID.String() + "|" + orgID.String(): {
				ID: uuid.New(), UserID: user.ID, OrganizationID: orgID, RoleID: roleID, IsActive: true,
			},
		},
	}

	codec := auth.NewTokenCodec("test-secret", "legalwatchdog", time.Hour)
	resolver := auth.NewResolver(codec, auth.NewRevocationStore(rdb), dir)

	return &chainFixture{
		chain:  NewChain(resolver),
		codec:  codec,
		user:   user,
		orgID:  orgID,
		roleID: roleID,
	}
}

// orgRouter mounts handler behind the full chain plus the given gates, the
// way the production router does.
func (f *chainFixture) orgRouter(gates []func(http.Handler) http.Handler, handler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Route("/organizations/{organization_id}", func(r chi.Router) {
		r.Use(f.chain.Authenticate)
		r.Use(f.chain.RequireOrg)
		r.With(gates...).Get("/resource", handler)
	})
	return r
}

func (f *chainFixture) request(t *testing.T, router http.Handler, orgID, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/organizations/"+orgID+"/resource", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func (f *chainFixture) token(t *testing.T) string {
	t.Helper()
	raw, _, err := f.codec.Issue(f.user.ID, f.orgID, f.roleID)
	require.NoError(t, err)
	return raw
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	respond.Success(w, http.StatusOK, "ok", nil)
}

func TestChainHappyPath(t *testing.T) {
	f := newChainFixture(t, auth.PermissionSet{auth.PermViewTickets: true})

	var seen *tenant.Access
	router := f.orgRouter(
		[]func(http.Handler) http.Handler{f.chain.RequirePermission(auth.PermViewTickets)},
		func(w http.ResponseWriter, r *http.Request) {
			seen = tenant.AccessFromContext(r.Context())
			okHandler(w, r)
		},
	)

	rec := f.request(t, router, f.orgID.String(), f.token(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, seen)
	assert.Equal(t, f.orgID, seen.OrganizationID)
	assert.Equal(t, f.user.ID, seen.User.ID)
	assert.True(t, seen.Can(auth.PermViewTickets))
}

func TestChainMissingToken(t *testing.T) {
	f := newChainFixture(t, auth.PermissionSet{})
	router := f.orgRouter(nil, okHandler)

	rec := f.request(t, router, f.orgID.String(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// A malformed organization id is rejected before any lookup happens.
func TestChainMalformedOrgID(t *testing.T) {
	f := newChainFixture(t, auth.PermissionSet{})
	router := f.orgRouter(nil, okHandler)

	rec := f.request(t, router, "not-a-uuid", f.token(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChainNonMemberOrg(t *testing.T) {
	f := newChainFixture(t, auth.PermissionSet{})
	router := f.orgRouter(nil, okHandler)

	rec := f.request(t, router, uuid.NewString(), f.token(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePermissionDenied(t *testing.T) {
	f := newChainFixture(t, auth.PermissionSet{auth.PermViewTickets: true})
	router := f.orgRouter(
		[]func(http.Handler) http.Handler{f.chain.RequirePermission(auth.PermCloseTickets)},
		okHandler,
	)

	rec := f.request(t, router, f.orgID.String(), f.token(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var env respond.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Contains(t, env.Message, "close_tickets")
}

// The any-of denial names every permission that would have passed.
func TestRequireAnyPermissionDeniedListsAll(t *testing.T) {
	f := newChainFixture(t, auth.PermissionSet{})
	router := f.orgRouter(
		[]func(http.Handler) http.Handler{f.chain.RequireAnyPermission(auth.PermEditTickets, auth.PermCreateTickets)},
		okHandler,
	)

	rec := f.request(t, router, f.orgID.String(), f.token(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var env respond.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Contains(t, env.Message, "edit_tickets")
	assert.Contains(t, env.Message, "create_tickets")
}

func TestRequireAnyPermissionPassesOnOne(t *testing.T) {
	f := newChainFixture(t, auth.PermissionSet{auth.PermCreateTickets: true})
	router := f.orgRouter(
		[]func(http.Handler) http.Handler{f.chain.RequireAnyPermission(auth.PermEditTickets, auth.PermCreateTickets)},
		okHandler,
	)

	rec := f.request(t, router, f.orgID.String(), f.token(t))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// Permission flags are independent: granting unrelated flags never changes
// the outcome of a gate on a different flag, in either direction.
func TestPermissionGatesAreIndependent(t *testing.T) {
	grants := []auth.PermissionSet{
		{},
		{auth.PermViewTickets: true},
		{auth.PermViewTickets: true, auth.PermManageBilling: true, auth.PermViewProjects: true},
	}
	for _, perms := range grants {
		f := newChainFixture(t, perms)
		router := f.orgRouter(
			[]func(http.Handler) http.Handler{f.chain.RequirePermission(auth.PermCloseTickets)},
			okHandler,
		)
		rec := f.request(t, router, f.orgID.String(), f.token(t))
		assert.Equal(t, http.StatusForbidden, rec.Code,
			"close_tickets gate must deny regardless of unrelated grants %v", perms)
	}

	for _, extra := range []auth.PermissionSet{
		{auth.PermViewTickets: true},
		{auth.PermViewTickets: true, auth.PermDeleteRoles: true, auth.PermTriggerScraping: true},
	} {
		f := newChainFixture(t, extra)
		router := f.orgRouter(
			[]func(http.Handler) http.Handler{f.chain.RequirePermission(auth.PermViewTickets)},
			okHandler,
		)
		rec := f.request(t, router, f.orgID.String(), f.token(t))
		assert.Equal(t, http.StatusOK, rec.Code,
			"view_tickets gate must pass regardless of unrelated grants %v", extra)
	}
}

func TestRequireBillingAdmin(t *testing.T) {
	denied := newChainFixture(t, auth.PermissionSet{auth.PermViewTickets: true})
	router := denied.orgRouter(
		[]func(http.Handler) http.Handler{denied.chain.RequireBillingAdmin},
		okHandler,
	)
	rec := denied.request(t, router, denied.orgID.String(), denied.token(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	allowed := newChainFixture(t, auth.PermissionSet{auth.PermManageBilling: true})
	router = allowed.orgRouter(
		[]func(http.Handler) http.Handler{allowed.chain.RequireBillingAdmin},
		okHandler,
	)
	rec = allowed.request(t, router, allowed.orgID.String(), allowed.token(t))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// When an API key already established access, Authenticate passes through
// and RequireOrg only checks the path names the key's organization.
func TestChainWithPresetAccess(t *testing.T) {
	f := newChainFixture(t, auth.PermissionSet{})
	keyOrg := uuid.New()
	access := &tenant.Access{
		OrganizationID: keyOrg,
		Permissions:    auth.PermissionSet{auth.PermViewTickets: true},
	}

	router := f.orgRouter(
		[]func(http.Handler) http.Handler{f.chain.RequirePermission(auth.PermViewTickets)},
		okHandler,
	)

	req := httptest.NewRequest(http.MethodGet, "/organizations/"+keyOrg.String()+"/resource", nil)
	req = req.WithContext(tenant.WithAccess(req.Context(), access))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Same key, different organization in the path.
	req = httptest.NewRequest(http.MethodGet, "/organizations/"+uuid.NewString()+"/resource", nil)
	req = req.WithContext(tenant.WithAccess(req.Context(), access))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
