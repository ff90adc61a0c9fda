package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalwatchdog/platform/internal/auth"
	"github.com/legalwatchdog/platform/internal/models"
	"github.com/legalwatchdog/platform/internal/tenant"
)

type stubKeys struct {
	keys map[string]*models.APIKey
}

func (s *stubKeys) Lookup(_ context.Context, plaintext string) (*models.APIKey, error) {
	k, ok := s.keys[plaintext]
	if !ok {
		return nil, errors.New("key not found")
	}
	return k, nil
}

// outageDirectory simulates a directory whose backing store is down.
type outageDirectory struct {
	*stubDirectory
}

func (outageDirectory) UserByID(context.Context, uuid.UUID) (*models.User, error) {
	return nil, errors.New("connection refused")
}

type keyAuthFixture struct {
	mw    *APIKeyAuth
	dir   *stubDirectory
	owner *models.User
	key   *models.APIKey
}

func newKeyAuthFixture(t *testing.T) *keyAuthFixture {
	t.Helper()

	owner := &models.User{
		ID:         uuid.New(),
		Email:      "integrations@example.com",
		IsActive:   true,
		IsVerified: true,
	}
	dir := &stubDirectory{
		users:       map[uuid.UUID]*models.User{owner.ID: owner},
		roles:       map[uuid.UUID]*models.Role{},
		memberships: map[string]*models.Membership{},
	}
	key := &models.APIKey{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		UserID:         &owner.ID,
		Scopes:         []string{"view_tickets"},
	}
	keys := &stubKeys{keys: map[string]*models.APIKey{"lw_good": key}}

	return &keyAuthFixture{
		mw:    NewAPIKeyAuth(keys, dir, "X-API-Key"),
		dir:   dir,
		owner: owner,
		key:   key,
	}
}

func (f *keyAuthFixture) serve(t *testing.T, presented string) (*httptest.ResponseRecorder, *tenant.Access, bool) {
	t.Helper()
	var seen *tenant.Access
	reached := false
	handler := f.mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		seen = tenant.AccessFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/organizations/"+f.key.OrganizationID.String()+"/tickets", nil)
	if presented != "" {
		req.Header.Set("X-API-Key", presented)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen, reached
}

func TestAPIKeyAuthHappyPath(t *testing.T) {
	f := newKeyAuthFixture(t)

	rec, access, _ := f.serve(t, "lw_good")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, access)
	require.NotNil(t, access.User, "key access must carry its owning user")
	assert.Equal(t, f.owner.ID, access.User.ID)
	assert.Equal(t, f.key.OrganizationID, access.OrganizationID)
	assert.True(t, access.Can(auth.PermViewTickets))
	assert.False(t, access.Can(auth.PermManageUsers), "key scopes never widen")
}

func TestAPIKeyAuthNoHeaderFallsThrough(t *testing.T) {
	f := newKeyAuthFixture(t)

	rec, access, reached := f.serve(t, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.Nil(t, access, "no key means a later stage decides")
}

func TestAPIKeyAuthUnknownKey(t *testing.T) {
	f := newKeyAuthFixture(t)

	rec, _, reached := f.serve(t, "lw_bogus")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

// A key whose owner was deactivated must stop working immediately; the
// request never reaches a handler that would attribute actions to the
// missing user.
func TestAPIKeyAuthDeactivatedOwner(t *testing.T) {
	f := newKeyAuthFixture(t)
	f.owner.IsActive = false

	rec, _, reached := f.serve(t, "lw_good")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "active owner")
	assert.False(t, reached)
}

func TestAPIKeyAuthDeletedOwner(t *testing.T) {
	f := newKeyAuthFixture(t)
	delete(f.dir.users, f.owner.ID)

	rec, _, reached := f.serve(t, "lw_good")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestAPIKeyAuthOwnerlessKey(t *testing.T) {
	f := newKeyAuthFixture(t)
	f.key.UserID = nil

	rec, _, reached := f.serve(t, "lw_good")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

// An unreachable directory is a server fault, not a dead key.
func TestAPIKeyAuthDirectoryOutage(t *testing.T) {
	f := newKeyAuthFixture(t)
	f.mw.dir = outageDirectory{f.dir}

	rec, _, reached := f.serve(t, "lw_good")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, reached)
}
