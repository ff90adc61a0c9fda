package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermissions(t *testing.T) {
	set, err := ParsePermissions([]byte(`{"view_tickets": true, "manage_billing": false}`))
	require.NoError(t, err)

	assert.True(t, set.Has(PermViewTickets))
	assert.False(t, set.Has(PermManageBilling))
	// Absent keys read as false.
	assert.False(t, set.Has(PermManageUsers))
}

func TestParsePermissionsEmpty(t *testing.T) {
	set, err := ParsePermissions(nil)
	require.NoError(t, err)
	assert.False(t, set.Has(PermViewTickets))
}

func TestParsePermissionsMalformed(t *testing.T) {
	_, err := ParsePermissions([]byte("{broken"))
	assert.Error(t, err)
}

func TestParsePermissionsUnknownKeysKept(t *testing.T) {
	set, err := ParsePermissions([]byte(`{"future_capability": true}`))
	require.NoError(t, err)
	assert.True(t, set.Has(Permission("future_capability")))
}

func TestHasAny(t *testing.T) {
	set := grant(PermViewTickets)

	assert.True(t, set.HasAny(PermEditTickets, PermViewTickets))
	assert.False(t, set.HasAny(PermEditTickets, PermCloseTickets))
	assert.False(t, set.HasAny())
}

func TestRoleTemplates(t *testing.T) {
	templates := RoleTemplates()
	require.Len(t, templates, 4)

	admin := templates["admin"]
	for _, p := range allPermissions() {
		assert.True(t, admin.Has(p), "admin missing %s", p)
	}

	manager := templates["manager"]
	assert.True(t, manager.Has(PermTriggerScraping))
	assert.False(t, manager.Has(PermManageBilling))
	assert.False(t, manager.Has(PermManageAPIKeys))

	editor := templates["editor"]
	assert.True(t, editor.Has(PermCreateSources))
	assert.False(t, editor.Has(PermDeleteProjects))
	assert.False(t, editor.Has(PermTriggerScraping))

	viewer := templates["viewer"]
	assert.True(t, viewer.Has(PermViewTickets))
	assert.False(t, viewer.Has(PermCreateTickets))
	assert.False(t, viewer.Has(PermInviteParticipants))
}

func TestPermissionSetRoundTrip(t *testing.T) {
	raw, err := ManagerPermissions().MarshalJSON()
	require.NoError(t, err)

	parsed, err := ParsePermissions(raw)
	require.NoError(t, err)
	assert.Equal(t, ManagerPermissions(), parsed)
}
