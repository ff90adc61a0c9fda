package tenant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/legalwatchdog/platform/internal/auth"
)

func TestAccessVerify(t *testing.T) {
	orgID := uuid.New()
	access := &Access{OrganizationID: orgID}

	assert.NoError(t, access.Verify(orgID))

	err := access.Verify(uuid.New())
	assert.Error(t, err)
	d, ok := auth.AsDenial(err)
	assert.True(t, ok)
	assert.Equal(t, auth.DenialForbidden, d.Reason)
}

func TestAccessCan(t *testing.T) {
	access := &Access{Permissions: auth.PermissionSet{auth.PermViewTickets: true}}

	assert.True(t, access.Can(auth.PermViewTickets))
	assert.False(t, access.Can(auth.PermCloseTickets))

	// No permissions resolved at all, e.g. a half-built Access.
	empty := &Access{}
	assert.False(t, empty.Can(auth.PermViewTickets))
}
