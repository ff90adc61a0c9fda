package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodecRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", "legalwatchdog", time.Hour)

	userID := uuid.New()
	orgID := uuid.New()
	roleID := uuid.New()

	raw, issued, err := codec.Issue(userID, orgID, roleID)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.NotEmpty(t, issued.ID)

	claims, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, orgID.String(), claims.OrgID)
	assert.Equal(t, roleID.String(), claims.RoleID)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestTokenCodecFreshJTIPerToken(t *testing.T) {
	codec := NewTokenCodec("test-secret", "legalwatchdog", time.Hour)

	_, a, err := codec.Issue(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	_, b, err := codec.Issue(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestTokenCodecExpired(t *testing.T) {
	codec := NewTokenCodec("test-secret", "legalwatchdog", -time.Minute)

	raw, _, err := codec.Issue(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenCodecWrongSecret(t *testing.T) {
	codec := NewTokenCodec("test-secret", "legalwatchdog", time.Hour)
	other := NewTokenCodec("other-secret", "legalwatchdog", time.Hour)

	raw, _, err := codec.Issue(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)

	_, err = other.Decode(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenCodecWrongIssuer(t *testing.T) {
	codec := NewTokenCodec("test-secret", "someone-else", time.Hour)
	verifier := NewTokenCodec("test-secret", "legalwatchdog", time.Hour)

	raw, _, err := codec.Issue(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)

	_, err = verifier.Decode(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenCodecGarbage(t *testing.T) {
	codec := NewTokenCodec("test-secret", "legalwatchdog", time.Hour)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.Decode(raw)
		assert.ErrorIs(t, err, ErrTokenInvalid, "input %q", raw)
	}
}

func TestUnverifiedJTI(t *testing.T) {
	codec := NewTokenCodec("test-secret", "legalwatchdog", time.Hour)

	raw, claims, err := codec.Issue(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, claims.ID, codec.UnverifiedJTI(raw))

	// Expired tokens still yield their jti so logout can denylist them.
	expired := NewTokenCodec("test-secret", "legalwatchdog", -time.Minute)
	raw, claims, err = expired.Issue(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, claims.ID, expired.UnverifiedJTI(raw))

	assert.Empty(t, codec.UnverifiedJTI("garbage"))
}

func TestRemainingTTL(t *testing.T) {
	codec := NewTokenCodec("test-secret", "legalwatchdog", time.Hour)
	raw, _, err := codec.Issue(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)

	ttl := codec.RemainingTTL(raw)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	expired := NewTokenCodec("test-secret", "legalwatchdog", -time.Minute)
	raw, _, err = expired.Issue(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), expired.RemainingTTL(raw))
}
