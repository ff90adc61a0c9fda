package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestCodecRoundTrip(t *testing.T) {
	codec := NewGuestCodec("test-secret", time.Hour)

	participantID := uuid.New()
	ticketID := uuid.New()

	raw, err := codec.Issue(participantID, ticketID)
	require.NoError(t, err)

	claims, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, participantID.String(), claims.Subject)
	assert.Equal(t, ticketID.String(), claims.TicketID)
	assert.Contains(t, claims.Audience, GuestAudience)
}

func TestGuestCodecExpired(t *testing.T) {
	codec := NewGuestCodec("test-secret", -time.Minute)

	raw, err := codec.Issue(uuid.New(), uuid.New())
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

// A user access token must never pass as a guest token, and a guest token
// must never pass as a user access token, even though both are signed with
// the same secret.
func TestGuestAndUserTokensAreNotInterchangeable(t *testing.T) {
	userCodec := NewTokenCodec("shared-secret", "legalwatchdog", time.Hour)
	guestCodec := NewGuestCodec("shared-secret", time.Hour)

	userToken, _, err := userCodec.Issue(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	_, err = guestCodec.Decode(userToken)
	assert.ErrorIs(t, err, ErrTokenInvalid, "user token accepted as guest token")

	guestToken, err := guestCodec.Issue(uuid.New(), uuid.New())
	require.NoError(t, err)
	_, err = userCodec.Decode(guestToken)
	assert.ErrorIs(t, err, ErrTokenInvalid, "guest token accepted as user token")
}

func TestHashToken(t *testing.T) {
	a := HashToken("some-token")
	b := HashToken("some-token")
	c := HashToken("other-token")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.NotContains(t, a, "some-token")
}
