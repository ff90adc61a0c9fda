package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Guest tokens are deliberately not interchangeable with user access tokens:
// they carry aud="guest_access" so they are rejected by the user chain, and
// a ticket_id claim that pins them to exactly one ticket.
const GuestAudience = "guest_access"

type GuestClaims struct {
	TicketID string `json:"ticket_id"`
	jwt.RegisteredClaims
}

// GuestCodec signs and verifies guest access tokens. Same signing secret as
// the user codec; the audience keeps the two token populations apart.
type GuestCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewGuestCodec(secret string, ttl time.Duration) *GuestCodec {
	return &GuestCodec{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for an external participant, scoped to one ticket.
func (c *GuestCodec) Issue(participantID, ticketID uuid.UUID) (string, error) {
	now := time.Now().UTC()
	claims := &GuestClaims{
		TicketID: ticketID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   participantID.String(),
			Audience:  jwt.ClaimStrings{GuestAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign guest token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, expiry, and that the audience is guest_access.
func (c *GuestCodec) Decode(raw string) (*GuestClaims, error) {
	claims := &GuestClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithAudience(GuestAudience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.TicketID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// HashToken hashes magic-link and guest tokens for storage, so a leaked
// database row cannot be replayed as a live credential.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
