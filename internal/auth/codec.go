package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by an access token. OrgID and RoleID capture the primary
// organization context at issue time; membership is still re-resolved per
// request so a revoked membership takes effect immediately.
type Claims struct {
	OrgID  string `json:"org_id"`
	RoleID string `json:"role_id"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies access tokens. It is an immutable value
// constructed once at startup; there is no package-level signing state.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenCodec(secret, issuer string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs an HS256 token for the user with a fresh jti.
func (c *TokenCodec) Issue(userID, orgID, roleID uuid.UUID) (string, *Claims, error) {
	now := time.Now().UTC()
	claims := &Claims{
		OrgID:  orgID.String(),
		RoleID: roleID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Decode verifies signature, algorithm, issuer, and expiry. Expired tokens
// are reported distinctly so the caller can word the 401.
func (c *TokenCodec) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// UnverifiedJTI extracts the jti without validating the signature. Logout
// must be able to denylist a token that has already expired.
func (c *TokenCodec) UnverifiedJTI(raw string) string {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return ""
	}
	return claims.ID
}

// RemainingTTL returns how long the token is still valid, clamped at zero.
// Used to size the revocation record so it expires with the token.
func (c *TokenCodec) RemainingTTL(raw string) time.Duration {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return c.ttl
	}
	if claims.ExpiresAt == nil {
		return c.ttl
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 0 {
		return 0
	}
	return ttl
}
