package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "jwt:denylist:"

// RevocationStore tracks logged-out token ids in redis. Records carry a TTL
// equal to the token's remaining lifetime, so they expire with the token.
type RevocationStore struct {
	rdb *redis.Client
}

func NewRevocationStore(rdb *redis.Client) *RevocationStore {
	return &RevocationStore{rdb: rdb}
}

// Revoke denylists a jti until the token would have expired anyway. A zero
// or negative ttl means the token is already dead and there is nothing to do.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return fmt.Errorf("revoke: empty jti")
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, denylistPrefix+jti, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("revoke jti %s: %w", jti, err)
	}
	return nil
}

// IsRevoked checks the denylist. A store error is returned as-is: the caller
// must treat it as a hard failure and reject the request, because silently
// allowing a possibly revoked token is a security regression.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, denylistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check denylist for jti %s: %w", jti, err)
	}
	return n > 0, nil
}
