package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewCache(rdb), mr
}

func TestCacheSetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.Set(ctx, "k", payload{Name: "x"}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "x", got.Name)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.Error(t, c.Get(ctx, "k", &got))
}

func TestAllowUnderLimit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, c.Allow(ctx, "login:attempts:a@example.com", 5, time.Minute), "attempt %d", i+1)
	}
	assert.False(t, c.Allow(ctx, "login:attempts:a@example.com", 5, time.Minute))

	// Other keys keep their own budget.
	assert.True(t, c.Allow(ctx, "login:attempts:b@example.com", 5, time.Minute))
}

func TestAllowWindowResets(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		c.Allow(ctx, "k", 5, time.Minute)
	}
	assert.False(t, c.Allow(ctx, "k", 5, time.Minute))

	mr.FastForward(2 * time.Minute)
	assert.True(t, c.Allow(ctx, "k", 5, time.Minute))
}

// Throttling is best-effort: when redis is down the attempt is allowed, so
// an outage cannot lock every account out.
func TestAllowFailsOpen(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	assert.True(t, c.Allow(context.Background(), "k", 5, time.Minute))
}

func TestConsumeOTP(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetOTP(ctx, "user-1", "123456", time.Minute))

	// A wrong guess does not burn the code.
	ok, err := c.ConsumeOTP(ctx, "user-1", "999999")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.ConsumeOTP(ctx, "user-1", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	// Consumed means gone.
	ok, err = c.ConsumeOTP(ctx, "user-1", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeOTPExpired(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetOTP(ctx, "user-1", "123456", time.Minute))
	mr.FastForward(2 * time.Minute)

	ok, err := c.ConsumeOTP(ctx, "user-1", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetOTPReplacesPending(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetOTP(ctx, "user-1", "111111", time.Minute))
	require.NoError(t, c.SetOTP(ctx, "user-1", "222222", time.Minute))

	ok, err := c.ConsumeOTP(ctx, "user-1", "111111")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.ConsumeOTP(ctx, "user-1", "222222")
	require.NoError(t, err)
	assert.True(t, ok)
}
