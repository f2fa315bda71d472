package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRedis_SelectsDatabase(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := OpenRedis(RedisOptions{Addr: mr.Addr(), DB: 3})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, 3, c.Options().DB)
	assert.Equal(t, 3*time.Second, c.Options().DialTimeout)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "idem:k", "v", time.Minute).Err())
	mr.Select(3)
	assert.True(t, mr.Exists("idem:k"))
}

func TestOpenRedis_Password(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	_, err := OpenRedis(RedisOptions{Addr: mr.Addr(), PingTimeout: time.Second})
	require.Error(t, err)

	c, err := OpenRedis(RedisOptions{Addr: mr.Addr(), Password: "s3cret"})
	require.NoError(t, err)
	_ = c.Close()
}

func TestOpenRedis_Unreachable(t *testing.T) {
	_, err := OpenRedis(RedisOptions{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, PingTimeout: time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := OpenRedis(RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	check := HealthCheck(c)
	require.NoError(t, check(context.Background()))

	mr.Close()
	assert.Error(t, check(context.Background()))
}
