package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemory_SlidingWindow(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := NewMemory(5, 15*time.Minute)
	m.now = clk.now
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, ok, err := m.Allow(ctx, "a@example.com")
		require.NoError(t, err)
		require.True(t, ok, "request %d should pass", i+1)
		clk.advance(time.Minute)
	}

	// 6th within 15 minutes of the 1st
	retry, ok, err := m.Allow(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 10*time.Minute, retry)

	// other keys are independent
	_, ok, _ = m.Allow(ctx, "b@example.com")
	assert.True(t, ok)

	// once the first hit leaves the window one slot frees up
	clk.advance(10 * time.Minute)
	_, ok, _ = m.Allow(ctx, "a@example.com")
	assert.True(t, ok)
	_, ok, _ = m.Allow(ctx, "a@example.com")
	assert.False(t, ok)
}

func TestMemory_ConcurrentNeverOverAdmits(t *testing.T) {
	m := NewMemory(5, time.Hour)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := m.Allow(context.Background(), "k"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, allowed)
}

func TestMemory_SweepIdleKeys(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory(5, 15*time.Minute)
	m.now = clk.now
	ctx := context.Background()

	_, _, _ = m.Allow(ctx, "old")
	clk.advance(20 * time.Minute)
	_, _, _ = m.Allow(ctx, "recent")

	assert.Equal(t, 0, m.Sweep(clk.t), "nothing idle for 2x window yet")
	clk.advance(11 * time.Minute) // "old" idle 31m, "recent" idle 11m
	assert.Equal(t, 1, m.Sweep(clk.t))
	assert.Equal(t, 1, m.Len())
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedis_SlidingWindow(t *testing.T) {
	_, rdb := newRedis(t)
	clk := &fakeClock{t: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	l := NewRedis(rdb, "rl:", 5, 15*time.Minute)
	l.now = clk.now
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, ok, err := l.Allow(ctx, "otp:a@example.com")
		require.NoError(t, err)
		require.True(t, ok, "request %d should pass", i+1)
		clk.advance(time.Minute)
	}
	retry, ok, err := l.Allow(ctx, "otp:a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 10*time.Minute, retry)

	clk.advance(10*time.Minute + time.Millisecond)
	_, ok, err = l.Allow(ctx, "otp:a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedis_StoreDown(t *testing.T) {
	mr, rdb := newRedis(t)
	l := NewRedis(rdb, "rl:", 5, time.Minute)
	mr.Close()

	_, ok, err := l.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}
