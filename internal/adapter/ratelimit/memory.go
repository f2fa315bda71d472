// Package ratelimit holds sliding-window stores for OTP issuance.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a per-process sliding window limiter. Each key keeps the
// timestamps of its admitted requests inside the window.
type Memory struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow admits the request when fewer than limit requests were admitted in the
// trailing window. Check and record happen under one lock.
func (m *Memory) Allow(_ context.Context, key string) (time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	kept := prune(m.hits[key], now.Add(-m.window))
	if len(kept) >= m.limit {
		m.hits[key] = kept
		return kept[0].Add(m.window).Sub(now), false, nil
	}
	m.hits[key] = append(kept, now)
	return 0, true, nil
}

// Sweep drops keys idle for more than twice the window and returns how many.
func (m *Memory) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-2 * m.window)
	purged := 0
	for key, ts := range m.hits {
		if len(ts) == 0 || ts[len(ts)-1].Before(cutoff) {
			delete(m.hits, key)
			purged++
		}
	}
	return purged
}

// Len reports tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hits)
}

func prune(ts []time.Time, after time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(after) {
		i++
	}
	return ts[i:]
}
