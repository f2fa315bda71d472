package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store is the slice of the redis client the middleware needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// replayKey scopes a stored response to one caller's request id on one route.
type replayKey struct {
	Method    string
	Route     string
	Actor     string
	RequestID string
}

func (k replayKey) String() string {
	return "idem:" + strings.ToLower(k.Method) + ":" + k.Route + ":" + k.Actor + ":" + k.RequestID
}

type replayState string

const (
	replayPending replayState = "pending"
	replayDone    replayState = "done"
)

type replayEntry struct {
	State      replayState `json:"state"`
	Status     int         `json:"status,omitempty"`
	Body       []byte      `json:"body,omitempty"`
	BodyDigest string      `json:"body_digest"`
	RequestAt  time.Time   `json:"request_at"`
	StoredAt   time.Time   `json:"stored_at"`
}

func (e replayEntry) replayable() bool {
	return e.State == replayDone && e.Status != 0 && len(e.Body) > 0
}

// replayStore persists entries as JSON. A pending claim expires on its own
// after pendingTTL if the handler never completes.
type replayStore struct {
	rdb        Store
	ttl        time.Duration
	pendingTTL time.Duration
	now        func() time.Time
}

func (s replayStore) claim(ctx context.Context, k replayKey, digest string, at time.Time) (bool, error) {
	b, err := json.Marshal(replayEntry{State: replayPending, BodyDigest: digest, RequestAt: at, StoredAt: s.now()})
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, k.String(), b, s.pendingTTL).Result()
}

func (s replayStore) lookup(ctx context.Context, k replayKey) (replayEntry, error) {
	var e replayEntry
	b, err := s.rdb.Get(ctx, k.String()).Bytes()
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(b, &e)
	return e, err
}

func (s replayStore) complete(ctx context.Context, k replayKey, e replayEntry) error {
	e.State = replayDone
	e.StoredAt = s.now()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, k.String(), b, s.ttl).Err()
}

func (s replayStore) release(ctx context.Context, k replayKey) error {
	return s.rdb.Del(ctx, k.String()).Err()
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// normalizeRequestID accepts a UUID in dashed or bare 32-hex form, in either
// case, and returns its canonical lowercase dashed form.
func normalizeRequestID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 32 && len(raw) != 36 {
		return "", false
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

var (
	errRequestAtMissing = errors.New("missing " + HeaderRequestAt)
	errRequestAtFormat  = errors.New(HeaderRequestAt + " must be epoch seconds, epoch milliseconds or RFC3339 with a zone")
)

// requestTime reads X-Request-At. Integers above 1e12 are milliseconds.
// Timestamps without a zone are refused.
func requestTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errRequestAtMissing
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errRequestAtFormat
	}
	return t.UTC(), nil
}
