package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderRequestAt = "X-Request-At"
	HeaderReplayed  = "Idempotent-Replayed"

	pendingTTL   = 60 * time.Second
	maxClockSkew = 10 * time.Minute
	storeTimeout = 2 * time.Second
)

// teeWriter copies what the handler writes so it can be stored for replay.
type teeWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func reject(c echo.Context, code int, reason, msg string) error {
	return c.JSON(code, map[string]string{"error": msg, "reason": reason})
}

// Idempotency makes mutating requests safe to retry. Each one must carry an
// X-Request-Id and an X-Request-At within maxClockSkew of now. A repeat with
// the same id and body from the same actor on the same route gets the stored
// response back; a repeat with a different body is a conflict. 5xx responses
// are not stored. Requests without X-Actor-Id share the anonymous scope.
func Idempotency(rdb Store, ttl time.Duration, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	store := replayStore{rdb: rdb, ttl: ttl, pendingTTL: pendingTTL, now: func() time.Time { return time.Now().UTC() }}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			rawID := req.Header.Get(HeaderRequestID)
			if strings.TrimSpace(rawID) == "" {
				return reject(c, http.StatusBadRequest, "missing_request_id", "missing "+HeaderRequestID)
			}
			reqID, ok := normalizeRequestID(rawID)
			if !ok {
				return reject(c, http.StatusBadRequest, "invalid_request_id", HeaderRequestID+" must be a UUID")
			}
			at, err := requestTime(req.Header.Get(HeaderRequestAt))
			if err != nil {
				return reject(c, http.StatusBadRequest, "invalid_request_at", err.Error())
			}
			if skew := store.now().Sub(at); skew > maxClockSkew || skew < -maxClockSkew {
				return reject(c, http.StatusBadRequest, "request_at_skewed", HeaderRequestAt+" too skewed")
			}
			actor := strings.TrimSpace(req.Header.Get(HeaderActorID))
			switch {
			case actor == "":
				actor = anonymousActor
			case !validActorID(actor):
				return reject(c, http.StatusBadRequest, "invalid_actor", "invalid "+HeaderActorID)
			}

			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			sum := digest(body)
			key := replayKey{Method: req.Method, Route: c.Path(), Actor: actor, RequestID: reqID}

			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()
			claimed, err := store.claim(ctx, key, sum, at)
			if err != nil {
				log.Warn("idempotency store unavailable", zap.Stringer("key", key), zap.Error(err))
				return reject(c, http.StatusServiceUnavailable, "idempotency_unavailable", "idempotency store unavailable")
			}
			if !claimed {
				prev, err := store.lookup(ctx, key)
				if err != nil {
					log.Warn("idempotency entry unreadable", zap.Stringer("key", key), zap.Error(err))
				}
				if prev.BodyDigest != "" && prev.BodyDigest != sum {
					return reject(c, http.StatusConflict, "request_id_reused", HeaderRequestID+" reused with a different body")
				}
				if prev.replayable() {
					c.Response().Header().Set(HeaderReplayed, "true")
					return c.Blob(prev.Status, echo.MIMEApplicationJSON, prev.Body)
				}
				return reject(c, http.StatusConflict, "request_in_progress", "request is already in progress")
			}

			tee := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = tee
			if err := next(c); err != nil {
				c.Error(err)
			}

			// the request context may already be gone; finish bookkeeping regardless
			bg, done := context.WithTimeout(context.Background(), storeTimeout)
			defer done()
			if tee.status >= http.StatusInternalServerError {
				if err := store.release(bg, key); err != nil {
					log.Warn("idempotency claim not released", zap.Stringer("key", key), zap.Error(err))
				}
				return nil
			}
			if err := store.complete(bg, key, replayEntry{Status: tee.status, Body: tee.buf.Bytes(), BodyDigest: sum, RequestAt: at}); err != nil {
				log.Warn("idempotency entry not saved", zap.Stringer("key", key), zap.Error(err))
			}
			return nil
		}
	}
}
