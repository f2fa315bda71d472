package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthBody struct {
	Status       string            `json:"status"`
	Time         string            `json:"time"`
	Dependencies map[string]string `json:"dependencies"`
}

func health(t *testing.T, checks map[string]Check) (int, healthBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	require.NoError(t, NewHandler(checks).Health(c))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
	var b healthBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b), rec.Body.String())
	return rec.Code, b
}

func TestHealth_NoDependencies(t *testing.T) {
	code, b := health(t, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", b.Status)
	assert.Nil(t, b.Dependencies)

	at, err := time.Parse(time.RFC3339Nano, b.Time)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, at.Location())
	assert.WithinDuration(t, time.Now(), at, 2*time.Second)
}

func TestHealth_ReportsEachDependency(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks map[string]Check
		code   int
		status string
		deps   map[string]string
	}{
		{"all up", map[string]Check{"mysql": up, "redis": up}, http.StatusOK, "ok",
			map[string]string{"mysql": "ok", "redis": "ok"}},
		{"redis down", map[string]Check{"mysql": up, "redis": down}, http.StatusServiceUnavailable, "degraded",
			map[string]string{"mysql": "ok", "redis": "connection refused"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, b := health(t, tt.checks)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, b.Status)
			assert.Equal(t, tt.deps, b.Dependencies)
		})
	}
}

func TestHealth_ChecksAreBounded(t *testing.T) {
	var deadline time.Time
	code, _ := health(t, map[string]Check{"mysql": func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	}})
	assert.Equal(t, http.StatusOK, code)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
}
