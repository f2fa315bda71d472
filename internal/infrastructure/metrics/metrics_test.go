package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.Transition("approve", "pending", "approved")
	r.Transition("approve", "pending", "approved")
	r.TransitionError("approve", "conflict")
	r.Verification("crypto", "ETH", "pending", 20*time.Millisecond)
	r.OTPIssued("login")
	r.RateLimited()
	r.InvariantViolation()
	r.Sweep("otp", nil)
	r.Sweep("otp", errors.New("db down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.transitions.WithLabelValues("approve", "pending", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitionErrors.WithLabelValues("approve", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.verifications.WithLabelValues("crypto", "ETH", "pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rateLimited))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sweeps.WithLabelValues("otp", "error")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Transition("a", "b", "c")
		r.Verification("card_processor", "USD", "succeeded", time.Second)
		r.OTPVerification("reset", "ok")
		r.Sweep("x", nil)
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.OTPIssued("signup")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "loan_settlement_otp_issued_total"))
}
