// Package metrics holds the prometheus collectors for the settlement engine.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loan_settlement"

type Recorder struct {
	registry *prometheus.Registry

	transitions       *prometheus.CounterVec
	transitionErrors  *prometheus.CounterVec
	verifications     *prometheus.CounterVec
	verifyDuration    *prometheus.HistogramVec
	otpIssued         *prometheus.CounterVec
	otpVerifications  *prometheus.CounterVec
	rateLimited       prometheus.Counter
	invariantFailures prometheus.Counter
	sweeps            *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Application status transitions applied",
		}, []string{"event", "from", "to"}),
		transitionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transition_errors_total",
			Help:      "Refused or failed transitions by error kind",
		}, []string{"event", "kind"}),
		verifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verifications_total",
			Help:      "Payment verification outcomes",
		}, []string{"provider", "currency", "outcome"}),
		verifyDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_verification_duration_seconds",
			Help:      "Time spent verifying a payment against its provider",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "currency"}),
		otpIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_issued_total",
			Help:      "One-time codes issued",
		}, []string{"purpose"}),
		otpVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verifications_total",
			Help:      "One-time code verification outcomes",
		}, []string{"purpose", "outcome"}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_rate_limited_total",
			Help:      "Code issuance requests refused by the limiter",
		}),
		invariantFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Detected invariant violations",
		}),
		sweeps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_sweeps_total",
			Help:      "Background sweep runs",
		}, []string{"job", "result"}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the recorder's registry in the exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Transition(event, from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(event, from, to).Inc()
}

func (r *Recorder) TransitionError(event, kind string) {
	if r == nil {
		return
	}
	r.transitionErrors.WithLabelValues(event, kind).Inc()
}

func (r *Recorder) Verification(provider, currency, outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.verifications.WithLabelValues(provider, currency, outcome).Inc()
	r.verifyDuration.WithLabelValues(provider, currency).Observe(took.Seconds())
}

func (r *Recorder) OTPIssued(purpose string) {
	if r == nil {
		return
	}
	r.otpIssued.WithLabelValues(purpose).Inc()
}

func (r *Recorder) OTPVerification(purpose, outcome string) {
	if r == nil {
		return
	}
	r.otpVerifications.WithLabelValues(purpose, outcome).Inc()
}

func (r *Recorder) RateLimited() {
	if r == nil {
		return
	}
	r.rateLimited.Inc()
}

func (r *Recorder) InvariantViolation() {
	if r == nil {
		return
	}
	r.invariantFailures.Inc()
}

func (r *Recorder) Sweep(job string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.sweeps.WithLabelValues(job, result).Inc()
}
