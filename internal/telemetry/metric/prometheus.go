// Package metric provides Prometheus metrics for bunda-cli.
package metric

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

const namespace = "bunda"

// Bootstrap outcomes.
const (
	BootstrapNoSession = "no_session"
	BootstrapRestored  = "restored"
	BootstrapCleared   = "cleared"
	BootstrapOffline   = "offline"
	BootstrapFailed    = "failed"
)

// Verification outcomes.
const (
	VerifyValid     = "valid"
	VerifyRefreshed = "refreshed"
	VerifyExpired   = "expired"
	VerifyTransient = "transient"
	VerifyNoToken   = "no_token"
	VerifyFailed    = "failed"
)

// Registry holds all session and API metrics.
type Registry struct {
	registry *prometheus.Registry

	BootstrapTotal    *prometheus.CounterVec
	VerifyTotal       *prometheus.CounterVec
	VerifyShared      prometheus.Counter
	TokenRefreshTotal *prometheus.CounterVec
	SignInTotal       *prometheus.CounterVec
	Authenticated     prometheus.Gauge

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with every metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		BootstrapTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "bootstrap_total",
			Help:      "Session bootstraps by outcome.",
		}, []string{"outcome"}),
		VerifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "verify_total",
			Help:      "Session verifications by outcome.",
		}, []string{"outcome"}),
		VerifyShared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "verify_shared_total",
			Help:      "Verification calls that joined an in-flight verification.",
		}),
		TokenRefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "token_refresh_total",
			Help:      "Bearer token refresh attempts by result.",
		}, []string{"result"}),
		SignInTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "sign_in_total",
			Help:      "Successful sign-ins by method (login, register).",
		}, []string{"method"}),
		Authenticated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "authenticated",
			Help:      "1 while a user is signed in.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by method and status class.",
		}, []string{"method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
	}

	r.registry.MustRegister(
		r.BootstrapTotal,
		r.VerifyTotal,
		r.VerifyShared,
		r.TokenRefreshTotal,
		r.SignInTotal,
		r.Authenticated,
		r.RequestsTotal,
		r.RequestDuration,
		collectors.NewGoCollector(),
	)

	return r
}

// Registerer exposes the underlying registry for extra collectors
// (e.g. badger size gauges).
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for reads.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveRequest records one API round trip. status 0 means no response.
func (r *Registry) ObserveRequest(method string, status int, elapsed time.Duration) {
	r.RequestsTotal.WithLabelValues(method, StatusClass(status)).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// SetAuthenticated mirrors the signed-in flag.
func (r *Registry) SetAuthenticated(v bool) {
	if v {
		r.Authenticated.Set(1)
		return
	}
	r.Authenticated.Set(0)
}

// WriteText writes every bunda_* family in the Prometheus text format.
// Go runtime families are skipped unless all is set.
func (r *Registry) WriteText(w io.Writer, all bool) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if !all && !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// StatusClass buckets an HTTP status into "2xx".."5xx", or "error" for 0.
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
