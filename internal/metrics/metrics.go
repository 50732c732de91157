// Package metrics provides Prometheus instrumentation for token issuing,
// credential gating and the HTTP surface.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all yourauth metrics
	Namespace = "yourauth"

	// Label names
	LabelKind   = "kind"
	LabelResult = "result"
	LabelGate   = "gate"
	LabelPath   = "path"
	LabelMethod = "method"
	LabelRoute  = "route"
	LabelCode   = "code"

	// Token kinds
	KindAccess  = "access"
	KindRefresh = "refresh"

	// Gate names
	GateDeveloper = "developer"
	GateSession   = "session"
	GateAPIKey    = "api_key"

	// Gate paths
	PathJWT    = "jwt"
	PathAPIKey = "api_key"
	PathNone   = "none"

	// Results
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// TokensIssued counts signed tokens by kind.
	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tokens_issued_total",
			Help:      "Total number of tokens issued by kind",
		},
		[]string{LabelKind},
	)

	// TokenVerifications counts verification attempts by kind and result.
	TokenVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "token_verifications_total",
			Help:      "Total number of token verifications by kind and result",
		},
		[]string{LabelKind, LabelResult},
	)

	// GateDecisions counts credential gate outcomes. Path records which
	// attempt authorized the request, or "none" on rejection.
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "gate_decisions_total",
			Help:      "Total number of credential gate decisions by gate, path, and result",
		},
		[]string{LabelGate, LabelPath, LabelResult},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code",
		},
		[]string{LabelMethod, LabelRoute, LabelCode},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelRoute},
	)

	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

func RecordTokenIssued(kind string) {
	if !enabled.Load() {
		return
	}
	TokensIssued.WithLabelValues(kind).Inc()
}

func RecordTokenVerification(kind string, err error) {
	if !enabled.Load() {
		return
	}
	TokenVerifications.WithLabelValues(kind, result(err)).Inc()
}

// RecordGateDecision records a gate outcome. Pass PathNone with a non-nil
// error for rejections.
func RecordGateDecision(gate, path string, err error) {
	if !enabled.Load() {
		return
	}
	GateDecisions.WithLabelValues(gate, path, result(err)).Inc()
}

func RecordHTTPRequest(method, route, code string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
func Disable() {
	enabled.Store(false)
}

func IsEnabled() bool {
	return enabled.Load()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
