// Package metrics defines and registers all custom Prometheus metrics for the
// DarziFlow console. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// init through promauto; importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "darziflow_console"

// ── Backend client metrics ────────────────────────────────────────────────────

// BackendRequestsTotal counts requests sent to the DarziFlow REST backend.
// Labels:
//   - method: HTTP method
//   - code: response status code, or "error" when no response arrived
var BackendRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Total number of requests sent to the REST backend.",
	},
	[]string{"method", "code"},
)

// BackendRequestDuration measures round-trip time to the REST backend.
var BackendRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of REST backend round trips.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method"},
)

// TokenRotationsTotal counts bearer tokens replaced via the x-access-token header.
var TokenRotationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rotations_total",
		Help:      "Total number of server-initiated bearer token rotations applied.",
	},
)

// ForcedLogoutsTotal counts sessions torn down because the backend answered 401.
var ForcedLogoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forced_logouts_total",
		Help:      "Total number of sessions cleared after a 401 from the backend.",
	},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "rejected" (bad credentials) or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// BootstrapsTotal counts session bootstraps by terminal state.
// Label:
//   - state: "anonymous" or "authenticated"
var BootstrapsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bootstraps_total",
		Help:      "Total number of session bootstraps, by terminal state.",
	},
	[]string{"state"},
)

// ActiveSessions tracks console sessions currently held in memory.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of console sessions held by the session registry.",
	},
)

// ── Guard metrics ─────────────────────────────────────────────────────────────

// GuardDecisionsTotal counts route guard outcomes.
// Labels:
//   - outcome: "render", "loading", "redirect_login", "redirect_interstitial"
//   - reason: why the outcome was chosen (e.g. "anonymous", "role_denied")
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by outcome and reason.",
	},
	[]string{"outcome", "reason"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts session events handled by the audit dispatcher.
// Label:
//   - result: "stored", "logged" (no repository), "duplicate", "dropped"
//     (queue full) or "error"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of session audit events, by result.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks the number of events waiting in each audit worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of events pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)
