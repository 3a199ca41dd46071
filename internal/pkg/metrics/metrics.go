// Package metrics defines and registers all custom Prometheus metrics for
// the family-budget API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry at package init via
// promauto; expose them by mounting promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "budget"

// ── Resolver metrics ──────────────────────────────────────────────────────────

// ResolutionsTotal counts completed identity resolutions.
// Label:
//   - outcome: "ok" or "error"
var ResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolutions_total",
		Help:      "Total number of identity resolutions executed, by outcome.",
	},
	[]string{"outcome"},
)

// ResolveCacheTotal counts snapshot cache lookups.
// Label:
//   - result: "hit" (fresh snapshot served) or "miss"
var ResolveCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolve_cache_total",
		Help:      "Total number of snapshot cache lookups, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// ResolveSharedTotal counts callers that attached to an already in-flight
// resolution instead of starting their own.
var ResolveSharedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolve_shared_total",
		Help:      "Total number of resolve calls deduplicated by the single-flight guard.",
	},
)

// ResolveStaleServedTotal counts resolutions that failed but were answered
// from a stale cached snapshot.
var ResolveStaleServedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolve_stale_served_total",
		Help:      "Total number of failed resolutions served from a stale snapshot.",
	},
)

// ResolutionDuration measures how long one full resolution takes, store
// round-trips included.
var ResolutionDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "resolution_duration_seconds",
		Help:      "Duration of a full identity resolution execution.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Directory metrics ─────────────────────────────────────────────────────────

// AccountsBootstrappedTotal counts personal accounts auto-created on first
// resolution.
var AccountsBootstrappedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_bootstrapped_total",
		Help:      "Total number of personal accounts auto-created.",
	},
)

// ── Invitation metrics ────────────────────────────────────────────────────────

var InvitationsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invitations_created_total",
		Help:      "Total number of invitations created.",
	},
)

var InvitationsAcceptedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invitations_accepted_total",
		Help:      "Total number of invitations accepted.",
	},
)

var InvitationsRevokedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invitations_revoked_total",
		Help:      "Total number of invitations revoked.",
	},
)

// OrphansReapedTotal counts orphaned invitations removed, whether by the
// periodic sweep or by accept-time self-healing.
var OrphansReapedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invitation_orphans_reaped_total",
		Help:      "Total number of orphaned invitations garbage-collected.",
	},
)

// DispatchFailuresTotal counts failed notification sends. Dispatch is best
// effort, so failures surface here and in logs rather than as API errors.
var DispatchFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_dispatch_failures_total",
		Help:      "Total number of invitation notifications that failed to send.",
	},
)
