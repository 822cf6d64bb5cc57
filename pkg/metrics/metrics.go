// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal tracks routing decisions by outcome and the tier that
	// produced them (session, mapping, referral, selection, confirmation).
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "routing",
			Name:      "decisions_total",
			Help:      "Total number of routing decisions by outcome and tier",
		},
		[]string{"outcome", "tier"},
	)

	// SessionUpsertFailures tracks best-effort session writes that failed
	// after a decision was already computed.
	SessionUpsertFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "routing",
			Name:      "session_upsert_failures_total",
			Help:      "Total number of failed best-effort session upserts",
		},
	)

	// LockAcquisitionsTotal tracks per-customer lock attempts by result
	LockAcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "conversation",
			Name:      "lock_acquisitions_total",
			Help:      "Total number of per-customer lock acquisitions by result",
		},
		[]string{"result"},
	)

	// PendingExpiredTotal tracks disambiguations abandoned by TTL expiry
	PendingExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "conversation",
			Name:      "pending_expired_total",
			Help:      "Total number of pending disambiguations that expired before an answer",
		},
	)

	// InboundMessagesTotal tracks inbound dispatcher messages by status
	InboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dispatcher",
			Name:      "inbound_messages_total",
			Help:      "Total number of inbound messages processed by status",
		},
		[]string{"status"},
	)

	// ResolveDuration tracks end-to-end resolution latency
	ResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "routing",
			Name:      "resolve_duration_seconds",
			Help:      "Duration of routing resolution in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// ReferralSearchesTotal tracks business-name searches by result
	ReferralSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "referral",
			Name:      "searches_total",
			Help:      "Total number of referral business-name searches by result",
		},
		[]string{"result"},
	)
)
