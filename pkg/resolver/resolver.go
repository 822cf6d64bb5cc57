// Package resolver decides which tenant an inbound customer message belongs
// to. Resolution runs three tiers in strict order, short-circuiting on the
// first match: active session, durable mappings, then referral.
package resolver

import (
	"context"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	cerrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Config tunes the resolver.
type Config struct {
	// SessionWindow is how far back a session still carries affinity.
	SessionWindow time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SessionWindow: models.SessionWindow,
	}
}

// Resolver is stateless and safe for concurrent use across customers.
// Same-customer serialization is the conversation machine's job, not ours.
type Resolver struct {
	store  store.Store
	writer *SessionWriter
	logger ectologger.Logger
	config Config
}

// New creates a resolver.
func New(s store.Store, writer *SessionWriter, logger ectologger.Logger, config Config) *Resolver {
	if config.SessionWindow <= 0 {
		config.SessionWindow = models.SessionWindow
	}
	return &Resolver{
		store:  s,
		writer: writer,
		logger: logger,
		config: config,
	}
}

// Resolve produces a routing decision for an inbound message. Store-read
// failures surface as the Error variant; they are never treated as "not
// found", which would misroute returning customers.
func (r *Resolver) Resolve(ctx context.Context, customerID, messageText string) models.RoutingDecision {
	ctx, span := tracing.StartSpan(ctx, "Resolver.Resolve")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	}()

	now := time.Now().UTC()
	windowStart := now.Add(-r.config.SessionWindow)

	// Tier 1: session affinity
	session, err := r.store.FindActiveSession(ctx, customerID, windowStart)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Session lookup failed")
		metrics.DecisionsTotal.WithLabelValues("error", "session").Inc()
		return models.ErrorDecision(err)
	}
	if session != nil {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"customer_id": customerID,
			"tenant_id":   session.TenantID,
		}).Debug("Routed by active session")
		metrics.DecisionsTotal.WithLabelValues("route", "session").Inc()
		r.writer.Record(ctx, customerID, session.TenantID)
		return models.RouteTo(session.TenantID)
	}

	// Tier 2: durable mappings
	mappings, err := r.store.FindMappings(ctx, customerID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Mapping lookup failed")
		metrics.DecisionsTotal.WithLabelValues("error", "mapping").Inc()
		return models.ErrorDecision(err)
	}

	valid := ectolinq.Filter(mappings, func(m *models.Mapping) bool {
		return m.IsValid()
	})
	if len(valid) < len(mappings) {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"customer_id": customerID,
			"skipped":     len(mappings) - len(valid),
		}).Warn("Skipped malformed mapping rows")
	}

	candidates := dedupeCandidates(valid)

	switch len(candidates) {
	case 0:
		// Tier 3: referral. The message text is evaluated as a
		// business-name query by the search collaborator, not here.
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"customer_id": customerID,
			"text_len":    len(messageText),
		}).Debug("No session or mapping; asking for referral")
		metrics.DecisionsTotal.WithLabelValues("ask_referral", "referral").Inc()
		return models.AskReferral()
	case 1:
		tenantID := candidates[0].TenantID
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"customer_id": customerID,
			"tenant_id":   tenantID,
		}).Debug("Routed by single mapping")
		metrics.DecisionsTotal.WithLabelValues("route", "mapping").Inc()
		r.writer.Record(ctx, customerID, tenantID)
		return models.RouteTo(tenantID)
	default:
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"customer_id": customerID,
			"candidates":  len(candidates),
		}).Debug("Multiple mappings; asking for selection")
		metrics.DecisionsTotal.WithLabelValues("ask_selection", "mapping").Inc()
		return models.AskSelection(candidates)
	}
}

// Writer exposes the session writer so the conversation machine can reuse
// the same side-effect semantics after a selection or confirmation.
func (r *Resolver) Writer() *SessionWriter {
	return r.writer
}

// dedupeCandidates collapses repeated tenants while preserving mapping
// order.
func dedupeCandidates(mappings []*models.Mapping) []models.TenantSummary {
	seen := make(map[string]bool, len(mappings))
	candidates := make([]models.TenantSummary, 0, len(mappings))
	for _, m := range mappings {
		if seen[m.TenantID] {
			continue
		}
		seen[m.TenantID] = true
		candidates = append(candidates, m.Summary())
	}
	return candidates
}

// Retryable reports whether a decision's error permits retrying the whole
// delivery.
func Retryable(d models.RoutingDecision) bool {
	return d.Kind == models.DecisionError && cerrors.IsRetryable(d.Err)
}
