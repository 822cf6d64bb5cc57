// Package conversation tracks a customer who has been asked to pick among
// tenants or confirm a referral, across inbound messages, until resolved or
// abandoned. All state lives in the store; the machine itself is stateless
// and safe to share.
package conversation

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	cerrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/resolver"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// State is the conversation state derived from stored pending records.
type State string

const (
	StateIdle                         State = "idle"
	StateAwaitingSelection            State = "awaiting_selection"
	StateAwaitingReferralConfirmation State = "awaiting_referral_confirmation"
)

// Config tunes the machine.
type Config struct {
	// PendingTTL is how long a disambiguation ask stays answerable.
	PendingTTL time.Duration
	// LockTTL bounds how long a crashed holder can block a customer.
	LockTTL time.Duration
	// LockWait bounds how long a message waits for its customer's lock
	// before surfacing a concurrency conflict.
	LockWait time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PendingTTL: models.DefaultPendingTTL,
		LockTTL:    10 * time.Second,
		LockWait:   2 * time.Second,
	}
}

// Machine drives the disambiguation conversation. Every entry point runs
// inside the customer's lock so near-simultaneous deliveries (duplicate
// webhooks) cannot both consume the same pending state.
type Machine struct {
	store    store.Store
	resolver *resolver.Resolver
	locker   CustomerLocker
	logger   ectologger.Logger
	config   Config
	mappings MappingEnsurer
}

// MappingEnsurer persists a customer-tenant mapping idempotently. Optional;
// when set, a confirmed referral also becomes a durable mapping so future
// resolution finds the tenant without another search.
type MappingEnsurer interface {
	Ensure(ctx context.Context, m *models.Mapping) error
}

// NewMachine creates a conversation machine.
func NewMachine(s store.Store, r *resolver.Resolver, locker CustomerLocker, logger ectologger.Logger, config Config) *Machine {
	if config.PendingTTL <= 0 {
		config.PendingTTL = models.DefaultPendingTTL
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 10 * time.Second
	}
	if config.LockWait <= 0 {
		config.LockWait = 2 * time.Second
	}
	return &Machine{
		store:    s,
		resolver: r,
		locker:   locker,
		logger:   logger,
		config:   config,
	}
}

// SetMappingEnsurer enables durable mapping creation on confirmed referrals.
func (m *Machine) SetMappingEnsurer(e MappingEnsurer) {
	m.mappings = e
}

// HandleMessage processes one inbound message for a customer and returns the
// routing decision.
func (m *Machine) HandleMessage(ctx context.Context, customerID, messageText string) models.RoutingDecision {
	ctx, span := tracing.StartSpan(ctx, "Machine.HandleMessage")
	defer span.End()

	var decision models.RoutingDecision
	err := m.withCustomerLock(ctx, customerID, func(ctx context.Context) {
		decision = m.handleLocked(ctx, customerID, messageText)
	})
	if err != nil {
		return models.ErrorDecision(err)
	}
	return decision
}

// ProposeReferral records that a business-name search matched a tenant and
// the customer must confirm it before routing. Called by the dispatcher
// after an AskReferral decision.
func (m *Machine) ProposeReferral(ctx context.Context, customerID string, match models.TenantSummary) error {
	ctx, span := tracing.StartSpan(ctx, "Machine.ProposeReferral")
	defer span.End()

	var setErr error
	err := m.withCustomerLock(ctx, customerID, func(ctx context.Context) {
		setErr = m.store.SetPendingDisambiguation(ctx, &models.PendingDisambiguation{
			CustomerID: customerID,
			Kind:       models.PendingReferral,
			Candidates: []models.TenantSummary{match},
			CreatedAt:  time.Now().UTC(),
		}, m.config.PendingTTL)
	})
	if err != nil {
		return err
	}
	return setErr
}

// StateOf reports the customer's current conversation state.
func (m *Machine) StateOf(ctx context.Context, customerID string) (State, error) {
	pending, err := m.store.GetPendingDisambiguation(ctx, customerID)
	if err != nil {
		return StateIdle, err
	}
	if pending == nil || pending.Expired(time.Now().UTC(), m.config.PendingTTL) {
		return StateIdle, nil
	}
	if pending.Kind == models.PendingReferral {
		return StateAwaitingReferralConfirmation, nil
	}
	return StateAwaitingSelection, nil
}

func (m *Machine) withCustomerLock(ctx context.Context, customerID string, fn func(ctx context.Context)) error {
	lock, err := m.locker.TryAcquire(ctx, customerID, m.config.LockTTL, m.config.LockWait)
	if err != nil {
		metrics.LockAcquisitionsTotal.WithLabelValues("timeout").Inc()
		m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": customerID,
		}).Warn("Could not acquire customer lock")
		return cerrors.ConcurrencyConflict("conversation.lock", customerID, err)
	}
	metrics.LockAcquisitionsTotal.WithLabelValues("acquired").Inc()
	defer func() {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			m.logger.WithContext(ctx).WithError(releaseErr).Warn("Failed to release customer lock")
		}
	}()

	fn(ctx)
	return nil
}

func (m *Machine) handleLocked(ctx context.Context, customerID, messageText string) models.RoutingDecision {
	pending, err := m.store.GetPendingDisambiguation(ctx, customerID)
	if err != nil {
		return models.ErrorDecision(err)
	}

	if pending != nil && pending.Expired(time.Now().UTC(), m.config.PendingTTL) {
		metrics.PendingExpiredTotal.Inc()
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"customer_id": customerID,
			"kind":        pending.Kind,
		}).Debug("Pending disambiguation expired")
		if err := m.store.ClearPendingDisambiguation(ctx, customerID); err != nil {
			return models.ErrorDecision(err)
		}
		pending = nil
	}

	if pending != nil {
		switch pending.Kind {
		case models.PendingReferral:
			return m.answerReferral(ctx, customerID, messageText, pending)
		default:
			return m.answerSelection(ctx, customerID, messageText, pending)
		}
	}

	return m.resolveFresh(ctx, customerID, messageText)
}

// answerSelection consumes an AwaitingSelection state. A reply naming a
// candidate routes to it; anything else abandons the ask silently and the
// message is re-resolved from scratch.
func (m *Machine) answerSelection(ctx context.Context, customerID, messageText string, pending *models.PendingDisambiguation) models.RoutingDecision {
	selected, ok := parseSelection(messageText, pending.Candidates)

	// The pending state is consumed either way. The clear happens before
	// any routing side effect so a failure leaves state untouched and
	// surfaces as an error, never a half-applied transition.
	if err := m.store.ClearPendingDisambiguation(ctx, customerID); err != nil {
		return models.ErrorDecision(err)
	}

	if !ok {
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"customer_id": customerID,
		}).Debug("Selection abandoned; re-resolving message")
		metrics.DecisionsTotal.WithLabelValues("abandoned", "selection").Inc()
		return m.resolveFresh(ctx, customerID, messageText)
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"customer_id": customerID,
		"tenant_id":   selected.TenantID,
	}).Info("Customer selected tenant")
	metrics.DecisionsTotal.WithLabelValues("route", "selection").Inc()
	m.resolver.Writer().Record(ctx, customerID, selected.TenantID)
	return models.RouteTo(selected.TenantID)
}

// answerReferral consumes an AwaitingReferralConfirmation state.
func (m *Machine) answerReferral(ctx context.Context, customerID, messageText string, pending *models.PendingDisambiguation) models.RoutingDecision {
	if err := m.store.ClearPendingDisambiguation(ctx, customerID); err != nil {
		return models.ErrorDecision(err)
	}

	if len(pending.Candidates) == 1 && isAffirmative(messageText) {
		match := pending.Candidates[0]
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"customer_id": customerID,
			"tenant_id":   match.TenantID,
		}).Info("Customer confirmed referral")
		metrics.DecisionsTotal.WithLabelValues("route", "confirmation").Inc()
		m.ensureMapping(ctx, customerID, match)
		m.resolver.Writer().Record(ctx, customerID, match.TenantID)
		return models.RouteTo(match.TenantID)
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"customer_id": customerID,
	}).Debug("Referral rejected; re-resolving message")
	metrics.DecisionsTotal.WithLabelValues("abandoned", "confirmation").Inc()
	return m.resolveFresh(ctx, customerID, messageText)
}

// ensureMapping records a durable mapping for a confirmed referral. Best
// effort: a write failure is logged but never blocks the route, matching the
// session upsert contract.
func (m *Machine) ensureMapping(ctx context.Context, customerID string, match models.TenantSummary) {
	if m.mappings == nil {
		return
	}
	err := m.mappings.Ensure(ctx, &models.Mapping{
		CustomerID:    customerID,
		TenantID:      match.TenantID,
		TenantName:    match.DisplayName,
		BusinessLabel: match.BusinessLabel,
	})
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": customerID,
			"tenant_id":   match.TenantID,
		}).Warn("Failed to persist referral mapping")
	}
}

// resolveFresh runs the resolver and, when it asks for a selection, records
// the pending state in the same critical section.
func (m *Machine) resolveFresh(ctx context.Context, customerID, messageText string) models.RoutingDecision {
	decision := m.resolver.Resolve(ctx, customerID, messageText)

	if decision.Kind == models.DecisionAskSelection {
		err := m.store.SetPendingDisambiguation(ctx, &models.PendingDisambiguation{
			CustomerID: customerID,
			Kind:       models.PendingSelection,
			Candidates: decision.Candidates,
			CreatedAt:  time.Now().UTC(),
		}, m.config.PendingTTL)
		if err != nil {
			// Without the pending record the customer's answer could
			// never be interpreted; fail the transition whole.
			return models.ErrorDecision(err)
		}
	}

	return decision
}

// parseSelection interprets a reply as a 1-based candidate index or a
// case-insensitive display-name match.
func parseSelection(messageText string, candidates []models.TenantSummary) (models.TenantSummary, bool) {
	text := strings.TrimSpace(messageText)
	if text == "" {
		return models.TenantSummary{}, false
	}

	if idx, err := strconv.Atoi(text); err == nil {
		if idx >= 1 && idx <= len(candidates) {
			return candidates[idx-1], true
		}
		return models.TenantSummary{}, false
	}

	for _, c := range candidates {
		if strings.EqualFold(text, c.DisplayName) {
			return c, true
		}
	}
	return models.TenantSummary{}, false
}

// isAffirmative reports whether a reply confirms a referral match.
func isAffirmative(messageText string) bool {
	switch strings.ToLower(strings.TrimSpace(messageText)) {
	case "yes", "y", "yeah", "yep", "ok", "okay", "confirm", "sure":
		return true
	}
	return false
}
