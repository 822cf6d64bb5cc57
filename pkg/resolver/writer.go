package resolver

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/store"
)

// DefaultUpsertTimeout bounds the detached session write.
const DefaultUpsertTimeout = 3 * time.Second

// FailureReporter receives session-write failures on the observability path.
// The routing decision has already been computed when it fires.
type FailureReporter func(ctx context.Context, customerID string, err error)

// SessionWriter records session affinity after a routed decision. Writes are
// best-effort and at-least-once: a failure is reported, never propagated
// into the decision.
type SessionWriter struct {
	store    store.Store
	logger   ectologger.Logger
	timeout  time.Duration
	onFailed FailureReporter
}

// NewSessionWriter creates a session writer. onFailed may be nil.
func NewSessionWriter(s store.Store, logger ectologger.Logger, timeout time.Duration, onFailed FailureReporter) *SessionWriter {
	if timeout <= 0 {
		timeout = DefaultUpsertTimeout
	}
	return &SessionWriter{
		store:    s,
		logger:   logger,
		timeout:  timeout,
		onFailed: onFailed,
	}
}

// Record upserts the customer's session affinity. If the caller's context is
// already cancelled the write is skipped entirely; once started, the write
// runs detached from the caller so it cannot be left half-committed by a
// superseding request.
func (w *SessionWriter) Record(ctx context.Context, customerID, tenantID string) {
	if ctx.Err() != nil {
		w.logger.WithContext(ctx).WithFields(map[string]any{
			"customer_id": customerID,
			"tenant_id":   tenantID,
		}).Debug("Skipping session upsert for cancelled request")
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	if err := w.store.UpsertSession(writeCtx, customerID, tenantID, time.Now().UTC()); err != nil {
		metrics.SessionUpsertFailures.Inc()
		w.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": customerID,
			"tenant_id":   tenantID,
		}).Error("Failed to upsert session after routing")
		if w.onFailed != nil {
			w.onFailed(ctx, customerID, err)
		}
	}
}
