package session

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/database"
	cerrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SessionRepository defines the interface for session-affinity data access
type SessionRepository interface {
	FindActive(ctx context.Context, customerID string, windowStart time.Time) (*models.Session, error)
	Upsert(ctx context.Context, customerID, tenantID string, now time.Time) error
}

// Repository implements SessionRepository against Postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new session repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindActive retrieves the most recently updated session for a customer
// within the activity window. Returns nil when no active session exists; a
// store failure is always surfaced as an error, never as absence.
func (r *Repository) FindActive(ctx context.Context, customerID string, windowStart time.Time) (*models.Session, error) {
	ctx, span := tracing.StartSpan(ctx, "SessionRepository.FindActive")
	defer span.End()

	sb := sessionStruct.SelectFrom(sessionsTable)
	sb.Where(
		sb.Equal("customer_id", customerID),
		sb.GreaterEqualThan("last_message_at", windowStart),
	)
	sb.OrderBy("last_message_at").Desc()
	sb.Limit(5)

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"customer_id":  customerID,
		"window_start": windowStart,
	}).Debug("Finding active session")

	var rows []SessionRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find active session")
		return nil, cerrors.StoreUnavailable("session.FindActive", customerID, err)
	}

	// Rows are newest-first; a malformed row is skipped rather than
	// aborting the lookup.
	for i := range rows {
		if !rows[i].IsWellFormed() {
			r.logger.WithContext(ctx).WithFields(map[string]any{
				"customer_id": customerID,
			}).Warn("Skipping malformed session row")
			continue
		}
		return ToSession(&rows[i]), nil
	}

	return nil, nil
}

// Upsert creates or refreshes the customer's session. The stored
// last_message_at never moves backwards, so duplicate webhook deliveries
// cannot age a session.
func (r *Repository) Upsert(ctx context.Context, customerID, tenantID string, now time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "SessionRepository.Upsert")
	defer span.End()

	row := FromSession(&models.Session{
		CustomerID:    customerID,
		TenantID:      tenantID,
		LastMessageAt: now.UTC(),
	})

	ib := sessionStruct.InsertInto(sessionsTable, row)
	ub := ib.OnConflict("customer_id")
	ub.Set(
		ub.Assign("tenant_id", database.Excluded("tenant_id")),
		"last_message_at = GREATEST(sessions.last_message_at, EXCLUDED.last_message_at)",
	)

	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"customer_id": customerID,
		"tenant_id":   tenantID,
	}).Debug("Upserting session")

	_, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert session")
		return cerrors.StoreUnavailable("session.Upsert", customerID, err)
	}

	return nil
}
