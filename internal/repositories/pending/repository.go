package pending

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	cerrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const keyPrefix = "pending:"

// PendingRepository defines the interface for pending-disambiguation state
type PendingRepository interface {
	Get(ctx context.Context, customerID string) (*models.PendingDisambiguation, error)
	Set(ctx context.Context, pending *models.PendingDisambiguation, ttl time.Duration) error
	Clear(ctx context.Context, customerID string) error
}

// Repository stores pending disambiguation state in Redis with a key TTL.
// Expiry at the store layer is the backstop; callers also check CreatedAt.
type Repository struct {
	client *redis.Client
	logger ectologger.Logger
}

// NewRepository creates a new pending-disambiguation repository
func NewRepository(client *redis.Client, logger ectologger.Logger) *Repository {
	return &Repository{
		client: client,
		logger: logger,
	}
}

// Get retrieves the customer's pending state, or nil when none exists
func (r *Repository) Get(ctx context.Context, customerID string) (*models.PendingDisambiguation, error) {
	ctx, span := tracing.StartSpan(ctx, "PendingRepository.Get")
	defer span.End()

	raw, err := r.client.Get(ctx, keyPrefix+customerID)
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get pending disambiguation")
		return nil, cerrors.StoreUnavailable("pending.Get", customerID, err)
	}

	var pending models.PendingDisambiguation
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Discarding malformed pending disambiguation")
		// A record we cannot read should not block new attempts.
		if delErr := r.client.Del(ctx, keyPrefix+customerID); delErr != nil {
			return nil, cerrors.StoreUnavailable("pending.Get", customerID, delErr)
		}
		return nil, nil
	}

	return &pending, nil
}

// Set records pending state, overwriting any previous record
func (r *Repository) Set(ctx context.Context, pending *models.PendingDisambiguation, ttl time.Duration) error {
	ctx, span := tracing.StartSpan(ctx, "PendingRepository.Set")
	defer span.End()

	if ttl <= 0 {
		ttl = models.DefaultPendingTTL
	}

	raw, err := json.Marshal(pending)
	if err != nil {
		return cerrors.MalformedRecord("pending.Set", pending.CustomerID, err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"customer_id": pending.CustomerID,
		"kind":        pending.Kind,
		"candidates":  len(pending.Candidates),
	}).Debug("Setting pending disambiguation")

	if err := r.client.Set(ctx, keyPrefix+pending.CustomerID, raw, ttl); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to set pending disambiguation")
		return cerrors.StoreUnavailable("pending.Set", pending.CustomerID, err)
	}

	return nil
}

// Clear removes the customer's pending state; clearing absent state is a no-op
func (r *Repository) Clear(ctx context.Context, customerID string) error {
	ctx, span := tracing.StartSpan(ctx, "PendingRepository.Clear")
	defer span.End()

	if err := r.client.Del(ctx, keyPrefix+customerID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to clear pending disambiguation")
		return cerrors.StoreUnavailable("pending.Clear", customerID, err)
	}

	return nil
}
