// Package store defines the data-access capability consumed by the routing
// resolver and the conversation state machine. Implementations surface every
// failure as an error; callers never assume a call succeeded.
package store

import (
	"context"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Store is the adapter over the three durable collections (sessions,
// mappings, tenants via denormalized mapping fields) plus the ephemeral
// pending-disambiguation state.
type Store interface {
	// FindActiveSession returns the most recently updated session for the
	// customer whose last message falls at or after windowStart, or nil
	// when none exists. A lookup failure is an error, never nil.
	FindActiveSession(ctx context.Context, customerID string, windowStart time.Time) (*models.Session, error)

	// FindMappings returns all mappings for the customer in stable creation
	// order. Zero mappings is a nil error with an empty slice.
	FindMappings(ctx context.Context, customerID string) ([]*models.Mapping, error)

	// UpsertSession creates or refreshes the customer's session affinity.
	// The stored last_message_at never moves backwards.
	UpsertSession(ctx context.Context, customerID, tenantID string, now time.Time) error

	// GetPendingDisambiguation returns the customer's pending state, or nil
	// when none exists or it has expired at the store layer.
	GetPendingDisambiguation(ctx context.Context, customerID string) (*models.PendingDisambiguation, error)

	// SetPendingDisambiguation records pending state, overwriting any
	// previous record for the customer.
	SetPendingDisambiguation(ctx context.Context, pending *models.PendingDisambiguation, ttl time.Duration) error

	// ClearPendingDisambiguation removes the customer's pending state.
	// Clearing absent state is not an error.
	ClearPendingDisambiguation(ctx context.Context, customerID string) error
}
