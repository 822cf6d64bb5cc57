package store

import (
	"context"
	"time"

	"github.com/Ramsey-B/clover/internal/repositories/mapping"
	"github.com/Ramsey-B/clover/internal/repositories/pending"
	"github.com/Ramsey-B/clover/internal/repositories/session"
	"github.com/Ramsey-B/clover/pkg/models"
)

// DefaultCallTimeout bounds every store operation. A timed-out call surfaces
// as a store error, never as absence.
const DefaultCallTimeout = 3 * time.Second

// Composite is the production Store: sessions and mappings in Postgres,
// pending disambiguation in Redis.
type Composite struct {
	sessions    session.SessionRepository
	mappings    mapping.MappingRepository
	pendings    pending.PendingRepository
	callTimeout time.Duration
}

// NewComposite wires the production store. callTimeout <= 0 falls back to
// DefaultCallTimeout.
func NewComposite(
	sessions session.SessionRepository,
	mappings mapping.MappingRepository,
	pendings pending.PendingRepository,
	callTimeout time.Duration,
) *Composite {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Composite{
		sessions:    sessions,
		mappings:    mappings,
		pendings:    pendings,
		callTimeout: callTimeout,
	}
}

func (c *Composite) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *Composite) FindActiveSession(ctx context.Context, customerID string, windowStart time.Time) (*models.Session, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.sessions.FindActive(ctx, customerID, windowStart)
}

func (c *Composite) FindMappings(ctx context.Context, customerID string) ([]*models.Mapping, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.mappings.FindByCustomer(ctx, customerID)
}

func (c *Composite) UpsertSession(ctx context.Context, customerID, tenantID string, now time.Time) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.sessions.Upsert(ctx, customerID, tenantID, now)
}

func (c *Composite) GetPendingDisambiguation(ctx context.Context, customerID string) (*models.PendingDisambiguation, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.pendings.Get(ctx, customerID)
}

func (c *Composite) SetPendingDisambiguation(ctx context.Context, p *models.PendingDisambiguation, ttl time.Duration) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.pendings.Set(ctx, p, ttl)
}

func (c *Composite) ClearPendingDisambiguation(ctx context.Context, customerID string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.pendings.Clear(ctx, customerID)
}
