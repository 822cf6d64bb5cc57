package mapping

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/database"
	cerrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/google/uuid"
)

// MappingRepository defines the interface for customer-tenant mapping access
type MappingRepository interface {
	FindByCustomer(ctx context.Context, customerID string) ([]*models.Mapping, error)
	Ensure(ctx context.Context, m *models.Mapping) error
}

// Repository implements MappingRepository against Postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new mapping repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindByCustomer retrieves all mappings for a customer in creation order.
// Zero mappings is an empty slice with a nil error; a store failure is
// always an error, never conflated with "no mappings".
func (r *Repository) FindByCustomer(ctx context.Context, customerID string) ([]*models.Mapping, error) {
	ctx, span := tracing.StartSpan(ctx, "MappingRepository.FindByCustomer")
	defer span.End()

	sb := mappingStruct.SelectFrom(mappingsTable)
	sb.Where(sb.Equal("customer_id", customerID))
	sb.OrderBy("created_at").Asc()

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"customer_id": customerID,
	}).Debug("Listing mappings")

	var rows []MappingRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list mappings")
		return nil, cerrors.StoreUnavailable("mapping.FindByCustomer", customerID, err)
	}

	return ToMappings(rows), nil
}

// Ensure records that a customer has dealt with a tenant. Re-recording an
// existing pair is a no-op, which keeps the dispatcher's at-least-once
// delivery idempotent.
func (r *Repository) Ensure(ctx context.Context, m *models.Mapping) error {
	ctx, span := tracing.StartSpan(ctx, "MappingRepository.Ensure")
	defer span.End()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = Now()
	}

	ib := mappingStruct.InsertInto(mappingsTable, FromMapping(m)).OnConflictDoNothing()
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"customer_id": m.CustomerID,
		"tenant_id":   m.TenantID,
	}).Debug("Ensuring mapping")

	_, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to ensure mapping")
		return cerrors.StoreUnavailable("mapping.Ensure", m.CustomerID, err)
	}

	return nil
}
