package tenant

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/database"
	cerrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/google/uuid"
)

// TenantRepository defines the interface for tenant data access
type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error)
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	Search(ctx context.Context, query string, limit int) ([]*models.Tenant, error)
}

// Repository implements TenantRepository against Postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new tenant repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create registers a new tenant
func (r *Repository) Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.Create")
	defer span.End()

	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}

	now := Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	ib := tenantStruct.InsertInto(tenantsTable, FromTenant(tenant))
	sql, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":           tenant.ID,
		"display_name": tenant.DisplayName,
	}).Debug("Creating tenant")

	_, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create tenant")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create tenant")
	}

	return tenant, nil
}

// GetByID retrieves a tenant by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.GetByID")
	defer span.End()

	sb := tenantStruct.SelectFrom(tenantsTable)
	sb.Where(sb.Equal("id", id))

	sql, args := sb.Build()

	var row TenantRow
	err := r.db.GetContext(ctx, &row, sql, args...)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "tenant not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get tenant")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get tenant")
	}

	return ToTenant(&row), nil
}

// Search finds tenants whose display name contains the query,
// case-insensitively, ordered by display name. Used by the referral search
// collaborator when a customer names a business with no prior relationship.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.Search")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}

	sb := tenantStruct.SelectFrom(tenantsTable)
	sb.Where(sb.ILike("display_name", "%"+query+"%"))
	sb.OrderBy("display_name").Asc()
	sb.Limit(limit)

	sql, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"query": query,
		"limit": limit,
	}).Debug("Searching tenants")

	var rows []TenantRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search tenants")
		return nil, cerrors.StoreUnavailable("tenant.Search", "", err)
	}

	return ToTenants(rows), nil
}
