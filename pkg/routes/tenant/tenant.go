package tenant

import (
	"net/http"

	"github.com/Gobusters/ectoinject"
	tenantrepo "github.com/Ramsey-B/clover/internal/repositories/tenant"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
	"github.com/labstack/echo/v4"
)

// Register registers tenant routes
func Register(g *echo.Group) {
	g.POST("/tenants", CreateTenant)
	g.GET("/tenants/:id", GetTenant)
	g.GET("/tenants", SearchTenants)
}

type CreateTenantRequest struct {
	DisplayName string               `json:"display_name" validate:"required"`
	Profile     models.TenantProfile `json:"profile"`
}

// CreateTenant registers a new tenant able to receive routed conversations.
func CreateTenant(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "tenant.CreateTenant")
	defer span.End()

	req, err := utils.BindRequest[CreateTenantRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[tenantrepo.TenantRepository](ctx)
	if err != nil {
		return err
	}

	created, err := repo.Create(ctx, &models.Tenant{
		DisplayName: req.DisplayName,
		Profile:     req.Profile,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// GetTenant fetches a tenant by ID.
func GetTenant(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "tenant.GetTenant")
	defer span.End()

	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}

	ctx, repo, err := ectoinject.GetContext[tenantrepo.TenantRepository](ctx)
	if err != nil {
		return err
	}

	tenant, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tenant)
}

const defaultSearchLimit = 10

type SearchTenantsRequest struct {
	Query string `query:"q" validate:"required"`
	Limit int    `query:"limit"`
}

// SearchTenants finds tenants whose display name matches the query.
func SearchTenants(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "tenant.SearchTenants")
	defer span.End()

	req, err := utils.BindRequest[SearchTenantsRequest](c)
	if err != nil {
		return err
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}

	ctx, repo, err := ectoinject.GetContext[tenantrepo.TenantRepository](ctx)
	if err != nil {
		return err
	}

	tenants, err := repo.Search(ctx, req.Query, req.Limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tenants)
}
