package tenant

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	tenantsTable = "tenants"
)

// TenantRow represents the database row for a tenant
type TenantRow struct {
	ID          sql.NullString                        `db:"id"`
	DisplayName sql.NullString                        `db:"display_name"`
	Profile     database.JSONB[models.TenantProfile]  `db:"profile"`
	CreatedAt   sql.NullTime                          `db:"created_at"`
	UpdatedAt   sql.NullTime                          `db:"updated_at"`
}

var tenantStruct = database.NewStruct(new(TenantRow))

// FromTenant converts a domain model to a database row
func FromTenant(t *models.Tenant) *TenantRow {
	return &TenantRow{
		ID:          sql.NullString{String: t.ID, Valid: t.ID != ""},
		DisplayName: sql.NullString{String: t.DisplayName, Valid: t.DisplayName != ""},
		Profile:     database.JSONB[models.TenantProfile]{Data: t.Profile},
		CreatedAt:   sql.NullTime{Time: t.CreatedAt, Valid: !t.CreatedAt.IsZero()},
		UpdatedAt:   sql.NullTime{Time: t.UpdatedAt, Valid: !t.UpdatedAt.IsZero()},
	}
}

// ToTenant converts a database row to a domain model
func ToTenant(row *TenantRow) *models.Tenant {
	return &models.Tenant{
		ID:          row.ID.String,
		DisplayName: row.DisplayName.String,
		Profile:     row.Profile.Data,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

// ToTenants converts a slice of database rows to domain models
func ToTenants(rows []TenantRow) []*models.Tenant {
	tenants := make([]*models.Tenant, len(rows))
	for i, row := range rows {
		tenants[i] = ToTenant(&row)
	}
	return tenants
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
