package mapping

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	mappingsTable = "mappings"
)

// MappingRow represents the database row for a customer-tenant mapping
type MappingRow struct {
	ID            sql.NullString `db:"id"`
	CustomerID    sql.NullString `db:"customer_id"`
	TenantID      sql.NullString `db:"tenant_id"`
	TenantName    sql.NullString `db:"tenant_name"`
	BusinessLabel sql.NullString `db:"business_label"`
	CreatedAt     sql.NullTime   `db:"created_at"`
}

var mappingStruct = database.NewStruct(new(MappingRow))

// FromMapping converts a domain model to a database row
func FromMapping(m *models.Mapping) *MappingRow {
	return &MappingRow{
		ID:            sql.NullString{String: m.ID, Valid: m.ID != ""},
		CustomerID:    sql.NullString{String: m.CustomerID, Valid: m.CustomerID != ""},
		TenantID:      sql.NullString{String: m.TenantID, Valid: m.TenantID != ""},
		TenantName:    sql.NullString{String: m.TenantName, Valid: m.TenantName != ""},
		BusinessLabel: sql.NullString{String: m.BusinessLabel, Valid: m.BusinessLabel != ""},
		CreatedAt:     sql.NullTime{Time: m.CreatedAt, Valid: !m.CreatedAt.IsZero()},
	}
}

// ToMapping converts a database row to a domain model
func ToMapping(row *MappingRow) *models.Mapping {
	return &models.Mapping{
		ID:            row.ID.String,
		CustomerID:    row.CustomerID.String,
		TenantID:      row.TenantID.String,
		TenantName:    row.TenantName.String,
		BusinessLabel: row.BusinessLabel.String,
		CreatedAt:     row.CreatedAt.Time,
	}
}

// ToMappings converts a slice of database rows to domain models
func ToMappings(rows []MappingRow) []*models.Mapping {
	mappings := make([]*models.Mapping, len(rows))
	for i, row := range rows {
		mappings[i] = ToMapping(&row)
	}
	return mappings
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
