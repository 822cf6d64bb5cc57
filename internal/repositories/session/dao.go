package session

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	sessionsTable = "sessions"
)

// SessionRow represents the database row for a session
type SessionRow struct {
	CustomerID    sql.NullString `db:"customer_id"`
	TenantID      sql.NullString `db:"tenant_id"`
	LastMessageAt sql.NullTime   `db:"last_message_at"`
}

var sessionStruct = database.NewStruct(new(SessionRow))

// FromSession converts a domain model to a database row
func FromSession(s *models.Session) *SessionRow {
	return &SessionRow{
		CustomerID:    sql.NullString{String: s.CustomerID, Valid: s.CustomerID != ""},
		TenantID:      sql.NullString{String: s.TenantID, Valid: s.TenantID != ""},
		LastMessageAt: sql.NullTime{Time: s.LastMessageAt, Valid: !s.LastMessageAt.IsZero()},
	}
}

// ToSession converts a database row to a domain model
func ToSession(row *SessionRow) *models.Session {
	return &models.Session{
		CustomerID:    row.CustomerID.String,
		TenantID:      row.TenantID.String,
		LastMessageAt: row.LastMessageAt.Time,
	}
}

// IsWellFormed reports whether the row passes basic shape validation.
// Malformed rows are logged and skipped, never returned to the resolver.
func (row *SessionRow) IsWellFormed() bool {
	return row.CustomerID.Valid && row.TenantID.Valid && row.LastMessageAt.Valid
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
