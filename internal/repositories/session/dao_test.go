package session

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestSessionRowRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	s := &models.Session{
		CustomerID:    "+15551234567",
		TenantID:      "4f2c6d1a-9f0b-4e51-8c2d-7e6a1b3c9d0e",
		LastMessageAt: now,
	}

	got := ToSession(FromSession(s))
	assert.Equal(t, s, got)
}

func TestSessionRowIsWellFormed(t *testing.T) {
	tests := []struct {
		name string
		row  SessionRow
		want bool
	}{
		{
			name: "complete row",
			row: SessionRow{
				CustomerID:    sql.NullString{String: "cust-1", Valid: true},
				TenantID:      sql.NullString{String: "tenant-1", Valid: true},
				LastMessageAt: sql.NullTime{Time: time.Now(), Valid: true},
			},
			want: true,
		},
		{
			name: "missing tenant",
			row: SessionRow{
				CustomerID:    sql.NullString{String: "cust-1", Valid: true},
				LastMessageAt: sql.NullTime{Time: time.Now(), Valid: true},
			},
			want: false,
		},
		{
			name: "missing timestamp",
			row: SessionRow{
				CustomerID: sql.NullString{String: "cust-1", Valid: true},
				TenantID:   sql.NullString{String: "tenant-1", Valid: true},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.row.IsWellFormed())
		})
	}
}
