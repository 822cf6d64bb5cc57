package models

import "time"

// Tenant is a business account capable of receiving routed conversations.
// Read-only from the resolver's perspective.
type Tenant struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"display_name"`
	Profile     TenantProfile `json:"profile"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TenantProfile holds display metadata, stored as a JSONB column.
type TenantProfile struct {
	BusinessLabel string   `json:"business_label,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	About         string   `json:"about,omitempty"`
}

// TenantSummary is the subset of tenant fields presented to a customer when
// they are asked to pick among candidates.
type TenantSummary struct {
	TenantID      string `json:"tenant_id"`
	DisplayName   string `json:"display_name"`
	BusinessLabel string `json:"business_label,omitempty"`
}

// Summary returns the tenant's disambiguation summary.
func (t *Tenant) Summary() TenantSummary {
	return TenantSummary{
		TenantID:      t.ID,
		DisplayName:   t.DisplayName,
		BusinessLabel: t.Profile.BusinessLabel,
	}
}
