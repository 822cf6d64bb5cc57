package models

import "time"

// Mapping is a durable record that a customer has previously dealt with a
// tenant. Tenant display fields are denormalized onto the mapping so
// disambiguation prompts never need a tenant lookup.
type Mapping struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customer_id"`
	TenantID      string    `json:"tenant_id"`
	TenantName    string    `json:"tenant_name"`
	BusinessLabel string    `json:"business_label"`
	CreatedAt     time.Time `json:"created_at"`
}

// Summary returns the tenant summary shown to a customer during
// disambiguation.
func (m *Mapping) Summary() TenantSummary {
	return TenantSummary{
		TenantID:      m.TenantID,
		DisplayName:   m.TenantName,
		BusinessLabel: m.BusinessLabel,
	}
}

// IsValid reports whether the mapping passes basic shape validation. Rows
// failing this are skipped during resolution rather than aborting it.
func (m *Mapping) IsValid() bool {
	return m.CustomerID != "" && m.TenantID != ""
}
