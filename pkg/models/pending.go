package models

import "time"

// DefaultPendingTTL bounds how long a customer can sit mid-disambiguation
// before the pending state stops blocking fresh resolution attempts.
const DefaultPendingTTL = 15 * time.Minute

// PendingKind identifies what the customer was asked.
type PendingKind string

const (
	// PendingSelection means the customer was shown candidate tenants and
	// asked to pick one.
	PendingSelection PendingKind = "selection"
	// PendingReferral means a business-name search matched a tenant and the
	// customer was asked to confirm it.
	PendingReferral PendingKind = "referral"
)

// PendingDisambiguation is the ephemeral record of a customer
// mid-disambiguation. At most one exists per customer; a newer ask
// overwrites a stale one.
type PendingDisambiguation struct {
	CustomerID string          `json:"customer_id"`
	Kind       PendingKind     `json:"kind"`
	Candidates []TenantSummary `json:"candidates"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Expired reports whether the pending state has outlived its TTL. Checked on
// read in addition to store-level expiry so a stale record never blocks a new
// attempt.
func (p *PendingDisambiguation) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return now.Sub(p.CreatedAt) > ttl
}
