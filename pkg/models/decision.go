package models

// DecisionKind tags the variant of a RoutingDecision.
type DecisionKind string

const (
	// DecisionRoute means the message should be forwarded to TenantID.
	DecisionRoute DecisionKind = "route"
	// DecisionAskSelection means multiple tenants match and the customer
	// must pick one of Candidates.
	DecisionAskSelection DecisionKind = "ask_selection"
	// DecisionAskReferral means no session or mapping exists; the message
	// text should be evaluated as a business-name query.
	DecisionAskReferral DecisionKind = "ask_referral"
	// DecisionError means the store failed; the caller should treat the
	// delivery as retryable.
	DecisionError DecisionKind = "error"
)

// RoutingDecision is the resolver's output. Exactly one variant is populated
// per decision.
type RoutingDecision struct {
	Kind       DecisionKind    `json:"kind"`
	TenantID   string          `json:"tenant_id,omitempty"`
	Candidates []TenantSummary `json:"candidates,omitempty"`
	Err        error           `json:"-"`
}

// RouteTo builds a Route decision.
func RouteTo(tenantID string) RoutingDecision {
	return RoutingDecision{Kind: DecisionRoute, TenantID: tenantID}
}

// AskSelection builds a disambiguation decision. Candidate order is
// preserved from the mapping order.
func AskSelection(candidates []TenantSummary) RoutingDecision {
	return RoutingDecision{Kind: DecisionAskSelection, Candidates: candidates}
}

// AskReferral builds a referral decision.
func AskReferral() RoutingDecision {
	return RoutingDecision{Kind: DecisionAskReferral}
}

// ErrorDecision builds an error decision wrapping the store failure.
func ErrorDecision(err error) RoutingDecision {
	return RoutingDecision{Kind: DecisionError, Err: err}
}

// Reason returns the error text for an error decision, empty otherwise.
func (d RoutingDecision) Reason() string {
	if d.Err == nil {
		return ""
	}
	return d.Err.Error()
}
