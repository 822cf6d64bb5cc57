package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// Kind classifies a routing failure for retry decisions.
type Kind string

const (
	// KindStoreUnavailable marks transient store failures (timeouts,
	// connection errors). Safe to retry the whole delivery.
	KindStoreUnavailable Kind = "store_unavailable"
	// KindMalformedRecord marks a stored row that fails shape validation.
	// Non-retryable for that record; resolution continues past it.
	KindMalformedRecord Kind = "malformed_record"
	// KindConcurrencyConflict marks a per-customer lock that could not be
	// acquired within the bounded wait. Retryable.
	KindConcurrencyConflict Kind = "concurrency_conflict"
)

// RoutingError is the typed failure surfaced through the Error decision
// variant. It never escapes the resolver contract as a panic or bare error.
type RoutingError struct {
	Kind       Kind
	Op         string
	CustomerID string
	cause      error
}

func (e *RoutingError) Error() string {
	msg := fmt.Sprintf("%s: %s failed", e.Kind, e.Op)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *RoutingError) Unwrap() error {
	return e.cause
}

// Retryable reports whether the caller may safely retry the delivery.
func (e *RoutingError) Retryable() bool {
	return e.Kind == KindStoreUnavailable || e.Kind == KindConcurrencyConflict
}

// ToHTTPError maps the routing error onto the API error contract.
func (e *RoutingError) ToHTTPError() *httperror.HTTPError {
	status := http.StatusServiceUnavailable
	if e.Kind == KindMalformedRecord {
		status = http.StatusUnprocessableEntity
	}
	return httperror.NewHTTPError(status, e.Error()).
		AddMetaValue("kind", string(e.Kind)).
		AddMetaValue("op", e.Op)
}

// StoreUnavailable wraps a transient store failure.
func StoreUnavailable(op, customerID string, cause error) *RoutingError {
	return &RoutingError{Kind: KindStoreUnavailable, Op: op, CustomerID: customerID, cause: cause}
}

// MalformedRecord wraps a row that failed shape validation.
func MalformedRecord(op, customerID string, cause error) *RoutingError {
	return &RoutingError{Kind: KindMalformedRecord, Op: op, CustomerID: customerID, cause: cause}
}

// ConcurrencyConflict wraps a lock acquisition timeout.
func ConcurrencyConflict(op, customerID string, cause error) *RoutingError {
	return &RoutingError{Kind: KindConcurrencyConflict, Op: op, CustomerID: customerID, cause: cause}
}

// KindOf extracts the failure kind, or empty when err is not a RoutingError.
func KindOf(err error) Kind {
	var re *RoutingError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsRetryable reports whether err is a retryable routing failure.
func IsRetryable(err error) bool {
	var re *RoutingError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return false
}
