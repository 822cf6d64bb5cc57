package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingError_Message(t *testing.T) {
	cause := errors.New("connection refused")
	err := StoreUnavailable("sessions.find", "cust-1", cause)

	assert.Contains(t, err.Error(), "store_unavailable")
	assert.Contains(t, err.Error(), "sessions.find")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestRetryable(t *testing.T) {
	assert.True(t, StoreUnavailable("op", "c", nil).Retryable())
	assert.True(t, ConcurrencyConflict("op", "c", nil).Retryable())
	assert.False(t, MalformedRecord("op", "c", nil).Retryable())
}

func TestIsRetryable_Wrapped(t *testing.T) {
	err := fmt.Errorf("handling failed: %w", StoreUnavailable("op", "c", nil))
	assert.True(t, IsRetryable(err))

	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConcurrencyConflict, KindOf(ConcurrencyConflict("op", "c", nil)))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestToHTTPError(t *testing.T) {
	httpErr := StoreUnavailable("sessions.find", "cust-1", nil).ToHTTPError()
	require.True(t, httperror.IsHTTPError(httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httperror.GetStatusCode(httpErr))
	assert.Equal(t, "store_unavailable", httpErr.Meta["kind"])

	malformed := MalformedRecord("mappings.find", "cust-1", nil).ToHTTPError()
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(malformed))
}
