package kafka

import (
	"testing"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInboundMessage(t *testing.T) {
	jsonData := `{
		"customer_id": "cust-550e8400",
		"display_name": "Jordan",
		"channel": "sms",
		"text": "Hi, I want to connect with Acme Events",
		"message_id": "msg-001",
		"timestamp": "2025-01-15T10:30:00Z",
		"trace_id": "abc123",
		"span_id": "def456"
	}`

	msg, err := ParseInboundMessage([]byte(jsonData))
	require.NoError(t, err)

	assert.Equal(t, "cust-550e8400", msg.CustomerID)
	assert.Equal(t, "Jordan", msg.DisplayName)
	assert.Equal(t, "sms", msg.Channel)
	assert.Equal(t, "Hi, I want to connect with Acme Events", msg.Text)
	assert.Equal(t, "msg-001", msg.MessageID)
	assert.Equal(t, "abc123", msg.TraceID)
	assert.Equal(t, "def456", msg.SpanID)
}

func TestParseInboundMessage_MissingCustomerID(t *testing.T) {
	_, err := ParseInboundMessage([]byte(`{"text": "hello"}`))
	assert.Error(t, err)
}

func TestParseInboundMessage_InvalidJSON(t *testing.T) {
	_, err := ParseInboundMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecisionMessageToJSON(t *testing.T) {
	msg := &DecisionMessage{
		CustomerID: "cust-1",
		MessageID:  "msg-001",
		Decision:   "ask_selection",
		Candidates: []models.TenantSummary{
			{TenantID: "tenant-a", DisplayName: "Acme Events"},
			{TenantID: "tenant-b", DisplayName: "Besto Bakery"},
		},
		Timestamp: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
	}

	data, err := msg.ToJSON()
	require.NoError(t, err)

	assert.Contains(t, string(data), `"decision":"ask_selection"`)
	assert.Contains(t, string(data), `"tenant_id":"tenant-a"`)
	assert.NotContains(t, string(data), `"reason"`, "empty reason is omitted")
}

func TestHeaderRoundTrip(t *testing.T) {
	headers := MessageHeaders{
		CustomerID:  "cust-1",
		TenantID:    "tenant-a",
		Decision:    "route",
		MessageID:   "msg-001",
		TraceParent: "00-abc-def-01",
	}

	extracted := ExtractHeaders(headers.ToKafkaHeaders())
	assert.Equal(t, headers, extracted)
}

func TestExtractHeaders_IgnoresUnknownKeys(t *testing.T) {
	extracted := ExtractHeaders([]Header{
		{Key: "customer_id", Value: []byte("cust-1")},
		{Key: "x-unrelated", Value: []byte("ignored")},
	})

	assert.Equal(t, "cust-1", extracted.CustomerID)
	assert.Empty(t, extracted.TenantID)
}
