package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// InboundMessage represents a message from a customer arriving off the chat
// edge. This is the schema the upstream gateway produces.
type InboundMessage struct {
	// Identity
	CustomerID  string `json:"customer_id"`
	DisplayName string `json:"display_name,omitempty"`
	Channel     string `json:"channel,omitempty"`

	// Content
	Text      string    `json:"text"`
	MessageID string    `json:"message_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Tracing
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// ParseInboundMessage parses a raw Kafka payload into an InboundMessage
func ParseInboundMessage(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.CustomerID == "" {
		return nil, fmt.Errorf("inbound message is missing customer_id")
	}
	return &msg, nil
}

// DecisionMessage is what the router produces to the output topic once a
// routing decision has been made for an inbound message.
type DecisionMessage struct {
	// Identity
	CustomerID string `json:"customer_id"`
	MessageID  string `json:"message_id,omitempty"`

	// Decision
	Decision   string                 `json:"decision"`
	TenantID   string                 `json:"tenant_id,omitempty"`
	Candidates []models.TenantSummary `json:"candidates,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Retryable  bool                   `json:"retryable,omitempty"`

	// Output
	Timestamp time.Time `json:"timestamp"`

	// Tracing
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// ToJSON serializes the DecisionMessage to JSON bytes
func (m *DecisionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageHeaders contains Kafka message headers for efficient filtering
type MessageHeaders struct {
	CustomerID  string
	TenantID    string
	Decision    string
	MessageID   string
	TraceParent string
	TraceState  string
}

// ToKafkaHeaders converts MessageHeaders to a slice of header key-value pairs
func (h *MessageHeaders) ToKafkaHeaders() []Header {
	headers := make([]Header, 0, 6)

	if h.CustomerID != "" {
		headers = append(headers, Header{Key: "customer_id", Value: []byte(h.CustomerID)})
	}
	if h.TenantID != "" {
		headers = append(headers, Header{Key: "tenant_id", Value: []byte(h.TenantID)})
	}
	if h.Decision != "" {
		headers = append(headers, Header{Key: "decision", Value: []byte(h.Decision)})
	}
	if h.MessageID != "" {
		headers = append(headers, Header{Key: "message_id", Value: []byte(h.MessageID)})
	}
	if h.TraceParent != "" {
		headers = append(headers, Header{Key: "traceparent", Value: []byte(h.TraceParent)})
	}
	if h.TraceState != "" {
		headers = append(headers, Header{Key: "tracestate", Value: []byte(h.TraceState)})
	}

	return headers
}

// Header represents a Kafka message header
type Header struct {
	Key   string
	Value []byte
}

// ExtractHeaders extracts MessageHeaders from Kafka headers
func ExtractHeaders(headers []Header) MessageHeaders {
	var mh MessageHeaders
	for _, h := range headers {
		switch h.Key {
		case "customer_id":
			mh.CustomerID = string(h.Value)
		case "tenant_id":
			mh.TenantID = string(h.Value)
		case "decision":
			mh.Decision = string(h.Value)
		case "message_id":
			mh.MessageID = string(h.Value)
		case "traceparent":
			mh.TraceParent = string(h.Value)
		case "tracestate":
			mh.TraceState = string(h.Value)
		}
	}
	return mh
}
