// Package processor connects the Kafka edge to the conversation machine.
// Each inbound customer message becomes exactly one decision message on the
// output topic, or one error message on the error topic.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/resolver"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Router is the conversation machine surface the processor drives.
type Router interface {
	HandleMessage(ctx context.Context, customerID, messageText string) models.RoutingDecision
	ProposeReferral(ctx context.Context, customerID string, match models.TenantSummary) error
}

// Matcher resolves a referral message to a tenant candidate.
type Matcher interface {
	BestMatch(ctx context.Context, messageText string) (*models.TenantSummary, error)
}

// Publisher is the producer surface the processor needs. *kafka.Producer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg *kafka.DecisionMessage) error
	PublishError(ctx context.Context, msg *kafka.DecisionMessage) error
}

// ProcessorConfig configures the message processor
type ProcessorConfig struct {
	// ProcessTimeout is the timeout for processing a single message
	ProcessTimeout time.Duration
}

// DefaultProcessorConfig returns a ProcessorConfig with sensible defaults
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		ProcessTimeout: 30 * time.Second,
	}
}

// Processor processes inbound customer messages through the routing pipeline
type Processor struct {
	config   ProcessorConfig
	router   Router
	matcher  Matcher
	producer Publisher
	logger   ectologger.Logger

	messagesProcessed int64
	messagesFailed    int64
	mu                sync.Mutex
}

// NewProcessor creates a new message processor
func NewProcessor(
	config ProcessorConfig,
	router Router,
	matcher Matcher,
	producer Publisher,
	logger ectologger.Logger,
) *Processor {
	return &Processor{
		config:   config,
		router:   router,
		matcher:  matcher,
		producer: producer,
		logger:   logger,
	}
}

// ProcessMessage routes a single inbound message and publishes the outcome.
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.ReceivedMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ProcessMessage")
	defer span.End()

	if p.config.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ProcessTimeout)
		defer cancel()
	}

	inbound := msg.Inbound
	decision := p.router.HandleMessage(ctx, inbound.CustomerID, inbound.Text)

	// Referral decisions get a second pass: try to resolve the message
	// text to a business name and record the proposal so the customer's
	// confirmation can be understood.
	if decision.Kind == models.DecisionAskReferral {
		decision = p.handleReferral(ctx, inbound, decision)
	}

	out := p.buildDecisionMessage(inbound, decision)

	if decision.Kind == models.DecisionError {
		p.logger.WithContext(ctx).WithError(decision.Err).WithFields(map[string]any{
			"customer_id": inbound.CustomerID,
		}).Error("Routing failed for inbound message")
		metrics.InboundMessagesTotal.WithLabelValues("error").Inc()
		p.incrementFailed()
		if err := p.producer.PublishError(ctx, out); err != nil {
			return err
		}
		return nil
	}

	if err := p.producer.Publish(ctx, out); err != nil {
		metrics.InboundMessagesTotal.WithLabelValues("publish_failed").Inc()
		p.incrementFailed()
		return err
	}

	metrics.InboundMessagesTotal.WithLabelValues("ok").Inc()
	p.incrementProcessed()
	return nil
}

// handleReferral looks up the business the message names and, when exactly
// one matches, records the proposal so the next message can confirm it. A
// failed lookup or proposal leaves the plain referral prompt in place.
func (p *Processor) handleReferral(ctx context.Context, inbound *kafka.InboundMessage, decision models.RoutingDecision) models.RoutingDecision {
	match, err := p.matcher.BestMatch(ctx, inbound.Text)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": inbound.CustomerID,
		}).Warn("Referral search failed")
		return decision
	}
	if match == nil {
		return decision
	}

	if err := p.router.ProposeReferral(ctx, inbound.CustomerID, *match); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": inbound.CustomerID,
			"tenant_id":   match.TenantID,
		}).Warn("Failed to record referral proposal")
		return decision
	}

	decision.Candidates = []models.TenantSummary{*match}
	return decision
}

func (p *Processor) buildDecisionMessage(inbound *kafka.InboundMessage, decision models.RoutingDecision) *kafka.DecisionMessage {
	out := &kafka.DecisionMessage{
		CustomerID: inbound.CustomerID,
		MessageID:  inbound.MessageID,
		Decision:   string(decision.Kind),
		TenantID:   decision.TenantID,
		Candidates: decision.Candidates,
		Timestamp:  time.Now().UTC(),
		TraceID:    inbound.TraceID,
		SpanID:     inbound.SpanID,
	}
	if decision.Kind == models.DecisionError {
		out.Reason = decision.Reason()
		out.Retryable = resolver.Retryable(decision)
	}
	return out
}

// MessageHandler returns a kafka.MessageHandler for use with the consumer
func (p *Processor) MessageHandler() kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.ReceivedMessage) error {
		return p.ProcessMessage(ctx, msg)
	}
}

func (p *Processor) incrementProcessed() {
	p.mu.Lock()
	p.messagesProcessed++
	p.mu.Unlock()
}

func (p *Processor) incrementFailed() {
	p.mu.Lock()
	p.messagesFailed++
	p.mu.Unlock()
}

// Stats returns processor statistics
type Stats struct {
	MessagesProcessed int64
	MessagesFailed    int64
}

func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		MessagesProcessed: p.messagesProcessed,
		MessagesFailed:    p.messagesFailed,
	}
}
