package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	cerrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRouter struct {
	decision  models.RoutingDecision
	proposals []models.TenantSummary
	proposeErr error
}

func (f *fakeRouter) HandleMessage(ctx context.Context, customerID, messageText string) models.RoutingDecision {
	return f.decision
}

func (f *fakeRouter) ProposeReferral(ctx context.Context, customerID string, match models.TenantSummary) error {
	if f.proposeErr != nil {
		return f.proposeErr
	}
	f.proposals = append(f.proposals, match)
	return nil
}

type fakeMatcher struct {
	match *models.TenantSummary
	err   error
}

func (f *fakeMatcher) BestMatch(ctx context.Context, messageText string) (*models.TenantSummary, error) {
	return f.match, f.err
}

type fakePublisher struct {
	published []*kafka.DecisionMessage
	errored   []*kafka.DecisionMessage
	publishErr error
}

func (f *fakePublisher) Publish(ctx context.Context, msg *kafka.DecisionMessage) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) PublishError(ctx context.Context, msg *kafka.DecisionMessage) error {
	f.errored = append(f.errored, msg)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func inbound(text string) *kafka.ReceivedMessage {
	return &kafka.ReceivedMessage{
		Inbound: &kafka.InboundMessage{
			CustomerID: "cust-1",
			MessageID:  "msg-001",
			Text:       text,
			TraceID:    "trace-1",
		},
	}
}

func TestProcessMessage_RouteDecisionPublished(t *testing.T) {
	router := &fakeRouter{decision: models.RouteTo("tenant-a")}
	pub := &fakePublisher{}
	p := NewProcessor(DefaultProcessorConfig(), router, &fakeMatcher{}, pub, testLogger())

	err := p.ProcessMessage(context.Background(), inbound("hello"))
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	out := pub.published[0]
	assert.Equal(t, "route", out.Decision)
	assert.Equal(t, "tenant-a", out.TenantID)
	assert.Equal(t, "cust-1", out.CustomerID)
	assert.Equal(t, "msg-001", out.MessageID)
	assert.Equal(t, "trace-1", out.TraceID)
	assert.Empty(t, pub.errored)
}

func TestProcessMessage_ReferralWithMatchProposes(t *testing.T) {
	router := &fakeRouter{decision: models.AskReferral()}
	match := &models.TenantSummary{TenantID: "tenant-x", DisplayName: "Xylo Spa"}
	pub := &fakePublisher{}
	p := NewProcessor(DefaultProcessorConfig(), router, &fakeMatcher{match: match}, pub, testLogger())

	err := p.ProcessMessage(context.Background(), inbound("reach Xylo Spa please"))
	require.NoError(t, err)

	require.Len(t, router.proposals, 1)
	assert.Equal(t, "tenant-x", router.proposals[0].TenantID)

	require.Len(t, pub.published, 1)
	out := pub.published[0]
	assert.Equal(t, "ask_referral", out.Decision)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "tenant-x", out.Candidates[0].TenantID)
}

func TestProcessMessage_ReferralWithoutMatchStillAsks(t *testing.T) {
	router := &fakeRouter{decision: models.AskReferral()}
	pub := &fakePublisher{}
	p := NewProcessor(DefaultProcessorConfig(), router, &fakeMatcher{}, pub, testLogger())

	err := p.ProcessMessage(context.Background(), inbound("hello"))
	require.NoError(t, err)

	assert.Empty(t, router.proposals)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "ask_referral", pub.published[0].Decision)
	assert.Empty(t, pub.published[0].Candidates)
}

func TestProcessMessage_SearchFailureDegradesToPlainReferral(t *testing.T) {
	router := &fakeRouter{decision: models.AskReferral()}
	pub := &fakePublisher{}
	p := NewProcessor(DefaultProcessorConfig(), router, &fakeMatcher{err: errors.New("db down")}, pub, testLogger())

	err := p.ProcessMessage(context.Background(), inbound("reach Xylo Spa please"))
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	assert.Equal(t, "ask_referral", pub.published[0].Decision)
}

func TestProcessMessage_ProposalFailureDegradesToPlainReferral(t *testing.T) {
	match := &models.TenantSummary{TenantID: "tenant-x", DisplayName: "Xylo Spa"}
	router := &fakeRouter{decision: models.AskReferral(), proposeErr: errors.New("redis down")}
	pub := &fakePublisher{}
	p := NewProcessor(DefaultProcessorConfig(), router, &fakeMatcher{match: match}, pub, testLogger())

	err := p.ProcessMessage(context.Background(), inbound("reach Xylo Spa please"))
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	// Without the recorded proposal the candidate must not be promised.
	assert.Empty(t, pub.published[0].Candidates)
}

func TestProcessMessage_ErrorDecisionGoesToErrorTopic(t *testing.T) {
	routingErr := cerrors.StoreUnavailable("sessions.find", "cust-1", errors.New("connection refused"))
	router := &fakeRouter{decision: models.ErrorDecision(routingErr)}
	pub := &fakePublisher{}
	p := NewProcessor(DefaultProcessorConfig(), router, &fakeMatcher{}, pub, testLogger())

	err := p.ProcessMessage(context.Background(), inbound("hello"))
	require.NoError(t, err)

	assert.Empty(t, pub.published)
	require.Len(t, pub.errored, 1)
	out := pub.errored[0]
	assert.Equal(t, "error", out.Decision)
	assert.True(t, out.Retryable)
	assert.NotEmpty(t, out.Reason)
}

func TestProcessMessage_PublishFailurePropagates(t *testing.T) {
	router := &fakeRouter{decision: models.RouteTo("tenant-a")}
	pub := &fakePublisher{publishErr: errors.New("broker unavailable")}
	p := NewProcessor(DefaultProcessorConfig(), router, &fakeMatcher{}, pub, testLogger())

	err := p.ProcessMessage(context.Background(), inbound("hello"))
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	router := &fakeRouter{decision: models.RouteTo("tenant-a")}
	pub := &fakePublisher{}
	p := NewProcessor(DefaultProcessorConfig(), router, &fakeMatcher{}, pub, testLogger())

	require.NoError(t, p.ProcessMessage(context.Background(), inbound("one")))
	require.NoError(t, p.ProcessMessage(context.Background(), inbound("two")))

	stats := p.Stats()
	assert.Equal(t, int64(2), stats.MessagesProcessed)
	assert.Equal(t, int64(0), stats.MessagesFailed)
}
