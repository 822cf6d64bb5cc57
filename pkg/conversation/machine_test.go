package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	cerrors "github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/resolver"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestMachine(mem *store.Memory) *Machine {
	logger := testLogger()
	writer := resolver.NewSessionWriter(mem, logger, time.Second, nil)
	res := resolver.New(mem, writer, logger, resolver.DefaultConfig())
	return NewMachine(mem, res, NewMemoryLocker(), logger, DefaultConfig())
}

func seedTwoMappings(mem *store.Memory) {
	now := time.Now().UTC()
	mem.SeedMapping(models.Mapping{
		ID: "m1", CustomerID: "cust-1", TenantID: "tenant-a", TenantName: "Acme Events", CreatedAt: now.Add(-2 * time.Hour),
	})
	mem.SeedMapping(models.Mapping{
		ID: "m2", CustomerID: "cust-1", TenantID: "tenant-b", TenantName: "Besto Bakery", CreatedAt: now.Add(-time.Hour),
	})
}

func TestHandleMessage_SelectionByIndex(t *testing.T) {
	mem := store.NewMemory()
	seedTwoMappings(mem)
	m := newTestMachine(mem)

	decision := m.HandleMessage(context.Background(), "cust-1", "hello")
	require.Equal(t, models.DecisionAskSelection, decision.Kind)

	state, err := m.StateOf(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingSelection, state)

	decision = m.HandleMessage(context.Background(), "cust-1", "2")
	require.Equal(t, models.DecisionRoute, decision.Kind)
	assert.Equal(t, "tenant-b", decision.TenantID)

	state, err = m.StateOf(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, state)
}

func TestHandleMessage_SelectionByDisplayName(t *testing.T) {
	mem := store.NewMemory()
	seedTwoMappings(mem)
	m := newTestMachine(mem)

	decision := m.HandleMessage(context.Background(), "cust-1", "hello")
	require.Equal(t, models.DecisionAskSelection, decision.Kind)

	decision = m.HandleMessage(context.Background(), "cust-1", "acme events")
	require.Equal(t, models.DecisionRoute, decision.Kind)
	assert.Equal(t, "tenant-a", decision.TenantID)
}

func TestHandleMessage_SelectionOutOfRangeReResolves(t *testing.T) {
	mem := store.NewMemory()
	seedTwoMappings(mem)
	m := newTestMachine(mem)

	decision := m.HandleMessage(context.Background(), "cust-1", "hello")
	require.Equal(t, models.DecisionAskSelection, decision.Kind)

	// "7" names no candidate: the ask is abandoned and the message is
	// resolved from scratch, which asks again.
	decision = m.HandleMessage(context.Background(), "cust-1", "7")
	assert.Equal(t, models.DecisionAskSelection, decision.Kind)
}

func TestHandleMessage_AbandonedSelectionReusesRouting(t *testing.T) {
	mem := store.NewMemory()
	seedTwoMappings(mem)
	m := newTestMachine(mem)

	decision := m.HandleMessage(context.Background(), "cust-1", "hello")
	require.Equal(t, models.DecisionAskSelection, decision.Kind)

	// An unrelated message abandons the ask; since the customer still has
	// two mappings it is asked again, with fresh candidates.
	decision = m.HandleMessage(context.Background(), "cust-1", "actually, never mind")
	require.Equal(t, models.DecisionAskSelection, decision.Kind)
	assert.Len(t, decision.Candidates, 2)
}

func TestHandleMessage_ExpiredPendingIsDiscarded(t *testing.T) {
	mem := store.NewMemory()
	seedTwoMappings(mem)

	logger := testLogger()
	writer := resolver.NewSessionWriter(mem, logger, time.Second, nil)
	res := resolver.New(mem, writer, logger, resolver.DefaultConfig())
	m := NewMachine(mem, res, NewMemoryLocker(), logger, Config{
		PendingTTL: 10 * time.Minute,
	})

	// Seed a pending created beyond the TTL. The store-side TTL is longer
	// so the stale record is still readable.
	err := mem.SetPendingDisambiguation(context.Background(), &models.PendingDisambiguation{
		CustomerID: "cust-1",
		Kind:       models.PendingSelection,
		Candidates: []models.TenantSummary{{TenantID: "tenant-a", DisplayName: "Acme Events"}},
		CreatedAt:  time.Now().UTC().Add(-time.Hour),
	}, time.Hour)
	require.NoError(t, err)

	// "1" would select tenant-a if the pending were live; instead the
	// message is treated as fresh.
	decision := m.HandleMessage(context.Background(), "cust-1", "1")
	assert.Equal(t, models.DecisionAskSelection, decision.Kind)
}

func TestHandleMessage_ReferralConfirm(t *testing.T) {
	mem := store.NewMemory()
	m := newTestMachine(mem)

	match := models.TenantSummary{TenantID: "tenant-x", DisplayName: "Xylo Spa"}
	require.NoError(t, m.ProposeReferral(context.Background(), "cust-1", match))

	state, err := m.StateOf(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingReferralConfirmation, state)

	decision := m.HandleMessage(context.Background(), "cust-1", "yes")
	require.Equal(t, models.DecisionRoute, decision.Kind)
	assert.Equal(t, "tenant-x", decision.TenantID)

	session, ok := mem.Session("cust-1")
	require.True(t, ok)
	assert.Equal(t, "tenant-x", session.TenantID)
}

func TestHandleMessage_ReferralConfirmPersistsMapping(t *testing.T) {
	mem := store.NewMemory()
	m := newTestMachine(mem)
	m.SetMappingEnsurer(memoryEnsurer{mem})

	match := models.TenantSummary{TenantID: "tenant-x", DisplayName: "Xylo Spa"}
	require.NoError(t, m.ProposeReferral(context.Background(), "cust-1", match))

	decision := m.HandleMessage(context.Background(), "cust-1", "yes")
	require.Equal(t, models.DecisionRoute, decision.Kind)

	mappings, err := mem.FindMappings(context.Background(), "cust-1")
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "tenant-x", mappings[0].TenantID)
	assert.Equal(t, "Xylo Spa", mappings[0].TenantName)
}

func TestHandleMessage_ReferralRejectedReResolves(t *testing.T) {
	mem := store.NewMemory()
	m := newTestMachine(mem)

	match := models.TenantSummary{TenantID: "tenant-x", DisplayName: "Xylo Spa"}
	require.NoError(t, m.ProposeReferral(context.Background(), "cust-1", match))

	decision := m.HandleMessage(context.Background(), "cust-1", "no, someone else")
	assert.Equal(t, models.DecisionAskReferral, decision.Kind)

	_, ok := mem.Session("cust-1")
	assert.False(t, ok, "rejected referral must not route")
}

func TestHandleMessage_ClearFailureIsErrorNotRoute(t *testing.T) {
	mem := store.NewMemory()
	seedTwoMappings(mem)
	m := newTestMachine(mem)

	decision := m.HandleMessage(context.Background(), "cust-1", "hello")
	require.Equal(t, models.DecisionAskSelection, decision.Kind)

	mem.Fail("ClearPendingDisambiguation", cerrors.StoreUnavailable("pending.clear", "cust-1", errors.New("redis down")))

	decision = m.HandleMessage(context.Background(), "cust-1", "1")
	require.Equal(t, models.DecisionError, decision.Kind)

	// The pending state survives the failed transition.
	mem.Fail("ClearPendingDisambiguation", nil)
	state, err := m.StateOf(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingSelection, state)
}

func TestHandleMessage_SetPendingFailureFailsTransition(t *testing.T) {
	mem := store.NewMemory()
	seedTwoMappings(mem)
	m := newTestMachine(mem)

	mem.Fail("SetPendingDisambiguation", cerrors.StoreUnavailable("pending.set", "cust-1", errors.New("redis down")))

	decision := m.HandleMessage(context.Background(), "cust-1", "hello")
	assert.Equal(t, models.DecisionError, decision.Kind)
}

func TestHandleMessage_ConcurrentSameCustomerSingleConsumption(t *testing.T) {
	mem := store.NewMemory()
	seedTwoMappings(mem)
	m := newTestMachine(mem)

	decision := m.HandleMessage(context.Background(), "cust-1", "hello")
	require.Equal(t, models.DecisionAskSelection, decision.Kind)

	// Two replies race; the lock serializes them. Whichever runs first
	// consumes the pending ask and routes; the other re-resolves and is
	// routed by the fresh session. Neither observes half-applied state.
	var wg sync.WaitGroup
	results := make([]models.RoutingDecision, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.HandleMessage(context.Background(), "cust-1", "1")
		}(i)
	}
	wg.Wait()

	for _, d := range results {
		require.Equal(t, models.DecisionRoute, d.Kind)
		assert.Equal(t, "tenant-a", d.TenantID)
	}

	state, err := m.StateOf(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, state)
}

func TestHandleMessage_LockTimeoutIsConcurrencyConflict(t *testing.T) {
	mem := store.NewMemory()
	m := newTestMachine(mem)
	m.config.LockWait = 20 * time.Millisecond

	// Hold the customer's lock from outside.
	locker := m.locker.(*MemoryLocker)
	held, err := locker.TryAcquire(context.Background(), "cust-1", time.Second, time.Second)
	require.NoError(t, err)
	defer func() { _ = held.Release(context.Background()) }()

	decision := m.HandleMessage(context.Background(), "cust-1", "hello")
	require.Equal(t, models.DecisionError, decision.Kind)
	assert.Equal(t, cerrors.KindConcurrencyConflict, cerrors.KindOf(decision.Err))
}

type memoryEnsurer struct {
	mem *store.Memory
}

func (e memoryEnsurer) Ensure(ctx context.Context, m *models.Mapping) error {
	e.mem.SeedMapping(*m)
	return nil
}

func TestParseSelection(t *testing.T) {
	candidates := []models.TenantSummary{
		{TenantID: "tenant-a", DisplayName: "Acme Events"},
		{TenantID: "tenant-b", DisplayName: "Besto Bakery"},
	}

	tests := []struct {
		name     string
		text     string
		wantID   string
		wantHit  bool
	}{
		{"first index", "1", "tenant-a", true},
		{"second index", "2", "tenant-b", true},
		{"index with spaces", "  2  ", "tenant-b", true},
		{"zero index", "0", "", false},
		{"out of range", "3", "", false},
		{"display name", "Acme Events", "tenant-a", true},
		{"display name case insensitive", "besto bakery", "tenant-b", true},
		{"unrelated text", "hi there", "", false},
		{"empty", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSelection(tt.text, candidates)
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, tt.wantID, got.TenantID)
			}
		})
	}
}

func TestIsAffirmative(t *testing.T) {
	assert.True(t, isAffirmative("yes"))
	assert.True(t, isAffirmative(" YES "))
	assert.True(t, isAffirmative("ok"))
	assert.False(t, isAffirmative("no"))
	assert.False(t, isAffirmative("yes please route me"))
}
