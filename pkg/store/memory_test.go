package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_FindActiveSessionRespectsWindow(t *testing.T) {
	mem := NewMemory()
	now := time.Now().UTC()
	mem.SeedSession(models.Session{
		CustomerID:    "cust-1",
		TenantID:      "tenant-a",
		LastMessageAt: now.Add(-2 * time.Hour),
	})

	found, err := mem.FindActiveSession(context.Background(), "cust-1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "tenant-a", found.TenantID)

	expired, err := mem.FindActiveSession(context.Background(), "cust-1", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, expired)
}

func TestMemory_FindMappingsOrderedByCreation(t *testing.T) {
	mem := NewMemory()
	now := time.Now().UTC()
	mem.SeedMapping(models.Mapping{ID: "m2", CustomerID: "c", TenantID: "t2", CreatedAt: now})
	mem.SeedMapping(models.Mapping{ID: "m1", CustomerID: "c", TenantID: "t1", CreatedAt: now.Add(-time.Hour)})

	mappings, err := mem.FindMappings(context.Background(), "c")
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, "t1", mappings[0].TenantID)
	assert.Equal(t, "t2", mappings[1].TenantID)
}

func TestMemory_PendingTTL(t *testing.T) {
	mem := NewMemory()
	err := mem.SetPendingDisambiguation(context.Background(), &models.PendingDisambiguation{
		CustomerID: "cust-1",
		Kind:       models.PendingSelection,
		CreatedAt:  time.Now().UTC(),
	}, 10*time.Millisecond)
	require.NoError(t, err)

	pending, err := mem.GetPendingDisambiguation(context.Background(), "cust-1")
	require.NoError(t, err)
	require.NotNil(t, pending)

	time.Sleep(20 * time.Millisecond)

	pending, err = mem.GetPendingDisambiguation(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestMemory_ClearPendingIsIdempotent(t *testing.T) {
	mem := NewMemory()
	require.NoError(t, mem.ClearPendingDisambiguation(context.Background(), "nobody"))
}

func TestMemory_FailureInjection(t *testing.T) {
	mem := NewMemory()
	boom := errors.New("boom")
	mem.Fail("FindMappings", boom)

	_, err := mem.FindMappings(context.Background(), "c")
	assert.ErrorIs(t, err, boom)

	mem.Fail("FindMappings", nil)
	_, err = mem.FindMappings(context.Background(), "c")
	assert.NoError(t, err)
}

func TestMemory_UpsertKeepsNewestTimestamp(t *testing.T) {
	mem := NewMemory()
	now := time.Now().UTC()

	require.NoError(t, mem.UpsertSession(context.Background(), "c", "t1", now))
	require.NoError(t, mem.UpsertSession(context.Background(), "c", "t2", now.Add(-time.Hour)))

	s, ok := mem.Session("c")
	require.True(t, ok)
	assert.Equal(t, "t2", s.TenantID)
	assert.Equal(t, now, s.LastMessageAt)
}
