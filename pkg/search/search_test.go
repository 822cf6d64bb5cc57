package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFinder struct {
	tenants []*models.Tenant
	err     error
	queries []string
}

func (f *fakeFinder) Search(ctx context.Context, query string, limit int) ([]*models.Tenant, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Tenant
	for _, t := range f.tenants {
		if strings.Contains(strings.ToLower(t.DisplayName), strings.ToLower(query)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestBestMatch_FindsTrailingBusinessName(t *testing.T) {
	finder := &fakeFinder{tenants: []*models.Tenant{
		{ID: "tenant-a", DisplayName: "Acme Events"},
	}}
	s := NewService(finder, testLogger())

	match, err := s.BestMatch(context.Background(), "Hi, I want to connect with Acme Events")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "tenant-a", match.TenantID)
	assert.Equal(t, "Acme Events", match.DisplayName)
}

func TestBestMatch_ExactName(t *testing.T) {
	finder := &fakeFinder{tenants: []*models.Tenant{
		{ID: "tenant-a", DisplayName: "Acme Events"},
	}}
	s := NewService(finder, testLogger())

	match, err := s.BestMatch(context.Background(), "Acme Events")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "tenant-a", match.TenantID)
}

func TestBestMatch_NoMatch(t *testing.T) {
	finder := &fakeFinder{tenants: []*models.Tenant{
		{ID: "tenant-a", DisplayName: "Acme Events"},
	}}
	s := NewService(finder, testLogger())

	match, err := s.BestMatch(context.Background(), "just saying hello")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestBestMatch_AmbiguousReturnsNothing(t *testing.T) {
	finder := &fakeFinder{tenants: []*models.Tenant{
		{ID: "tenant-a", DisplayName: "Acme Events"},
		{ID: "tenant-b", DisplayName: "Acme Bakery"},
	}}
	s := NewService(finder, testLogger())

	match, err := s.BestMatch(context.Background(), "connect me with Acme")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestBestMatch_EmptyMessage(t *testing.T) {
	finder := &fakeFinder{}
	s := NewService(finder, testLogger())

	match, err := s.BestMatch(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.Empty(t, finder.queries, "empty text must not hit the store")
}

func TestBestMatch_SearchErrorPropagates(t *testing.T) {
	finder := &fakeFinder{err: errors.New("db down")}
	s := NewService(finder, testLogger())

	_, err := s.BestMatch(context.Background(), "Acme Events")
	assert.Error(t, err)
}

func TestCleanQuery(t *testing.T) {
	assert.Equal(t, "Acme Events ", cleanQuery("Acme Events!"))
	assert.Equal(t, "Hi  I want Acme", cleanQuery("Hi, I want Acme"))
}
