package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Memory is a thread-safe in-memory Store. It backs tests across the module
// and single-node deployments that run without Postgres/Redis.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	mappings map[string][]*models.Mapping
	pendings map[string]pendingEntry

	// failures maps an operation name to an error injected for it. Used by
	// tests to simulate store outages.
	failures map[string]error
}

type pendingEntry struct {
	pending   models.PendingDisambiguation
	expiresAt time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*models.Session),
		mappings: make(map[string][]*models.Mapping),
		pendings: make(map[string]pendingEntry),
		failures: make(map[string]error),
	}
}

// Fail injects an error for the named operation (e.g. "FindMappings").
// Passing a nil error clears the injection.
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *Memory) failure(op string) error {
	return m.failures[op]
}

func (m *Memory) FindActiveSession(ctx context.Context, customerID string, windowStart time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindActiveSession"); err != nil {
		return nil, err
	}

	s, ok := m.sessions[customerID]
	if !ok || s.LastMessageAt.Before(windowStart) {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *Memory) FindMappings(ctx context.Context, customerID string) ([]*models.Mapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindMappings"); err != nil {
		return nil, err
	}

	rows := m.mappings[customerID]
	out := make([]*models.Mapping, len(rows))
	for i, row := range rows {
		copied := *row
		out[i] = &copied
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpsertSession(ctx context.Context, customerID, tenantID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpsertSession"); err != nil {
		return err
	}

	existing, ok := m.sessions[customerID]
	if ok && existing.LastMessageAt.After(now) {
		// last_message_at is monotonic
		existing.TenantID = tenantID
		return nil
	}
	m.sessions[customerID] = &models.Session{
		CustomerID:    customerID,
		TenantID:      tenantID,
		LastMessageAt: now,
	}
	return nil
}

func (m *Memory) GetPendingDisambiguation(ctx context.Context, customerID string) (*models.PendingDisambiguation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetPendingDisambiguation"); err != nil {
		return nil, err
	}

	entry, ok := m.pendings[customerID]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.pendings, customerID)
		return nil, nil
	}
	copied := entry.pending
	return &copied, nil
}

func (m *Memory) SetPendingDisambiguation(ctx context.Context, pending *models.PendingDisambiguation, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("SetPendingDisambiguation"); err != nil {
		return err
	}

	entry := pendingEntry{pending: *pending}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.pendings[pending.CustomerID] = entry
	return nil
}

func (m *Memory) ClearPendingDisambiguation(ctx context.Context, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ClearPendingDisambiguation"); err != nil {
		return err
	}

	delete(m.pendings, customerID)
	return nil
}

// Seed helpers for tests and local bootstrap.

// SeedSession stores a session as-is, bypassing monotonicity.
func (m *Memory) SeedSession(s models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := s
	m.sessions[s.CustomerID] = &copied
}

// SeedMapping appends a mapping for its customer.
func (m *Memory) SeedMapping(mp models.Mapping) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := mp
	m.mappings[mp.CustomerID] = append(m.mappings[mp.CustomerID], &copied)
}

// Session returns the stored session for a customer, if any.
func (m *Memory) Session(customerID string) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[customerID]
	if !ok {
		return models.Session{}, false
	}
	return *s, true
}
