// Package mock provides an in-memory implementation of database.WhitelistStore
// for tests and for running without PostgreSQL.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kozaktomas/face-whitelist/internal/database"
	"github.com/kozaktomas/face-whitelist/internal/whitelist"
)

// MockWhitelistStore is a mock implementation of database.WhitelistStore
type MockWhitelistStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	saves     int

	// Error injection
	SaveError   error
	LoadError   error
	DeleteError error
}

var _ database.WhitelistStore = (*MockWhitelistStore)(nil)

// NewMockWhitelistStore creates a new mock whitelist store
func NewMockWhitelistStore() *MockWhitelistStore {
	return &MockWhitelistStore{snapshots: make(map[string][]byte)}
}

// SaveWhitelist stores a deep copy of the snapshot
func (m *MockWhitelistStore) SaveWhitelist(ctx context.Context, snap *whitelist.Snapshot) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.WhitelistID] = data
	m.saves++
	return nil
}

// LoadWhitelist returns a copy of the stored snapshot
func (m *MockWhitelistStore) LoadWhitelist(ctx context.Context, whitelistID string) (*whitelist.Snapshot, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	data, ok := m.snapshots[whitelistID]
	m.mu.RUnlock()
	if !ok {
		return nil, database.ErrNotFound
	}
	var snap whitelist.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// DeleteWhitelist removes a snapshot
func (m *MockWhitelistStore) DeleteWhitelist(ctx context.Context, whitelistID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, whitelistID)
	return nil
}

// Saves returns how many times SaveWhitelist succeeded
func (m *MockWhitelistStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
