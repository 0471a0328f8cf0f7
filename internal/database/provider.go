package database

import (
	"context"
	"fmt"
	"sync"
)

var (
	postgresWhitelistStore func() WhitelistStore
	postgresInitialized    bool
	providerMu             sync.RWMutex
)

// RegisterPostgresBackend registers the PostgreSQL whitelist store constructor.
// This is called by commands after postgres.Initialize to avoid import cycles.
func RegisterPostgresBackend(store func() WhitelistStore) {
	providerMu.Lock()
	defer providerMu.Unlock()
	postgresWhitelistStore = store
	postgresInitialized = true
}

// GetWhitelistStore returns a WhitelistStore from the PostgreSQL backend
func GetWhitelistStore(ctx context.Context) (WhitelistStore, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresWhitelistStore == nil {
		return nil, fmt.Errorf("PostgreSQL whitelist store not registered")
	}
	return postgresWhitelistStore(), nil
}
