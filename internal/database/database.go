// Package database persists whitelist index snapshots so a restart does not
// require rebuilding the remote person-group.
package database

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-whitelist/internal/whitelist"
)

// ErrNotFound is returned when no snapshot exists for a whitelist id.
var ErrNotFound = errors.New("whitelist not found")

// WhitelistStore saves and loads whitelist index snapshots
type WhitelistStore interface {
	// SaveWhitelist replaces the stored snapshot for snap.WhitelistID
	SaveWhitelist(ctx context.Context, snap *whitelist.Snapshot) error
	// LoadWhitelist returns the stored snapshot or ErrNotFound
	LoadWhitelist(ctx context.Context, whitelistID string) (*whitelist.Snapshot, error)
	// DeleteWhitelist removes a snapshot; deleting a missing one is not an error
	DeleteWhitelist(ctx context.Context, whitelistID string) error
}
