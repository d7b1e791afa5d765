// Package snapshot saves and restores the whole game state.
//
// The state is encoded with msgpack into a versioned representation that
// is independent of the in-memory types, and written to disk with a
// temp-file-then-rename so a crash never leaves a half-written snapshot.
package snapshot

//go:generate mockgen -destination=mock/mock_store.go -package=snapshotmock github.com/KirkDiggler/dogstory-api/internal/repositories/snapshot Store

import (
	"context"
	"time"

	"github.com/KirkDiggler/dogstory-api/internal/engine/game"
	"github.com/KirkDiggler/dogstory-api/internal/repositories/leaderboard"
	"github.com/KirkDiggler/dogstory-api/internal/services/players"
)

// Snapshot is everything the server persists between runs
type Snapshot struct {
	SavedAt time.Time
	Game    game.State
	Players []players.Player
	// Pending holds retired players not yet written to the leaderboard
	Pending []leaderboard.Record
}

// Store persists snapshots
type Store interface {
	// Save replaces the stored snapshot
	Save(ctx context.Context, snap *Snapshot) error

	// Load returns the stored snapshot
	// Returns errors.NotFound when nothing was saved yet
	// Returns a CorruptSnapshot error when the stored bytes cannot be decoded
	Load(ctx context.Context) (*Snapshot, error)
}
