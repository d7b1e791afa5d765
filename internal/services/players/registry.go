// Package players maps bearer tokens to the dogs they control
package players

import (
	"context"
	"log/slog"
	"sync"

	"github.com/KirkDiggler/dogstory-api/internal/engine/game"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/pkg/idgen"
)

// maxTokenAttempts bounds regeneration when a fresh token collides with a live one
const maxTokenAttempts = 8

// Player binds a token to a dog on a map
type Player struct {
	Token string
	DogID uint64
	MapID string
}

// Roster hands over dogs that have retired
type Roster interface {
	ClaimRetired(mapID string, dogID uint64) (game.RetiredDog, bool)
}

// Config holds the dependencies of the Registry
type Config struct {
	Tokens idgen.Generator
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.Tokens == nil {
		return errors.InvalidArgument("token generator is required")
	}
	return nil
}

// Registry is the single owner of the token table. One mutex covers
// add, lookup and the retirement sweep.
type Registry struct {
	mu      sync.Mutex
	tokens  idgen.Generator
	byToken map[string]Player
	order   []string
}

// NewRegistry creates an empty registry
func NewRegistry(cfg *Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Registry{
		tokens:  cfg.Tokens,
		byToken: make(map[string]Player),
	}, nil
}

// Add registers a player for a dog and returns its new token
func (r *Registry) Add(dogID uint64, mapID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < maxTokenAttempts; i++ {
		token := r.tokens.Generate()
		if _, taken := r.byToken[token]; taken {
			continue
		}
		r.byToken[token] = Player{Token: token, DogID: dogID, MapID: mapID}
		r.order = append(r.order, token)
		return token, nil
	}
	return "", errors.Internalf("could not generate a unique token after %d attempts", maxTokenAttempts)
}

// FindByToken looks up the player owning token
func (r *Registry) FindByToken(token string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byToken[token]
	return p, ok
}

// Players returns the players on mapID in join order
func (r *Registry) Players(mapID string) []Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Player
	for _, token := range r.order {
		if p := r.byToken[token]; p.MapID == mapID {
			out = append(out, p)
		}
	}
	return out
}

// GetRetiredPlayers claims every retired dog from roster and forgets its player.
// Each retirement is returned exactly once.
func (r *Registry) GetRetiredPlayers(ctx context.Context, roster Roster) []game.RetiredDog {
	r.mu.Lock()
	defer r.mu.Unlock()

	var retired []game.RetiredDog
	kept := r.order[:0]
	for _, token := range r.order {
		p := r.byToken[token]
		rec, ok := roster.ClaimRetired(p.MapID, p.DogID)
		if !ok {
			kept = append(kept, token)
			continue
		}
		delete(r.byToken, token)
		retired = append(retired, rec)
		slog.InfoContext(ctx, "player retired",
			"dog_id", rec.DogID,
			"map_id", rec.MapID,
			"score", rec.Score,
			"play_time", rec.PlayTime,
		)
	}
	r.order = kept
	return retired
}

// Export returns all players in join order
func (r *Registry) Export() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Player, 0, len(r.order))
	for _, token := range r.order {
		out = append(out, r.byToken[token])
	}
	return out
}

// Import replaces the token table
func (r *Registry) Import(players []Player) error {
	byToken := make(map[string]Player, len(players))
	order := make([]string, 0, len(players))
	for _, p := range players {
		if !idgen.IsValidToken(p.Token) {
			return errors.CorruptSnapshot("snapshot has malformed token for dog %d", p.DogID)
		}
		if _, dup := byToken[p.Token]; dup {
			return errors.CorruptSnapshot("snapshot has duplicate token for dog %d", p.DogID)
		}
		byToken[p.Token] = p
		order = append(order, p.Token)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken = byToken
	r.order = order
	return nil
}
