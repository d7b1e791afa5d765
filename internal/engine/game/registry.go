package game

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KirkDiggler/dogstory-api/internal/engine/loot"
	"github.com/KirkDiggler/dogstory-api/internal/entities/world"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

// Config holds the settings shared by every session
type Config struct {
	Catalog         *world.Catalog
	LootPeriod      time.Duration
	LootProbability float64
	// RetirementThreshold is how long a dog may stand still before it
	// retires. Zero retires a dog on the first tick it spends stopped.
	RetirementThreshold time.Duration
	// Random drives loot spawns and spawn points. A loot.Splitter gives
	// every map its own stream, any other source is shared behind a lock.
	Random loot.RandomSource
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}
	if c.LootPeriod <= 0 {
		vb.Field("LootPeriod", "must be positive")
	}
	if c.LootProbability < 0 || c.LootProbability > 1 {
		vb.Field("LootProbability", "must be between 0 and 1")
	}
	errors.ValidateNonNegative("RetirementThreshold", c.RetirementThreshold, vb)
	if c.Random == nil {
		vb.RequiredField("Random")
	}
	return vb.Build()
}

// Registry owns the map catalog and one lazily created session per map.
// Sessions are never destroyed.
type Registry struct {
	catalog             *world.Catalog
	lootPeriod          time.Duration
	lootProbability     float64
	retirementThreshold time.Duration
	random              loot.RandomSource
	shared              *lockedSource

	// tickMu serialises Tick, Export and Import
	tickMu sync.Mutex

	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	now      time.Duration

	nextDogID atomic.Uint64
}

// NewRegistry creates a registry with no sessions
func NewRegistry(cfg *Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Registry{
		catalog:             cfg.Catalog,
		lootPeriod:          cfg.LootPeriod,
		lootProbability:     cfg.LootProbability,
		retirementThreshold: cfg.RetirementThreshold,
		random:              cfg.Random,
		shared:              &lockedSource{src: cfg.Random},
		sessions:            make(map[string]*Session),
	}, nil
}

// Catalog returns the loaded maps
func (r *Registry) Catalog() *world.Catalog {
	return r.catalog
}

// Now returns the elapsed game time
func (r *Registry) Now() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.now
}

// FindSession returns the session for mapID if one has been started
func (r *Registry) FindSession(mapID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[mapID]
	return s, ok
}

// Session returns the session for mapID, starting it on first use
func (r *Registry) Session(mapID string) (*Session, error) {
	if s, ok := r.FindSession(mapID); ok {
		return s, nil
	}

	m, ok := r.catalog.FindMap(mapID)
	if !ok {
		return nil, errors.NotFoundf("map %q not found", mapID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[mapID]; ok {
		return s, nil
	}
	s, err := r.newSession(m)
	if err != nil {
		return nil, err
	}
	r.sessions[mapID] = s
	r.order = append(r.order, mapID)
	return s, nil
}

func (r *Registry) newSession(m *world.Map) (*Session, error) {
	random := r.sourceFor(m.ID)
	gen, err := loot.NewGenerator(&loot.Config{
		Period:      r.lootPeriod,
		Probability: r.lootProbability,
		Random:      random,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create loot generator for map %q", m.ID)
	}
	return NewSession(&SessionConfig{Map: m, Generator: gen, Random: random})
}

// sourceFor returns the random stream for a map. Split streams depend only
// on the map id, so concurrent ticks draw the same values run after run.
func (r *Registry) sourceFor(mapID string) loot.RandomSource {
	if splitter, ok := r.random.(loot.Splitter); ok {
		return &lockedSource{src: splitter.Split(mapID)}
	}
	return r.shared
}

// Join creates a dog on mapID and returns a copy of it
func (r *Registry) Join(mapID, name string, randomSpawn bool) (*world.Dog, error) {
	s, err := r.Session(mapID)
	if err != nil {
		return nil, err
	}

	id := r.nextDogID.Add(1) - 1
	dog := world.NewDog(id, name, s.SpawnPoint(randomSpawn), s.Map().GetBagCapacity(), r.Now())
	s.AddDog(dog)
	return dog.Clone(), nil
}

// Leave removes a dog that never started playing, such as one whose player
// could not be registered
func (r *Registry) Leave(mapID string, dogID uint64) bool {
	s, ok := r.FindSession(mapID)
	if !ok {
		return false
	}
	return s.RemoveDog(dogID)
}

// Tick advances every session by delta. Sessions run concurrently.
// Once started a tick runs to completion; ctx is only checked before it begins.
func (r *Registry) Tick(ctx context.Context, delta time.Duration) ([]TickReport, error) {
	if delta < 0 {
		return nil, errors.InvalidArgumentf("time delta must not be negative, got %s", delta)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeCanceled, "tick canceled")
	}

	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	sessions, start := r.snapshotSessions()
	reports := make([]TickReport, len(sessions))

	var g errgroup.Group
	for i, s := range sessions {
		g.Go(func() error {
			reports[i] = s.Tick(TickInput{
				Start:               start,
				Delta:               delta,
				RetirementThreshold: r.retirementThreshold,
			})
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	r.now = start + delta
	r.mu.Unlock()

	slog.DebugContext(ctx, "game tick", "delta", delta, "sessions", len(sessions), "now", start+delta)
	return reports, nil
}

func (r *Registry) snapshotSessions() ([]*Session, time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		sessions = append(sessions, r.sessions[id])
	}
	return sessions, r.now
}

// ClaimRetired removes a retired dog from its session and returns its record
func (r *Registry) ClaimRetired(mapID string, dogID uint64) (RetiredDog, bool) {
	s, ok := r.FindSession(mapID)
	if !ok {
		return RetiredDog{}, false
	}
	return s.ClaimRetired(dogID)
}

// Export captures the registry state. It waits for a running tick to finish.
func (r *Registry) Export() State {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	sessions, now := r.snapshotSessions()
	st := State{Now: now, NextDogID: r.nextDogID.Load()}

	for _, s := range sessions {
		st.Sessions = append(st.Sessions, s.export())
	}
	return st
}

// Import replaces all sessions with st. Every map id in st must be in the
// catalog, otherwise nothing is changed and a corrupt snapshot error is returned.
func (r *Registry) Import(st State) error {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	sessions := make(map[string]*Session, len(st.Sessions))
	order := make([]string, 0, len(st.Sessions))
	nextDogID := st.NextDogID

	for _, ss := range st.Sessions {
		m, ok := r.catalog.FindMap(ss.MapID)
		if !ok {
			return errors.CorruptSnapshot("snapshot references map %q which is not loaded", ss.MapID)
		}
		if _, dup := sessions[ss.MapID]; dup {
			return errors.CorruptSnapshot("snapshot has two sessions for map %q", ss.MapID)
		}
		s, err := r.newSession(m)
		if err != nil {
			return err
		}
		if len(ss.Dogs) > 0 {
			nextDogID = max(nextDogID, s.restore(ss)+1)
		} else {
			s.restore(ss)
		}
		sessions[ss.MapID] = s
		order = append(order, ss.MapID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = sessions
	r.order = order
	r.now = st.Now
	r.nextDogID.Store(nextDogID)
	return nil
}

// lockedSource makes a RandomSource safe for concurrent use
type lockedSource struct {
	mu  sync.Mutex
	src loot.RandomSource
}

func (l *lockedSource) Fraction() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Fraction()
}
