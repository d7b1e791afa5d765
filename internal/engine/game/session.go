// Package game runs the simulation: one Session per map, all owned by a Registry.
package game

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/KirkDiggler/dogstory-api/internal/engine/collision"
	"github.com/KirkDiggler/dogstory-api/internal/engine/loot"
	"github.com/KirkDiggler/dogstory-api/internal/entities/world"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

// Collision radii
const (
	LootRadius   = 0.0
	OfficeRadius = 0.25
	DogRadius    = 0.3
)

// TickInput describes one time step of a session
type TickInput struct {
	Start               time.Duration
	Delta               time.Duration
	RetirementThreshold time.Duration
}

// Collection is a loot item picked up by a dog
type Collection struct {
	DogID uint64
	Item  world.LostObject
	Value int
}

// Delivery is a bag emptied at an office
type Delivery struct {
	DogID    uint64
	OfficeID string
	Value    int
}

// TickReport lists what happened in a session during one tick
type TickReport struct {
	MapID     string
	Spawned   []world.LostObject
	Collected []Collection
	Delivered []Delivery
	Retired   []uint64
}

// RetiredDog is the final record of a dog that left the game
type RetiredDog struct {
	DogID    uint64
	MapID    string
	Name     string
	Score    int
	PlayTime time.Duration
}

// SessionView is a consistent copy of a session's live state
type SessionView struct {
	MapID       string
	Dogs        []*world.Dog
	LostObjects []world.LostObject
}

// SessionConfig holds the dependencies of a Session
type SessionConfig struct {
	Map       *world.Map
	Generator *loot.Generator
	Random    loot.RandomSource
}

// Validate ensures all required dependencies are provided
func (c *SessionConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Map == nil {
		vb.RequiredField("Map")
	}
	if c.Generator == nil {
		vb.RequiredField("Generator")
	}
	if c.Random == nil {
		vb.RequiredField("Random")
	}
	return vb.Build()
}

// Session is the live instance of one map. Every method takes the session
// lock, so a tick is never observed half done.
type Session struct {
	mu          sync.RWMutex
	gameMap     *world.Map
	generator   *loot.Generator
	random      loot.RandomSource
	dogs        []*world.Dog
	lostObjects []world.LostObject
	nextItemID  uint64
}

// NewSession creates an empty session for a map
func NewSession(cfg *SessionConfig) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Session{
		gameMap:   cfg.Map,
		generator: cfg.Generator,
		random:    cfg.Random,
	}, nil
}

// MapID returns the id of the session's map
func (s *Session) MapID() string {
	return s.gameMap.ID
}

// Map returns the session's map
func (s *Session) Map() *world.Map {
	return s.gameMap
}

// SpawnPoint picks where a new dog appears: the start of the first road,
// or a uniformly random point of a random road.
func (s *Session) SpawnPoint(randomize bool) mgl64.Vec2 {
	roads := s.gameMap.Roads
	if !randomize {
		return roads[0].Start.Vec()
	}
	road := roads[pickIndex(s.random, len(roads))]
	return road.PointAlong(s.random.Fraction())
}

// AddDog puts a dog into the session
func (s *Session) AddDog(dog *world.Dog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dogs = append(s.dogs, dog)
}

// Dog returns a copy of the dog with id
func (s *Session) Dog(id uint64) (*world.Dog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if dog := s.findDog(id); dog != nil {
		return dog.Clone(), true
	}
	return nil, false
}

// SetMove steers a dog at the map's speed
func (s *Session) SetMove(id uint64, cmd world.MoveCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dog := s.findDog(id)
	if dog == nil {
		return errors.NotFoundf("dog %d not found on map %q", id, s.gameMap.ID)
	}
	dog.SetMove(cmd, s.gameMap.GetDogSpeed())
	return nil
}

// View returns a deep copy of the dogs and loot
func (s *Session) View() SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := SessionView{
		MapID:       s.gameMap.ID,
		Dogs:        make([]*world.Dog, 0, len(s.dogs)),
		LostObjects: append([]world.LostObject(nil), s.lostObjects...),
	}
	for _, dog := range s.dogs {
		view.Dogs = append(view.Dogs, dog.Clone())
	}
	return view
}

// RemoveDog drops a dog without recording it. It reports whether the dog was present.
func (s *Session) RemoveDog(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, dog := range s.dogs {
		if dog.ID == id {
			s.dogs = append(s.dogs[:i], s.dogs[i+1:]...)
			return true
		}
	}
	return false
}

// ClaimRetired removes a retired dog and returns its final record.
// It reports false while the dog is still playing or when it is unknown.
func (s *Session) ClaimRetired(id uint64) (RetiredDog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, dog := range s.dogs {
		if dog.ID != id {
			continue
		}
		playTime, ok := dog.TakePlayTime()
		if !ok {
			return RetiredDog{}, false
		}
		s.dogs = append(s.dogs[:i], s.dogs[i+1:]...)
		return RetiredDog{
			DogID:    dog.ID,
			MapID:    s.gameMap.ID,
			Name:     dog.Name,
			Score:    dog.Score,
			PlayTime: playTime,
		}, true
	}
	return RetiredDog{}, false
}

// Tick advances the session by one step: spawn loot, retire idle dogs,
// move the rest, then resolve pickups and deliveries in time order.
func (s *Session) Tick(in TickInput) TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := TickReport{MapID: s.gameMap.ID}
	end := in.Start + in.Delta

	report.Spawned = s.spawnLoot(in.Delta)

	for _, dog := range s.dogs {
		if dog.UpdateRetirement(in.Start, end, in.RetirementThreshold) {
			report.Retired = append(report.Retired, dog.ID)
		}
		if dog.Retired {
			dog.StartPosition = dog.Position
			continue
		}
		dog.Move(in.Delta, s.gameMap.Roads)
	}

	s.resolveGathering(&report)
	return report
}

func (s *Session) spawnLoot(delta time.Duration) []world.LostObject {
	count := s.generator.Generate(delta, len(s.lostObjects), s.activeDogs())
	if count == 0 {
		return nil
	}

	roads := s.gameMap.Roads
	lootTypes := len(s.gameMap.LootTypes)
	spawned := make([]world.LostObject, 0, count)
	for i := 0; i < count; i++ {
		road := roads[pickIndex(s.random, len(roads))]
		obj := world.LostObject{
			ID:       s.nextItemID,
			Type:     pickIndex(s.random, lootTypes),
			Position: road.PointAlong(s.random.Fraction()),
		}
		s.nextItemID++
		s.lostObjects = append(s.lostObjects, obj)
		spawned = append(spawned, obj)
	}
	return spawned
}

// resolveGathering labels loot 0..n-1 and offices n..n+m-1 for the detector
func (s *Session) resolveGathering(report *TickReport) {
	byID := make(map[uint64]*world.Dog, len(s.dogs))
	gatherers := make([]collision.Gatherer, 0, len(s.dogs))
	for _, dog := range s.dogs {
		if dog.Retired {
			continue
		}
		g := collision.Gatherer{ID: dog.ID, Start: dog.StartPosition, End: dog.Position, Radius: DogRadius}
		if !collision.ValidGatherer(g) {
			continue
		}
		byID[dog.ID] = dog
		gatherers = append(gatherers, g)
	}
	if len(gatherers) == 0 {
		return
	}

	offices := s.gameMap.Offices
	items := make([]collision.Item, 0, len(s.lostObjects)+len(offices))
	for i, obj := range s.lostObjects {
		items = append(items, collision.Item{ID: uint64(i), Position: obj.Position, Radius: LootRadius})
	}
	for i, office := range offices {
		items = append(items, collision.Item{
			ID:       uint64(len(s.lostObjects) + i),
			Position: office.Position.Vec(),
			Radius:   OfficeRadius,
			IsOffice: true,
		})
	}

	collected := make(map[uint64]struct{})
	for _, ev := range collision.FindGatherEvents(gatherers, items) {
		dog := byID[ev.GathererID]
		if items[ev.ItemID].IsOffice {
			office := offices[int(ev.ItemID)-len(s.lostObjects)]
			if value := dog.EmptyBag(); value > 0 {
				report.Delivered = append(report.Delivered, Delivery{DogID: dog.ID, OfficeID: office.ID, Value: value})
			}
			continue
		}

		obj := s.lostObjects[ev.ItemID]
		value := s.gameMap.LootValue(obj.Type)
		if !dog.PushIntoBag(world.BagItem{ID: obj.ID, Type: obj.Type}, value) {
			continue
		}
		collected[obj.ID] = struct{}{}
		report.Collected = append(report.Collected, Collection{DogID: dog.ID, Item: obj, Value: value})
	}

	if len(collected) == 0 {
		return
	}
	remaining := s.lostObjects[:0]
	for _, obj := range s.lostObjects {
		if _, ok := collected[obj.ID]; !ok {
			remaining = append(remaining, obj)
		}
	}
	s.lostObjects = remaining
}

func (s *Session) activeDogs() int {
	n := 0
	for _, dog := range s.dogs {
		if !dog.Retired {
			n++
		}
	}
	return n
}

func (s *Session) findDog(id uint64) *world.Dog {
	for _, dog := range s.dogs {
		if dog.ID == id {
			return dog
		}
	}
	return nil
}

// pickIndex maps a random fraction onto [0, n)
func pickIndex(random loot.RandomSource, n int) int {
	if n <= 1 {
		return 0
	}
	i := int(random.Fraction() * float64(n))
	return min(max(i, 0), n-1)
}
