package game_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/dogstory-api/internal/config"
	"github.com/KirkDiggler/dogstory-api/internal/engine/game"
	"github.com/KirkDiggler/dogstory-api/internal/engine/loot"
	"github.com/KirkDiggler/dogstory-api/internal/entities/world"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

type RegistryTestSuite struct {
	suite.Suite
	catalog  *world.Catalog
	registry *game.Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func newTestCatalog(t *testing.T, ids ...string) *world.Catalog {
	maps := make([]*world.Map, 0, len(ids))
	for _, id := range ids {
		maps = append(maps, &world.Map{
			ID:          id,
			DogSpeed:    1,
			BagCapacity: 2,
			Roads:       []world.Road{world.NewHorizontalRoad(world.Point{}, 40)},
			LootTypes:   []world.LootType{{Name: "key", Value: 5}},
		})
	}
	catalog, err := world.NewCatalog(maps...)
	if err != nil {
		t.Fatal(err)
	}
	return catalog
}

func (s *RegistryTestSuite) newRegistry(catalog *world.Catalog) *game.Registry {
	registry, err := game.NewRegistry(&game.Config{
		Catalog:             catalog,
		LootPeriod:          time.Second,
		LootProbability:     0,
		RetirementThreshold: 10 * time.Second,
		Random:              loot.FixedSource(0),
	})
	s.Require().NoError(err)
	return registry
}

func (s *RegistryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.catalog = newTestCatalog(s.T(), "town", "forest")
	s.registry = s.newRegistry(s.catalog)
}

func (s *RegistryTestSuite) TestConfigValidation() {
	_, err := game.NewRegistry(&game.Config{LootProbability: 3})
	s.Assert().True(errors.IsInvalidArgument(err))
}

func (s *RegistryTestSuite) TestSessionsAreLazy() {
	_, ok := s.registry.FindSession("town")
	s.Assert().False(ok)

	first, err := s.registry.Session("town")
	s.Require().NoError(err)
	second, err := s.registry.Session("town")
	s.Require().NoError(err)
	s.Assert().Same(first, second)

	_, err = s.registry.Session("desert")
	s.Assert().True(errors.IsNotFound(err))
}

func (s *RegistryTestSuite) TestJoinAllocatesIDsAcrossMaps() {
	a, err := s.registry.Join("town", "A", false)
	s.Require().NoError(err)
	b, err := s.registry.Join("forest", "B", false)
	s.Require().NoError(err)

	s.Assert().Equal(uint64(0), a.ID)
	s.Assert().Equal(uint64(1), b.ID)
	s.Assert().Equal(2, a.BagCapacity)

	_, err = s.registry.Join("desert", "C", false)
	s.Assert().True(errors.IsNotFound(err))
}

func (s *RegistryTestSuite) TestLeave() {
	dog, err := s.registry.Join("town", "A", false)
	s.Require().NoError(err)

	s.Assert().False(s.registry.Leave("forest", dog.ID))
	s.Assert().True(s.registry.Leave("town", dog.ID))

	session, ok := s.registry.FindSession("town")
	s.Require().True(ok)
	s.Assert().Empty(session.View().Dogs)
}

func (s *RegistryTestSuite) TestConcurrentJoinsGetUniqueIDs() {
	var wg sync.WaitGroup
	ids := make(chan uint64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mapID := "town"
			if i%2 == 0 {
				mapID = "forest"
			}
			dog, err := s.registry.Join(mapID, "dog", false)
			if err == nil {
				ids <- dog.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		s.Assert().False(seen[id])
		seen[id] = true
	}
	s.Assert().Len(seen, 50)
}

func (s *RegistryTestSuite) TestTickAdvancesTimeAndSessions() {
	dog, err := s.registry.Join("town", "Rex", false)
	s.Require().NoError(err)
	session, err := s.registry.Session("town")
	s.Require().NoError(err)
	s.Require().NoError(session.SetMove(dog.ID, world.MoveRight))
	_, err = s.registry.Session("forest")
	s.Require().NoError(err)

	reports, err := s.registry.Tick(s.ctx, 1500*time.Millisecond)
	s.Require().NoError(err)
	s.Require().Len(reports, 2)
	s.Assert().Equal("town", reports[0].MapID)
	s.Assert().Equal("forest", reports[1].MapID)
	s.Assert().Equal(1500*time.Millisecond, s.registry.Now())

	moved, ok := session.Dog(dog.ID)
	s.Require().True(ok)
	s.Assert().InDelta(1.5, moved.Position.X(), 1e-9)
}

func (s *RegistryTestSuite) TestTickRejectsNegativeDelta() {
	_, err := s.registry.Tick(s.ctx, -time.Second)
	s.Assert().True(errors.IsInvalidArgument(err))
}

func (s *RegistryTestSuite) TestTickHonoursCanceledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.registry.Tick(ctx, time.Second)
	s.Require().Error(err)
	s.Assert().Equal(time.Duration(0), s.registry.Now())
}

func (s *RegistryTestSuite) TestRetiredDogCreatedMidGame() {
	_, err := s.registry.Tick(s.ctx, 5*time.Second)
	s.Require().NoError(err)
	dog, err := s.registry.Join("town", "Late", false)
	s.Require().NoError(err)
	s.Assert().Equal(5*time.Second, dog.CreatedAt)

	_, err = s.registry.Tick(s.ctx, 11*time.Second)
	s.Require().NoError(err)

	retired, ok := s.registry.ClaimRetired("town", dog.ID)
	s.Require().True(ok)
	s.Assert().Equal(11*time.Second, retired.PlayTime)

	_, ok = s.registry.ClaimRetired("desert", dog.ID)
	s.Assert().False(ok)
}

func (s *RegistryTestSuite) TestExportImportRoundTrip() {
	a, err := s.registry.Join("town", "A", false)
	s.Require().NoError(err)
	_, err = s.registry.Join("forest", "B", false)
	s.Require().NoError(err)
	session, _ := s.registry.Session("town")
	s.Require().NoError(session.SetMove(a.ID, world.MoveRight))
	_, err = s.registry.Tick(s.ctx, 2*time.Second)
	s.Require().NoError(err)

	state := s.registry.Export()

	restored := s.newRegistry(s.catalog)
	s.Require().NoError(restored.Import(state))
	s.Assert().Equal(state, restored.Export())
	s.Assert().Equal(2*time.Second, restored.Now())

	next, err := restored.Join("town", "C", false)
	s.Require().NoError(err)
	s.Assert().Equal(uint64(2), next.ID)
}

func (s *RegistryTestSuite) TestImportRaisesDogCounter() {
	state := game.State{
		NextDogID: 0,
		Sessions: []game.SessionState{{
			MapID: "town",
			Dogs:  []world.Dog{{ID: 7, Name: "Old", BagCapacity: 2}},
		}},
	}
	s.Require().NoError(s.registry.Import(state))

	dog, err := s.registry.Join("town", "New", false)
	s.Require().NoError(err)
	s.Assert().Equal(uint64(8), dog.ID)
}

func (s *RegistryTestSuite) TestImportUnknownMapIsCorrupt() {
	_, err := s.registry.Join("town", "A", false)
	s.Require().NoError(err)

	err = s.registry.Import(game.State{Sessions: []game.SessionState{{MapID: "atlantis"}}})
	s.Require().Error(err)
	s.Assert().True(errors.IsCorruptSnapshot(err))

	session, ok := s.registry.FindSession("town")
	s.Require().True(ok)
	s.Assert().Len(session.View().Dogs, 1)
}

func (s *RegistryTestSuite) TestZeroRetirementThresholdFromConfig() {
	cfg, err := config.Parse([]byte(`{
  "dogRetirementTime": 0,
  "lootGeneratorConfig": {"period": 5, "probability": 0.5},
  "maps": [{"id": "m", "name": "M", "lootTypes": [{"name": "key", "value": 1}],
    "roads": [{"x0": 0, "y0": 0, "x1": 10}]}]
}`))
	s.Require().NoError(err)

	registry, err := game.NewRegistry(&game.Config{
		Catalog:             cfg.Catalog,
		LootPeriod:          cfg.LootPeriod,
		LootProbability:     cfg.LootProbability,
		RetirementThreshold: cfg.RetirementThreshold,
		Random:              loot.FixedSource(0),
	})
	s.Require().NoError(err)

	dog, err := registry.Join("m", "Rex", false)
	s.Require().NoError(err)

	reports, err := registry.Tick(s.ctx, 30*time.Second)
	s.Require().NoError(err)
	s.Require().Len(reports, 1)
	s.Assert().Equal([]uint64{dog.ID}, reports[0].Retired)

	retired, ok := registry.ClaimRetired("m", dog.ID)
	s.Require().True(ok)
	s.Assert().Equal(30*time.Second, retired.PlayTime)
}

func (s *RegistryTestSuite) TestSeededMapsDrawTheirOwnStreams() {
	catalog := newTestCatalog(s.T(), "town", "forest", "park", "docks")
	run := func(order ...string) map[string]game.SessionState {
		registry, err := game.NewRegistry(&game.Config{
			Catalog:             catalog,
			LootPeriod:          time.Second,
			LootProbability:     0.9,
			RetirementThreshold: time.Hour,
			Random:              loot.NewSeededSource(99),
		})
		s.Require().NoError(err)
		for _, mapID := range order {
			for i := 0; i < 3; i++ {
				_, err := registry.Join(mapID, "dog", true)
				s.Require().NoError(err)
			}
		}
		for i := 0; i < 5; i++ {
			_, err := registry.Tick(s.ctx, 700*time.Millisecond)
			s.Require().NoError(err)
		}
		byMap := make(map[string]game.SessionState)
		for _, st := range registry.Export().Sessions {
			byMap[st.MapID] = st
		}
		return byMap
	}

	first := run("town", "forest", "park", "docks")
	second := run("docks", "park", "forest", "town")

	spawned := 0
	for _, mapID := range []string{"town", "forest", "park", "docks"} {
		s.Assert().Equal(first[mapID].LostObjects, second[mapID].LostObjects, mapID)
		s.Assert().Equal(first[mapID].TimeWithoutLoot, second[mapID].TimeWithoutLoot, mapID)
		s.Require().Len(second[mapID].Dogs, 3)
		for i, dog := range first[mapID].Dogs {
			s.Assert().Equal(dog.Position, second[mapID].Dogs[i].Position, mapID)
		}
		spawned += int(first[mapID].NextItemID)
	}
	s.Assert().Positive(spawned)
}
