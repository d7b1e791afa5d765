package game_test

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/dogstory-api/internal/engine/game"
	"github.com/KirkDiggler/dogstory-api/internal/engine/loot"
	"github.com/KirkDiggler/dogstory-api/internal/entities/world"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

type SessionTestSuite struct {
	suite.Suite
	gameMap *world.Map
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func (s *SessionTestSuite) SetupTest() {
	s.gameMap = &world.Map{
		ID:          "town",
		DogSpeed:    10,
		BagCapacity: 3,
		Roads:       []world.Road{world.NewHorizontalRoad(world.Point{X: 0, Y: 0}, 10)},
		Offices:     []world.Office{{ID: "o1", Position: world.Point{X: 8, Y: 0}}},
		LootTypes:   []world.LootType{{Name: "key", Value: 10}, {Name: "wallet", Value: 30}},
	}
}

// newSession spawns loot in the middle of the road whenever a dog lacks some
func (s *SessionTestSuite) newSession(probability float64) *game.Session {
	random := loot.FixedSource(0.5)
	gen, err := loot.NewGenerator(&loot.Config{Period: time.Second, Probability: probability, Random: random})
	s.Require().NoError(err)
	session, err := game.NewSession(&game.SessionConfig{Map: s.gameMap, Generator: gen, Random: random})
	s.Require().NoError(err)
	return session
}

func (s *SessionTestSuite) tick(session *game.Session, start, delta time.Duration) game.TickReport {
	return session.Tick(game.TickInput{Start: start, Delta: delta, RetirementThreshold: time.Minute})
}

func (s *SessionTestSuite) TestNewSessionValidates() {
	_, err := game.NewSession(&game.SessionConfig{})
	s.Assert().True(errors.IsInvalidArgument(err))
}

func (s *SessionTestSuite) TestSpawnPoint() {
	session := s.newSession(0)
	s.Assert().Equal(mgl64.Vec2{0, 0}, session.SpawnPoint(false))
	s.Assert().Equal(mgl64.Vec2{5, 0}, session.SpawnPoint(true))
}

func (s *SessionTestSuite) TestPickupThenDeliverInOneTick() {
	session := s.newSession(1)
	session.AddDog(world.NewDog(0, "Rex", mgl64.Vec2{0, 0}, 3, 0))

	report := s.tick(session, 0, time.Second)
	s.Require().Len(report.Spawned, 1)
	s.Assert().Equal(mgl64.Vec2{5, 0}, report.Spawned[0].Position)
	s.Assert().Equal(1, report.Spawned[0].Type)
	s.Assert().Empty(report.Collected)

	s.Require().NoError(session.SetMove(0, world.MoveRight))
	report = s.tick(session, time.Second, time.Second)

	s.Assert().Empty(report.Spawned)
	s.Require().Len(report.Collected, 1)
	s.Assert().Equal(30, report.Collected[0].Value)
	s.Require().Len(report.Delivered, 1)
	s.Assert().Equal(game.Delivery{DogID: 0, OfficeID: "o1", Value: 30}, report.Delivered[0])

	view := session.View()
	s.Assert().Empty(view.LostObjects)
	s.Require().Len(view.Dogs, 1)
	s.Assert().Equal(30, view.Dogs[0].Score)
	s.Assert().Empty(view.Dogs[0].Bag)
	s.Assert().InDelta(10.0, view.Dogs[0].Position.X(), 1e-9)
}

func (s *SessionTestSuite) TestFullBagLeavesItemOnRoad() {
	s.gameMap.BagCapacity = 0
	session := s.newSession(1)
	session.AddDog(world.NewDog(0, "Rex", mgl64.Vec2{0, 0}, 0, 0))

	s.tick(session, 0, time.Second)
	s.Require().NoError(session.SetMove(0, world.MoveRight))
	report := s.tick(session, time.Second, time.Second)

	s.Assert().Empty(report.Collected)
	s.Assert().Empty(report.Delivered)
	s.Assert().Len(session.View().LostObjects, 1)
}

func (s *SessionTestSuite) TestEarlierDogGetsTheItem() {
	session := s.newSession(1)
	session.AddDog(world.NewDog(0, "Far", mgl64.Vec2{0, 0}, 3, 0))
	session.AddDog(world.NewDog(1, "Near", mgl64.Vec2{7, 0}, 3, 0))

	report := s.tick(session, 0, time.Second)
	s.Require().Len(report.Spawned, 1)

	s.Require().NoError(session.SetMove(0, world.MoveRight))
	s.Require().NoError(session.SetMove(1, world.MoveLeft))
	report = s.tick(session, time.Second, 500*time.Millisecond)

	// one more item spawns on the same spot before the dogs move
	s.Require().Len(report.Spawned, 1)
	s.Require().Len(report.Collected, 2)
	for _, c := range report.Collected {
		s.Assert().Equal(uint64(1), c.DogID)
	}
	s.Assert().Empty(session.View().LostObjects)
}

func (s *SessionTestSuite) TestSetMoveUnknownDog() {
	session := s.newSession(0)
	err := session.SetMove(42, world.MoveUp)
	s.Assert().True(errors.IsNotFound(err))
}

func (s *SessionTestSuite) TestRetirementAndClaim() {
	session := s.newSession(0)
	session.AddDog(world.NewDog(0, "Rex", mgl64.Vec2{0, 0}, 3, 0))

	report := session.Tick(game.TickInput{Start: 0, Delta: 2 * time.Second, RetirementThreshold: time.Second})
	s.Assert().Equal([]uint64{0}, report.Retired)

	// a retired dog ignores commands
	s.Require().NoError(session.SetMove(0, world.MoveRight))
	session.Tick(game.TickInput{Start: 2 * time.Second, Delta: time.Second, RetirementThreshold: time.Second})
	dog, ok := session.Dog(0)
	s.Require().True(ok)
	s.Assert().Equal(mgl64.Vec2{0, 0}, dog.Position)

	retired, ok := session.ClaimRetired(0)
	s.Require().True(ok)
	s.Assert().Equal(game.RetiredDog{DogID: 0, MapID: "town", Name: "Rex", PlayTime: 2 * time.Second}, retired)

	_, ok = session.ClaimRetired(0)
	s.Assert().False(ok)
	s.Assert().Empty(session.View().Dogs)
}

func (s *SessionTestSuite) TestClaimActiveDogFails() {
	session := s.newSession(0)
	session.AddDog(world.NewDog(0, "Rex", mgl64.Vec2{0, 0}, 3, 0))

	_, ok := session.ClaimRetired(0)
	s.Assert().False(ok)
	s.Assert().Len(session.View().Dogs, 1)
}

func (s *SessionTestSuite) TestRemoveDog() {
	session := s.newSession(0)
	session.AddDog(world.NewDog(0, "Rex", mgl64.Vec2{0, 0}, 3, 0))
	session.AddDog(world.NewDog(1, "Bo", mgl64.Vec2{0, 0}, 3, 0))

	s.Assert().True(session.RemoveDog(0))
	s.Assert().False(session.RemoveDog(0))

	view := session.View()
	s.Require().Len(view.Dogs, 1)
	s.Assert().Equal(uint64(1), view.Dogs[0].ID)
}

func (s *SessionTestSuite) TestViewIsACopy() {
	session := s.newSession(0)
	session.AddDog(world.NewDog(0, "Rex", mgl64.Vec2{0, 0}, 3, 0))

	view := session.View()
	view.Dogs[0].Score = 1000

	dog, _ := session.Dog(0)
	s.Assert().Equal(0, dog.Score)
}
