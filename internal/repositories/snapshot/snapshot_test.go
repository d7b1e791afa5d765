package snapshot_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/suite"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/KirkDiggler/dogstory-api/internal/engine/game"
	"github.com/KirkDiggler/dogstory-api/internal/entities/world"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/repositories/leaderboard"
	"github.com/KirkDiggler/dogstory-api/internal/repositories/snapshot"
	"github.com/KirkDiggler/dogstory-api/internal/services/players"
)

func sampleSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		SavedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Game: game.State{
			Now:       90500 * time.Millisecond,
			NextDogID: 3,
			Sessions: []game.SessionState{
				{
					MapID:           "map1",
					NextItemID:      7,
					TimeWithoutLoot: 1200 * time.Millisecond,
					Dogs: []world.Dog{
						{
							ID:            0,
							Name:          "Rex",
							Position:      mgl64.Vec2{3.5, 0},
							StartPosition: mgl64.Vec2{0, 0},
							Velocity:      mgl64.Vec2{1, 0},
							Direction:     world.DirectionEast,
							Bag:           []world.BagItem{{ID: 4, Type: 1}, {ID: 5, Type: 0}},
							BagCapacity:   3,
							Score:         20,
							Value:         15,
							CreatedAt:     10 * time.Second,
						},
						{
							ID:            2,
							Name:          "Bo",
							Position:      mgl64.Vec2{10, 4},
							StartPosition: mgl64.Vec2{10, 4},
							Direction:     world.DirectionNorth,
							Bag:           []world.BagItem{},
							BagCapacity:   3,
							CreatedAt:     30 * time.Second,
							Idle:          true,
							IdleSince:     40 * time.Second,
						},
					},
					LostObjects: []world.LostObject{{ID: 6, Type: 1, Position: mgl64.Vec2{7, 0}}},
				},
			},
		},
		Players: []players.Player{
			{Token: "0123456789abcdef0123456789abcdef", DogID: 0, MapID: "map1"},
			{Token: "fedcba9876543210fedcba9876543210", DogID: 2, MapID: "map1"},
		},
		Pending: []leaderboard.Record{{ID: "r1", Name: "Old", Score: 9, PlayTime: 75 * time.Second}},
	}
}

type SnapshotTestSuite struct {
	suite.Suite
	ctx   context.Context
	dir   string
	store *snapshot.FileStore
}

func TestSnapshotSuite(t *testing.T) {
	suite.Run(t, new(SnapshotTestSuite))
}

func (s *SnapshotTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()

	var err error
	s.store, err = snapshot.NewFileStore(&snapshot.FileConfig{Path: filepath.Join(s.dir, "state.bin")})
	s.Require().NoError(err)
}

func (s *SnapshotTestSuite) assertSame(want, got *snapshot.Snapshot) {
	s.Assert().True(want.SavedAt.Equal(got.SavedAt))
	s.Assert().Equal(want.Game, got.Game)
	s.Assert().Equal(want.Players, got.Players)
	s.Assert().Equal(want.Pending, got.Pending)
}

func (s *SnapshotTestSuite) TestEncodeDecode() {
	want := sampleSnapshot()
	b, err := snapshot.Encode(want)
	s.Require().NoError(err)

	got, err := snapshot.Decode(b)
	s.Require().NoError(err)
	s.assertSame(want, got)
}

func (s *SnapshotTestSuite) TestEncodeKeepsSubMillisecondTimes() {
	want := sampleSnapshot()
	want.Game.Now = 90*time.Second + 1234567*time.Nanosecond
	want.Game.Sessions[0].TimeWithoutLoot = 999999 * time.Nanosecond
	want.Game.Sessions[0].Dogs[1].IdleSince = 40*time.Second + 17*time.Microsecond
	want.Pending[0].PlayTime = 75*time.Second + 3*time.Nanosecond

	b, err := snapshot.Encode(want)
	s.Require().NoError(err)

	got, err := snapshot.Decode(b)
	s.Require().NoError(err)
	s.assertSame(want, got)
}

func (s *SnapshotTestSuite) TestDecodeGarbage() {
	_, err := snapshot.Decode([]byte("definitely not msgpack"))
	s.Assert().True(errors.IsCorruptSnapshot(err))
}

func (s *SnapshotTestSuite) TestDecodeUnknownVersion() {
	b, err := msgpack.Marshal(map[string]any{"version": 99})
	s.Require().NoError(err)

	_, err = snapshot.Decode(b)
	s.Assert().True(errors.IsCorruptSnapshot(err))
}

func (s *SnapshotTestSuite) TestDecodeRejectsOverfullBag() {
	snap := sampleSnapshot()
	snap.Game.Sessions[0].Dogs[0].BagCapacity = 1
	b, err := snapshot.Encode(snap)
	s.Require().NoError(err)

	_, err = snapshot.Decode(b)
	s.Assert().True(errors.IsCorruptSnapshot(err))
}

func (s *SnapshotTestSuite) TestLoadMissingIsNotFound() {
	_, err := s.store.Load(s.ctx)
	s.Assert().True(errors.IsNotFound(err))
}

func (s *SnapshotTestSuite) TestSaveLoad() {
	want := sampleSnapshot()
	s.Require().NoError(s.store.Save(s.ctx, want))

	got, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.assertSame(want, got)
}

func (s *SnapshotTestSuite) TestSaveReplacesAndLeavesNoTempFiles() {
	first := sampleSnapshot()
	s.Require().NoError(s.store.Save(s.ctx, first))

	second := sampleSnapshot()
	second.Game.NextDogID = 42
	second.Pending = nil
	s.Require().NoError(s.store.Save(s.ctx, second))

	got, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(uint64(42), got.Game.NextDogID)
	s.Assert().Empty(got.Pending)

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Assert().Equal("state.bin", entries[0].Name())
}

func (s *SnapshotTestSuite) TestSaveIntoMissingDirectoryFails() {
	store, err := snapshot.NewFileStore(&snapshot.FileConfig{Path: filepath.Join(s.dir, "nope", "state.bin")})
	s.Require().NoError(err)

	err = store.Save(s.ctx, sampleSnapshot())
	s.Assert().True(errors.IsPersistence(err))
}

func (s *SnapshotTestSuite) TestLoadTruncatedFile() {
	b, err := snapshot.Encode(sampleSnapshot())
	s.Require().NoError(err)
	s.Require().NoError(os.WriteFile(s.store.Path(), b[:len(b)/2], 0o600))

	_, err = s.store.Load(s.ctx)
	s.Assert().True(errors.IsCorruptSnapshot(err))
}

func (s *SnapshotTestSuite) TestConfigValidation() {
	_, err := snapshot.NewFileStore(&snapshot.FileConfig{})
	s.Assert().True(errors.IsInvalidArgument(err))
}
