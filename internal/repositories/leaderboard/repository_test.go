package leaderboard_test

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"pgregory.net/rapid"

	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/repositories/leaderboard"
	"github.com/KirkDiggler/dogstory-api/internal/testutils"
)

// RepositoryTestSuite runs the same behavior checks against every implementation
type RepositoryTestSuite struct {
	suite.Suite
	newRepo func(t *testing.T) (leaderboard.Repository, func())
	repo    leaderboard.Repository
	cleanup func()
	ctx     context.Context
}

func TestInMemoryRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{
		newRepo: func(*testing.T) (leaderboard.Repository, func()) {
			return leaderboard.NewInMemory(), func() {}
		},
	})
}

func TestRedisRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{
		newRepo: func(t *testing.T) (leaderboard.Repository, func()) {
			pool, _, cleanup := testutils.CreateTestRedisPool(t, 2)
			repo, err := leaderboard.NewRedis(&leaderboard.RedisConfig{Pool: pool})
			if err != nil {
				t.Fatal(err)
			}
			return repo, cleanup
		},
	})
}

func (s *RepositoryTestSuite) SetupTest() {
	s.repo, s.cleanup = s.newRepo(s.T())
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.cleanup()
}

func (s *RepositoryTestSuite) list(offset, limit int) []leaderboard.Record {
	out, err := s.repo.List(s.ctx, leaderboard.ListInput{Offset: offset, Limit: limit})
	s.Require().NoError(err)
	return out.Records
}

func (s *RepositoryTestSuite) TestEmpty() {
	s.Assert().Empty(s.list(0, 10))
}

func (s *RepositoryTestSuite) TestRankOrder() {
	records := []leaderboard.Record{
		{ID: "a", Name: "Rex", Score: 10, PlayTime: 5 * time.Second},
		{ID: "b", Name: "Ace", Score: 30, PlayTime: 9 * time.Second},
		{ID: "c", Name: "Bo", Score: 10, PlayTime: 2 * time.Second},
		{ID: "d", Name: "Al", Score: 10, PlayTime: 5 * time.Second},
		{ID: "e", Name: "Zed", Score: 0, PlayTime: time.Second},
	}
	out, err := s.repo.Save(s.ctx, leaderboard.SaveInput{Records: records})
	s.Require().NoError(err)
	s.Assert().Equal(5, out.Saved)

	got := s.list(0, 100)
	names := make([]string, 0, len(got))
	for _, rec := range got {
		names = append(names, rec.Name)
	}
	s.Assert().Equal([]string{"Ace", "Bo", "Al", "Rex", "Zed"}, names)
	s.Assert().Equal(records[1], got[0])
}

func (s *RepositoryTestSuite) TestPaging() {
	var records []leaderboard.Record
	for i := 0; i < 7; i++ {
		records = append(records, leaderboard.Record{
			ID:    fmt.Sprintf("id-%d", i),
			Name:  fmt.Sprintf("dog-%d", i),
			Score: 100 - i,
		})
	}
	_, err := s.repo.Save(s.ctx, leaderboard.SaveInput{Records: records})
	s.Require().NoError(err)

	page := s.list(2, 3)
	s.Require().Len(page, 3)
	s.Assert().Equal("dog-2", page[0].Name)
	s.Assert().Equal("dog-4", page[2].Name)

	s.Assert().Len(s.list(6, 10), 1)
	s.Assert().Empty(s.list(7, 10))
}

func (s *RepositoryTestSuite) TestSavingSameRecordTwiceKeepsOneRow() {
	rec := leaderboard.Record{ID: "x", Name: "Rex", Score: 4, PlayTime: time.Minute}
	for i := 0; i < 2; i++ {
		_, err := s.repo.Save(s.ctx, leaderboard.SaveInput{Records: []leaderboard.Record{rec}})
		s.Require().NoError(err)
	}
	s.Assert().Equal([]leaderboard.Record{rec}, s.list(0, 10))
}

func (s *RepositoryTestSuite) TestPlayTimeKeepsMilliseconds() {
	rec := leaderboard.Record{ID: "m", Name: "Rex", Score: 1, PlayTime: 61500 * time.Millisecond}
	_, err := s.repo.Save(s.ctx, leaderboard.SaveInput{Records: []leaderboard.Record{rec}})
	s.Require().NoError(err)
	s.Assert().Equal(rec.PlayTime, s.list(0, 1)[0].PlayTime)
}

func (s *RepositoryTestSuite) TestValidation() {
	_, err := s.repo.Save(s.ctx, leaderboard.SaveInput{Records: []leaderboard.Record{{Name: "no id"}}})
	s.Assert().True(errors.IsInvalidArgument(err))

	_, err = s.repo.Save(s.ctx, leaderboard.SaveInput{Records: []leaderboard.Record{{ID: "n", Score: -1}}})
	s.Assert().True(errors.IsInvalidArgument(err))

	_, err = s.repo.List(s.ctx, leaderboard.ListInput{Offset: 0, Limit: leaderboard.MaxListLimit + 1})
	s.Assert().True(errors.IsInvalidArgument(err))

	_, err = s.repo.List(s.ctx, leaderboard.ListInput{Offset: -1, Limit: 1})
	s.Assert().True(errors.IsInvalidArgument(err))

	_, err = s.repo.List(s.ctx, leaderboard.ListInput{Offset: 0, Limit: 0})
	s.Assert().True(errors.IsInvalidArgument(err))
}

func TestInMemoryMatchesLess(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		records := make([]leaderboard.Record, n)
		for i := range records {
			records[i] = leaderboard.Record{
				ID:       fmt.Sprintf("r%03d", i),
				Name:     rapid.SampledFrom([]string{"a", "ab", "b", "Rex"}).Draw(t, "name"),
				Score:    rapid.IntRange(0, 5).Draw(t, "score"),
				PlayTime: time.Duration(rapid.IntRange(0, 3).Draw(t, "play")) * time.Second,
			}
		}

		repo := leaderboard.NewInMemory()
		_, err := repo.Save(context.Background(), leaderboard.SaveInput{Records: records})
		if err != nil {
			t.Fatal(err)
		}
		out, err := repo.List(context.Background(), leaderboard.ListInput{Limit: leaderboard.MaxListLimit})
		if err != nil {
			t.Fatal(err)
		}

		want := append([]leaderboard.Record(nil), records...)
		sort.Slice(want, func(i, j int) bool { return leaderboard.Less(want[i], want[j]) })
		if len(out.Records) != len(want) {
			t.Fatalf("got %d records, want %d", len(out.Records), len(want))
		}
		for i := range want {
			if out.Records[i] != want[i] {
				t.Fatalf("position %d: got %+v, want %+v", i, out.Records[i], want[i])
			}
		}
	})
}

func TestRankMemberOrderMatchesLess(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gen := func(label string) leaderboard.Record {
			return leaderboard.Record{
				ID:       rapid.StringMatching(`[a-f0-9]{4}`).Draw(t, label+"id"),
				Name:     rapid.StringMatching(`[A-Za-z ]{0,6}`).Draw(t, label+"name"),
				Score:    rapid.IntRange(0, 1_000_000).Draw(t, label+"score"),
				PlayTime: time.Duration(rapid.Int64Range(0, 1e7).Draw(t, label+"ms")) * time.Millisecond,
			}
		}
		a, b := gen("a"), gen("b")
		if leaderboard.Less(a, b) != (leaderboard.RankMember(a) < leaderboard.RankMember(b)) {
			t.Fatalf("member order disagrees for %+v and %+v", a, b)
		}
	})
}
