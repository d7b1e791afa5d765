package connpool_test

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/pkg/connpool"
)

type fakeConn struct {
	id     int
	closed atomic.Bool
}

type PoolTestSuite struct {
	suite.Suite
	ctx    context.Context
	opened []*fakeConn
}

func TestPoolSuite(t *testing.T) {
	suite.Run(t, new(PoolTestSuite))
}

func (s *PoolTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.opened = nil
}

func (s *PoolTestSuite) newPool(size int, timeout time.Duration) *connpool.Pool[*fakeConn] {
	p, err := connpool.New(s.ctx, &connpool.Config[*fakeConn]{
		Size:           size,
		AcquireTimeout: timeout,
		Open: func(context.Context) (*fakeConn, error) {
			c := &fakeConn{id: len(s.opened)}
			s.opened = append(s.opened, c)
			return c, nil
		},
		Close: func(c *fakeConn) error {
			c.closed.Store(true)
			return nil
		},
	})
	s.Require().NoError(err)
	return p
}

func (s *PoolTestSuite) TestConfigValidation() {
	_, err := connpool.New(s.ctx, &connpool.Config[int]{Size: 0})
	s.Assert().True(errors.IsInvalidArgument(err))
}

func (s *PoolTestSuite) TestOpensAllConnectionsUpFront() {
	p := s.newPool(3, time.Second)
	defer func() { _ = p.Close() }()

	s.Assert().Len(s.opened, 3)
	s.Assert().Equal(connpool.Stats{Size: 3, Idle: 3}, p.Stats())
}

func (s *PoolTestSuite) TestOpenFailureClosesOpenedConnections() {
	var opened []*fakeConn
	_, err := connpool.New(s.ctx, &connpool.Config[*fakeConn]{
		Size: 3,
		Open: func(context.Context) (*fakeConn, error) {
			if len(opened) == 2 {
				return nil, stderrors.New("refused")
			}
			c := &fakeConn{}
			opened = append(opened, c)
			return c, nil
		},
		Close: func(c *fakeConn) error {
			c.closed.Store(true)
			return nil
		},
	})
	s.Require().Error(err)
	s.Assert().True(errors.IsPersistence(err))
	for _, c := range opened {
		s.Assert().True(c.closed.Load())
	}
}

func (s *PoolTestSuite) TestAcquireTimesOutWhenExhausted() {
	p := s.newPool(1, 20*time.Millisecond)
	defer func() { _ = p.Close() }()

	conn, err := p.Acquire(s.ctx)
	s.Require().NoError(err)

	_, err = p.Acquire(s.ctx)
	s.Assert().Equal(errors.CodeDeadlineExceeded, errors.GetCode(err))
	s.Assert().True(errors.IsRetryable(err))

	p.Release(conn)
	again, err := p.Acquire(s.ctx)
	s.Require().NoError(err)
	s.Assert().Same(conn, again)
}

func (s *PoolTestSuite) TestAcquireHonorsContext() {
	p := s.newPool(1, time.Minute)
	defer func() { _ = p.Close() }()

	_, err := p.Acquire(s.ctx)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = p.Acquire(ctx)
	s.Assert().Equal(errors.CodeCanceled, errors.GetCode(err))
}

func (s *PoolTestSuite) TestReleaseWakesWaiter() {
	p := s.newPool(1, time.Second)
	defer func() { _ = p.Close() }()

	conn, err := p.Acquire(s.ctx)
	s.Require().NoError(err)

	got := make(chan *fakeConn, 1)
	go func() {
		c, err := p.Acquire(s.ctx)
		if err == nil {
			got <- c
		}
		close(got)
	}()

	s.Require().Eventually(func() bool { return p.Stats().Waiting == 1 }, time.Second, time.Millisecond)
	p.Release(conn)

	select {
	case c := <-got:
		s.Assert().Same(conn, c)
	case <-time.After(time.Second):
		s.Fail("waiter was not woken")
	}
}

func (s *PoolTestSuite) TestWithReleasesOnErrorAndPanic() {
	p := s.newPool(1, 50*time.Millisecond)
	defer func() { _ = p.Close() }()

	boom := stderrors.New("boom")
	err := p.With(s.ctx, func(*fakeConn) error { return boom })
	s.Assert().ErrorIs(err, boom)
	s.Assert().Equal(1, p.Stats().Idle)

	s.Assert().Panics(func() {
		_ = p.With(s.ctx, func(*fakeConn) error { panic("oops") })
	})
	s.Assert().Equal(1, p.Stats().Idle)
}

func (s *PoolTestSuite) TestNeverExceedsSize() {
	const size = 2
	p := s.newPool(size, time.Second)
	defer func() { _ = p.Close() }()

	var inUse, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.With(s.ctx, func(*fakeConn) error {
				n := inUse.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inUse.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	s.Assert().LessOrEqual(peak.Load(), int32(size))
	s.Assert().Len(s.opened, size)
	s.Assert().Equal(size, p.Stats().Idle)
}

func (s *PoolTestSuite) TestCloseClosesConnectionsAndRejectsAcquire() {
	p := s.newPool(2, time.Second)

	conn, err := p.Acquire(s.ctx)
	s.Require().NoError(err)

	s.Require().NoError(p.Close())
	s.Require().NoError(p.Close())
	for _, c := range s.opened {
		s.Assert().True(c.closed.Load())
	}

	p.Release(conn)
	_, err = p.Acquire(s.ctx)
	s.Assert().True(errors.IsUnavailable(err))
}
