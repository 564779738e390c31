package inventory

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisSalesStoreTestSuite struct {
	suite.Suite
	mr    *miniredis.Miniredis
	store *RedisSalesStore
}

func (s *RedisSalesStoreTestSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.store = NewRedisSalesStore(redis.NewClient(&redis.Options{Addr: s.mr.Addr()}))
}

func TestRedisSalesStoreTestSuite(t *testing.T) {
	suite.Run(t, new(RedisSalesStoreTestSuite))
}

func (s *RedisSalesStoreTestSuite) TestIncrementAndGet() {
	ctx := context.Background()

	s.Require().NoError(s.store.Increment(ctx, "p1", 2))
	s.Require().NoError(s.store.Increment(ctx, "p1", 3))

	sc, err := s.store.Get(ctx, "p1")
	s.Require().NoError(err)
	s.Require().NotNil(sc)
	s.Equal(5, sc.Count)
}

func (s *RedisSalesStoreTestSuite) TestGetUnknownProduct() {
	sc, err := s.store.Get(context.Background(), "missing")
	s.NoError(err)
	s.Nil(sc)
}

func (s *RedisSalesStoreTestSuite) TestDecrementFloorsAtZero() {
	ctx := context.Background()

	s.Require().NoError(s.store.Increment(ctx, "p1", 2))
	s.Require().NoError(s.store.Decrement(ctx, "p1", 5))

	sc, err := s.store.Get(ctx, "p1")
	s.Require().NoError(err)
	s.Equal(0, sc.Count)

	s.Require().NoError(s.store.Decrement(ctx, "p2", 1))
	sc, err = s.store.Get(ctx, "p2")
	s.Require().NoError(err)
	s.Equal(0, sc.Count)
}

func (s *RedisSalesStoreTestSuite) TestTop() {
	ctx := context.Background()

	s.Require().NoError(s.store.Increment(ctx, "a", 1))
	s.Require().NoError(s.store.Increment(ctx, "b", 9))
	s.Require().NoError(s.store.Increment(ctx, "c", 4))

	top, err := s.store.Top(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("b", top[0].ProductID)
	s.Equal("c", top[1].ProductID)
}
