package cart

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

type StoreTestSuite struct {
	suite.Suite
	mr    *miniredis.Miniredis
	store *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.store = NewStore(redis.NewClient(&redis.Options{Addr: s.mr.Addr()}))
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

var shirt = domain.Product{ID: "p1", Name: "Linen Shirt", Price: decimal.RequireFromString("19.99")}

func (s *StoreTestSuite) TestAddAccumulates() {
	ctx := context.Background()

	s.Require().NoError(s.store.Add(ctx, "sess", shirt, 1))
	s.Require().NoError(s.store.Add(ctx, "sess", shirt, 2))

	items, err := s.store.Items(ctx, "sess")
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(3, items[0].Quantity)
	s.True(items[0].Price.Equal(shirt.Price))
	s.True(s.mr.TTL(itemsKey("sess")) > 0)
}

func (s *StoreTestSuite) TestAdjustFloorsAtOne() {
	ctx := context.Background()
	s.Require().NoError(s.store.Add(ctx, "sess", shirt, 2))

	n, err := s.store.Adjust(ctx, "sess", "p1", 3)
	s.Require().NoError(err)
	s.Equal(5, n)

	n, err = s.store.Adjust(ctx, "sess", "p1", -10)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.Adjust(ctx, "sess", "missing", 1)
	s.ErrorIs(err, ErrItemNotInCart)
}

func (s *StoreTestSuite) TestRemoveAndClear() {
	ctx := context.Background()
	s.Require().NoError(s.store.Add(ctx, "sess", shirt, 1))
	s.Require().NoError(s.store.Add(ctx, "sess", domain.Product{ID: "p2", Name: "Apron", Price: decimal.NewFromInt(5)}, 1))

	s.Require().NoError(s.store.Remove(ctx, "sess", "p1"))
	s.ErrorIs(s.store.Remove(ctx, "sess", "p1"), ErrItemNotInCart)

	items, err := s.store.Items(ctx, "sess")
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("p2", items[0].ID)

	s.Require().NoError(s.store.Clear(ctx, "sess"))
	items, err = s.store.Items(ctx, "sess")
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *StoreTestSuite) TestSessionsAreIsolated() {
	ctx := context.Background()
	s.Require().NoError(s.store.Add(ctx, "a", shirt, 1))

	items, err := s.store.Items(ctx, "b")
	s.Require().NoError(err)
	s.Empty(items)
}
