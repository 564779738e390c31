package orders

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

type RedisStoreTestSuite struct {
	suite.Suite
	mr    *miniredis.Miniredis
	store *RedisStore
}

func (s *RedisStoreTestSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.store = NewRedisStore(redis.NewClient(&redis.Options{Addr: s.mr.Addr()}))
}

func TestRedisStoreTestSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreTestSuite))
}

func (s *RedisStoreTestSuite) insert(id string, status domain.OrderStatus, created time.Time) {
	s.Require().NoError(s.store.Insert(context.Background(), &domain.Order{
		ID:         id,
		Status:     status,
		TotalPrice: decimal.RequireFromString("40.78"),
		CreatedAt:  created,
		UpdatedAt:  created,
	}))
}

func (s *RedisStoreTestSuite) TestInsertAndGet() {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.insert("ORDER-1", domain.OrderStatusPaid, created)

	order, err := s.store.Get(context.Background(), "ORDER-1")
	s.Require().NoError(err)
	s.Require().NotNil(order)
	s.Equal(domain.OrderStatusPaid, order.Status)
	s.True(order.TotalPrice.Equal(decimal.RequireFromString("40.78")))
	s.True(order.CreatedAt.Equal(created))
}

func (s *RedisStoreTestSuite) TestGetUnknownOrder() {
	order, err := s.store.Get(context.Background(), "missing")
	s.NoError(err)
	s.Nil(order)
}

func (s *RedisStoreTestSuite) TestListNewestFirst() {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.insert("old", domain.OrderStatusPaid, base)
	s.insert("new", domain.OrderStatusPaid, base.Add(time.Hour))

	orders, err := s.store.List(context.Background())
	s.Require().NoError(err)
	s.Require().Len(orders, 2)
	s.Equal("new", orders[0].ID)
	s.Equal("old", orders[1].ID)
}

func (s *RedisStoreTestSuite) TestCompareAndSetStatus() {
	ctx := context.Background()
	s.insert("ORDER-1", domain.OrderStatusPaid, time.Now())

	ok, err := s.store.CompareAndSetStatus(ctx, "ORDER-1", domain.OrderStatusPaid, domain.OrderStatusCancelled)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.CompareAndSetStatus(ctx, "ORDER-1", domain.OrderStatusPaid, domain.OrderStatusCancelled)
	s.Require().NoError(err)
	s.False(ok)

	order, err := s.store.Get(ctx, "ORDER-1")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCancelled, order.Status)
}

func (s *RedisStoreTestSuite) TestSetSupplierOrderID() {
	ctx := context.Background()
	s.insert("ORDER-1", domain.OrderStatusPaid, time.Now())

	ok, err := s.store.SetSupplierOrderID(ctx, "ORDER-1", "AE-1")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.SetSupplierOrderID(ctx, "missing", "AE-2")
	s.Require().NoError(err)
	s.False(ok)
	s.Equal("", s.mr.HGet(orderSupplierKey, "missing"))

	order, err := s.store.Get(ctx, "ORDER-1")
	s.Require().NoError(err)
	s.Equal("AE-1", order.SupplierOrderID)
}

func (s *RedisStoreTestSuite) TestSetStatusIgnoresUnknownOrder() {
	s.Require().NoError(s.store.SetStatus(context.Background(), "missing", domain.OrderStatusShipped))
	s.Equal("", s.mr.HGet(orderStatusKey, "missing"))
}
