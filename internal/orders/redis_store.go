package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

// The immutable part of an order is one JSON value; status, supplier ID and
// update time live in their own hashes so they can change atomically
// without rewriting the snapshot.
const (
	ordersKey        = "storefront:orders"
	orderStatusKey   = "storefront:order_status"
	orderSupplierKey = "storefront:order_supplier"
	orderUpdatedKey  = "storefront:order_updated"
)

var compareAndSetStatusScript = redis.NewScript(`
	if redis.call('HGET', KEYS[1], ARGV[1]) ~= ARGV[2] then
		return 0
	end
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
	redis.call('HSET', KEYS[2], ARGV[1], ARGV[4])
	return 1
`)

var setIfExistsScript = redis.NewScript(`
	if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
		return 0
	end
	redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
	redis.call('HSET', KEYS[3], ARGV[1], ARGV[3])
	return 1
`)

type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *RedisStore) Insert(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, ordersKey, order.ID, data)
	pipe.HSet(ctx, orderStatusKey, order.ID, string(order.Status))
	pipe.HSet(ctx, orderUpdatedKey, order.ID, order.UpdatedAt.Format(time.RFC3339Nano))
	if order.SupplierOrderID != "" {
		pipe.HSet(ctx, orderSupplierKey, order.ID, order.SupplierOrderID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	orders, err := s.ListByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func (s *RedisStore) List(ctx context.Context) ([]domain.Order, error) {
	ids, err := s.rdb.HKeys(ctx, ordersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.ListByIDs(ctx, ids)
}

func (s *RedisStore) ListByIDs(ctx context.Context, ids []string) ([]domain.Order, error) {
	if len(ids) == 0 {
		return []domain.Order{}, nil
	}

	pipe := s.rdb.Pipeline()
	snapshots := pipe.HMGet(ctx, ordersKey, ids...)
	statuses := pipe.HMGet(ctx, orderStatusKey, ids...)
	suppliers := pipe.HMGet(ctx, orderSupplierKey, ids...)
	updated := pipe.HMGet(ctx, orderUpdatedKey, ids...)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	orders := []domain.Order{}
	for i, raw := range snapshots.Val() {
		data, ok := raw.(string)
		if !ok {
			continue
		}

		var o domain.Order
		if err := json.Unmarshal([]byte(data), &o); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", ids[i], err)
		}
		if status, ok := statuses.Val()[i].(string); ok {
			o.Status = domain.OrderStatus(status)
		}
		if supplier, ok := suppliers.Val()[i].(string); ok {
			o.SupplierOrderID = supplier
		}
		if ts, ok := updated.Val()[i].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				o.UpdatedAt = t
			}
		}
		orders = append(orders, o)
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	return orders, nil
}

func (s *RedisStore) CompareAndSetStatus(ctx context.Context, id string, from, next domain.OrderStatus) (bool, error) {
	n, err := compareAndSetStatusScript.Run(ctx, s.rdb,
		[]string{orderStatusKey, orderUpdatedKey},
		id, string(from), string(next), s.timestamp(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("compare and set status: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) SetStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if _, err := s.setIfExists(ctx, orderStatusKey, id, string(status)); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

func (s *RedisStore) SetSupplierOrderID(ctx context.Context, id, supplierOrderID string) (bool, error) {
	ok, err := s.setIfExists(ctx, orderSupplierKey, id, supplierOrderID)
	if err != nil {
		return false, fmt.Errorf("set supplier order id: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) setIfExists(ctx context.Context, key, id, value string) (bool, error) {
	n, err := setIfExistsScript.Run(ctx, s.rdb,
		[]string{ordersKey, key, orderUpdatedKey},
		id, value, s.timestamp(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) timestamp() string {
	return s.now().Format(time.RFC3339Nano)
}
