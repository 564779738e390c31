package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

const salesCountKey = "storefront:sales_count"

// Floors at zero so a reversal can never drive a counter negative.
var decrementScript = redis.NewScript(`
	local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or "0")
	local next = current - tonumber(ARGV[2])
	if next < 0 then
		next = 0
	end
	redis.call('HSET', KEYS[1], ARGV[1], next)
	return next
`)

// RedisSalesStore is the fallback counter store used when Postgres is
// unreachable.
type RedisSalesStore struct {
	rdb *redis.Client
}

func NewRedisSalesStore(rdb *redis.Client) *RedisSalesStore {
	return &RedisSalesStore{rdb: rdb}
}

func (s *RedisSalesStore) Increment(ctx context.Context, productID string, quantity int) error {
	if err := s.rdb.HIncrBy(ctx, salesCountKey, productID, int64(quantity)).Err(); err != nil {
		return fmt.Errorf("increment sales count: %w", err)
	}
	return nil
}

func (s *RedisSalesStore) Decrement(ctx context.Context, productID string, quantity int) error {
	if err := decrementScript.Run(ctx, s.rdb, []string{salesCountKey}, productID, quantity).Err(); err != nil {
		return fmt.Errorf("decrement sales count: %w", err)
	}
	return nil
}

func (s *RedisSalesStore) Get(ctx context.Context, productID string) (*domain.SalesCount, error) {
	count, err := s.rdb.HGet(ctx, salesCountKey, productID).Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sales count: %w", err)
	}

	return &domain.SalesCount{ProductID: productID, Count: count}, nil
}

func (s *RedisSalesStore) Top(ctx context.Context, limit int) ([]domain.SalesCount, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	counts := make([]domain.SalesCount, 0, len(all))
	for id, count := range all {
		counts = append(counts, domain.SalesCount{ProductID: id, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].ProductID < counts[j].ProductID
	})

	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

// All returns every counter in the fallback store keyed by product ID.
func (s *RedisSalesStore) All(ctx context.Context) (map[string]int, error) {
	raw, err := s.rdb.HGetAll(ctx, salesCountKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list sales counts: %w", err)
	}

	counts := make(map[string]int, len(raw))
	for id, value := range raw {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid sales count for product %s: %w", id, err)
		}
		counts[id] = n
	}
	return counts, nil
}
