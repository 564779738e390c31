package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

const productsKey = "storefront:products"

func reviewsKey(productID string) string {
	return fmt.Sprintf("storefront:reviews:%s", productID)
}

// RedisStore is the fallback catalog. Products are JSON values in one hash;
// reviews are appended to a per-product list so concurrent posts never
// overwrite each other.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) List(ctx context.Context) ([]domain.Product, error) {
	raw, err := s.rdb.HGetAll(ctx, productsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]domain.Product, 0, len(raw))
	for id, value := range raw {
		var p domain.Product
		if err := json.Unmarshal([]byte(value), &p); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", id, err)
		}
		if p.Reviews, err = s.reviews(ctx, id); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	sort.Slice(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})

	return products, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Product, error) {
	value, err := s.rdb.HGet(ctx, productsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	p := &domain.Product{}
	if err := json.Unmarshal([]byte(value), p); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	if p.Reviews, err = s.reviews(ctx, id); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *RedisStore) Save(ctx context.Context, p *domain.Product) error {
	stored := *p
	stored.Reviews = nil

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	if err := s.rdb.HSet(ctx, productsKey, p.ID, data).Err(); err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	pipe := s.rdb.TxPipeline()
	removed := pipe.HDel(ctx, productsKey, id)
	pipe.Del(ctx, reviewsKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}

	return removed.Val() > 0, nil
}

func (s *RedisStore) AddReview(ctx context.Context, rev *domain.Review) error {
	data, err := json.Marshal(rev)
	if err != nil {
		return err
	}

	if err := s.rdb.RPush(ctx, reviewsKey(rev.ProductID), data).Err(); err != nil {
		return fmt.Errorf("add review: %w", err)
	}
	return nil
}

func (s *RedisStore) reviews(ctx context.Context, productID string) ([]domain.Review, error) {
	raw, err := s.rdb.LRange(ctx, reviewsKey(productID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	var reviews []domain.Review
	for _, value := range raw {
		var rev domain.Review
		if err := json.Unmarshal([]byte(value), &rev); err != nil {
			return nil, fmt.Errorf("decode review: %w", err)
		}
		reviews = append(reviews, rev)
	}
	return reviews, nil
}
