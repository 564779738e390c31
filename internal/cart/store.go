// Package cart keeps shopping carts in Redis, keyed by an opaque session ID
// the client holds on to.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

// Carts left alone this long are dropped.
const idleTTL = 30 * 24 * time.Hour

var ErrItemNotInCart = errors.New("item not in cart")

var adjustScript = redis.NewScript(`
	local current = redis.call('HGET', KEYS[1], ARGV[1])
	if not current then
		return -1
	end
	local quantity = tonumber(current) + tonumber(ARGV[2])
	if quantity < 1 then
		quantity = 1
	end
	redis.call('HSET', KEYS[1], ARGV[1], quantity)
	return quantity
`)

func itemsKey(session string) string {
	return fmt.Sprintf("storefront:cart:%s:items", session)
}

func productsKey(session string) string {
	return fmt.Sprintf("storefront:cart:%s:products", session)
}

// Store holds quantities in one hash and the product as it looked when it
// was added in another, so a cart keeps the price the customer saw.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Add puts quantity units of product into the cart, on top of any already there.
func (s *Store) Add(ctx context.Context, session string, product domain.Product, quantity int) error {
	product.Reviews = nil
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, itemsKey(session), product.ID, int64(quantity))
	pipe.HSet(ctx, productsKey(session), product.ID, data)
	pipe.Expire(ctx, itemsKey(session), idleTTL)
	pipe.Expire(ctx, productsKey(session), idleTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	return nil
}

// Adjust changes the quantity of an item by delta without letting it drop
// below one, and returns the new quantity.
func (s *Store) Adjust(ctx context.Context, session, productID string, delta int) (int, error) {
	n, err := adjustScript.Run(ctx, s.rdb, []string{itemsKey(session)}, productID, delta).Int()
	if err != nil {
		return 0, fmt.Errorf("adjust cart item: %w", err)
	}
	if n < 0 {
		return 0, ErrItemNotInCart
	}
	return n, nil
}

func (s *Store) Remove(ctx context.Context, session, productID string) error {
	pipe := s.rdb.TxPipeline()
	removed := pipe.HDel(ctx, itemsKey(session), productID)
	pipe.HDel(ctx, productsKey(session), productID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if removed.Val() == 0 {
		return ErrItemNotInCart
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, session string) error {
	if err := s.rdb.Del(ctx, itemsKey(session), productsKey(session)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Items returns the cart contents ordered by product name.
func (s *Store) Items(ctx context.Context, session string) ([]domain.CartItem, error) {
	pipe := s.rdb.Pipeline()
	quantities := pipe.HGetAll(ctx, itemsKey(session))
	products := pipe.HGetAll(ctx, productsKey(session))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	items := []domain.CartItem{}
	for id, raw := range quantities.Val() {
		data, ok := products.Val()[id]
		if !ok {
			continue
		}

		var item domain.CartItem
		err := json.Unmarshal([]byte(data), &item.Product)
		if err != nil {
			return nil, fmt.Errorf("decode cart product %s: %w", id, err)
		}
		if item.Quantity, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("decode cart quantity %s: %w", id, err)
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].ID < items[j].ID
	})

	return items, nil
}
