package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
	"github.com/joao-fontenele/dropship-storefront/internal/pricing"
)

// Session is a checkout waiting for the customer to approve the payment.
// The cart contents are frozen when it is created.
type Session struct {
	ID          string                 `json:"id"`
	CartSession string                 `json:"cart_session"`
	Items       []domain.CartItem      `json:"items"`
	Shipping    domain.ShippingDetails `json:"shipping"`
	Pricing     pricing.Breakdown      `json:"pricing"`
	PaymentID   string                 `json:"payment_id"`
	ApprovalURL string                 `json:"approval_url"`
	CreatedAt   time.Time              `json:"created_at"`
}

func sessionKey(id string) string {
	return fmt.Sprintf("storefront:checkout:%s", id)
}

type RedisSessionStore struct {
	rdb *redis.Client
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func (s *RedisSessionStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, sessionKey(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save checkout session: %w", err)
	}
	return nil
}

// Take removes and returns the session, so only one caller can complete it.
// It returns nil, nil if the session does not exist or has expired.
func (s *RedisSessionStore) Take(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.GetDel(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take checkout session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session %s: %w", id, err)
	}
	return &sess, nil
}
