package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

const (
	staffKey          = "storefront:staff_accounts"
	staffEmailsKey    = "storefront:staff_emails"
	staffUsernamesKey = "storefront:staff_usernames"
)

var createStaffScript = redis.NewScript(`
	if redis.call('HEXISTS', KEYS[2], ARGV[2]) == 1 or redis.call('HEXISTS', KEYS[3], ARGV[3]) == 1 then
		return 0
	end
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[4])
	redis.call('HSET', KEYS[2], ARGV[2], ARGV[1])
	redis.call('HSET', KEYS[3], ARGV[3], ARGV[1])
	return 1
`)

// staffRecord is the stored form of an account; the hash never leaves the
// package through JSON responses.
type staffRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) FindByLogin(ctx context.Context, login string) (*domain.StaffAccount, error) {
	id, err := s.rdb.HGet(ctx, staffEmailsKey, login).Result()
	if errors.Is(err, redis.Nil) {
		id, err = s.rdb.HGet(ctx, staffUsernamesKey, login).Result()
	}
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find staff account: %w", err)
	}

	data, err := s.rdb.HGet(ctx, staffKey, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load staff account %s: %w", id, err)
	}

	var rec staffRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode staff account %s: %w", id, err)
	}

	return &domain.StaffAccount{
		ID:           rec.ID,
		Email:        rec.Email,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (s *RedisStore) Create(ctx context.Context, a *domain.StaffAccount) error {
	data, err := json.Marshal(staffRecord{
		ID:           a.ID,
		Email:        a.Email,
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
	})
	if err != nil {
		return err
	}

	n, err := createStaffScript.Run(ctx, s.rdb,
		[]string{staffKey, staffEmailsKey, staffUsernamesKey},
		a.ID, a.Email, a.Username, data,
	).Int()
	if err != nil {
		return fmt.Errorf("create staff account: %w", err)
	}
	if n == 0 {
		return ErrStaffExists
	}
	return nil
}
