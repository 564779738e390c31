package contact

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

const messagesKey = "storefront:contact_messages"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, m *domain.ContactMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_messages (id, name, email, subject, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.Name, m.Email, m.Subject, m.Message, m.CreatedAt)
	return err
}

func (r *Repository) List(ctx context.Context) ([]domain.ContactMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, subject, message, created_at
		FROM contact_messages
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	messages := []domain.ContactMessage{}
	for rows.Next() {
		var m domain.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// RedisStore keeps messages newest first in a single list.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Save(ctx context.Context, m *domain.ContactMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := s.rdb.LPush(ctx, messagesKey, data).Err(); err != nil {
		return fmt.Errorf("save contact message: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]domain.ContactMessage, error) {
	raw, err := s.rdb.LRange(ctx, messagesKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}

	messages := make([]domain.ContactMessage, 0, len(raw))
	for _, data := range raw {
		var m domain.ContactMessage
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, fmt.Errorf("decode contact message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}
