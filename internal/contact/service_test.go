package contact

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

type downStore struct{}

func (downStore) Save(context.Context, *domain.ContactMessage) error { return errors.New("unreachable") }
func (downStore) List(context.Context) ([]domain.ContactMessage, error) {
	return nil, errors.New("unreachable")
}

type relayFunc func(context.Context, *domain.ContactMessage) error

func (f relayFunc) RelayContactMessage(ctx context.Context, m *domain.ContactMessage) error {
	return f(ctx, m)
}

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var validInput = Input{Name: "Ana", Email: "ana@example.com", Subject: "Shipping", Message: "Where is my parcel?"}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and relays", func(t *testing.T) {
		primary := newRedisStore(t)
		var relayed *domain.ContactMessage
		svc := NewService(primary, newRedisStore(t), relayFunc(func(_ context.Context, m *domain.ContactMessage) error {
			relayed = m
			return nil
		}), discardLogger())

		receipt, err := svc.Submit(ctx, validInput)
		require.NoError(t, err)
		assert.True(t, receipt.EmailSent)
		require.NotNil(t, relayed)
		assert.Equal(t, receipt.MessageID, relayed.ID)

		stored, err := primary.List(ctx)
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})

	t.Run("falls back and reports failed relay", func(t *testing.T) {
		fallback := newRedisStore(t)
		svc := NewService(downStore{}, fallback, relayFunc(func(context.Context, *domain.ContactMessage) error {
			return errors.New("quota exceeded")
		}), discardLogger())

		receipt, err := svc.Submit(ctx, validInput)
		require.NoError(t, err)
		assert.False(t, receipt.EmailSent)

		all, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, receipt.MessageID, all[0].ID)
	})

	t.Run("both stores down", func(t *testing.T) {
		svc := NewService(downStore{}, downStore{}, nil, discardLogger())
		_, err := svc.Submit(ctx, validInput)
		assert.Error(t, err)
	})
}

func TestHandler_Submit(t *testing.T) {
	svc := NewService(newRedisStore(t), newRedisStore(t), nil, discardLogger())
	handler := NewHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	handler.HandleSubmit(rec, httptest.NewRequest(http.MethodPost, "/contact",
		strings.NewReader(`{"name":"Ana","email":"bad","subject":"Hello","message":"long enough message"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.HandleSubmit(rec, httptest.NewRequest(http.MethodPost, "/contact",
		strings.NewReader(`{"name":"Ana","email":"ana@example.com","subject":"Hello","message":"long enough message"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var receipt Receipt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&receipt))
	assert.False(t, receipt.EmailSent)

	rec = httptest.NewRecorder()
	handler.HandleList(rec, httptest.NewRequest(http.MethodGet, "/contact-messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []domain.ContactMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&messages))
	assert.Len(t, messages, 1)
}
