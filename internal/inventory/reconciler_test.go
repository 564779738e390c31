package inventory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

var errUnavailable = errors.New("connection refused")

type memorySalesStore struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newMemorySalesStore() *memorySalesStore {
	return &memorySalesStore{counts: map[string]int{}}
}

func (m *memorySalesStore) Increment(_ context.Context, id string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.counts[id] += qty
	return nil
}

func (m *memorySalesStore) Decrement(_ context.Context, id string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.counts[id] = max(m.counts[id]-qty, 0)
	return nil
}

func (m *memorySalesStore) Get(_ context.Context, id string) (*domain.SalesCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	n, ok := m.counts[id]
	if !ok {
		return nil, nil
	}
	return &domain.SalesCount{ProductID: id, Count: n}, nil
}

func (m *memorySalesStore) Top(_ context.Context, _ int) ([]domain.SalesCount, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.SalesCount
	for id, n := range m.counts {
		out = append(out, domain.SalesCount{ProductID: id, Count: n})
	}
	return out, nil
}

func newTestReconciler(t *testing.T, primary, fallback SalesStore) *Reconciler {
	t.Helper()
	r, err := NewReconciler(primary, fallback, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return r
}

func TestReconciler_IncreaseSales(t *testing.T) {
	t.Run("writes primary", func(t *testing.T) {
		primary, fallback := newMemorySalesStore(), newMemorySalesStore()
		r := newTestReconciler(t, primary, fallback)

		require.NoError(t, r.IncreaseSales(context.Background(), "p1", 2))

		assert.Equal(t, 2, primary.counts["p1"])
		assert.Empty(t, fallback.counts)
	})

	t.Run("falls back when primary fails", func(t *testing.T) {
		primary, fallback := newMemorySalesStore(), newMemorySalesStore()
		primary.err = errUnavailable
		r := newTestReconciler(t, primary, fallback)

		require.NoError(t, r.IncreaseSales(context.Background(), "p1", 2))

		assert.Equal(t, 2, fallback.counts["p1"])
	})

	t.Run("returns error when both stores fail", func(t *testing.T) {
		primary, fallback := newMemorySalesStore(), newMemorySalesStore()
		primary.err = errUnavailable
		fallback.err = errors.New("redis down")
		r := newTestReconciler(t, primary, fallback)

		err := r.IncreaseSales(context.Background(), "p1", 2)
		assert.ErrorIs(t, err, errUnavailable)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		r := newTestReconciler(t, newMemorySalesStore(), newMemorySalesStore())
		var verr *domain.ValidationError
		assert.ErrorAs(t, r.IncreaseSales(context.Background(), "p1", 0), &verr)
	})
}

func TestReconciler_ConcurrentIncrements(t *testing.T) {
	primary := newMemorySalesStore()
	r := newTestReconciler(t, primary, newMemorySalesStore())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.IncreaseSales(context.Background(), "p1", 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, primary.counts["p1"])
}

func TestReconciler_DecreaseSales(t *testing.T) {
	primary := newMemorySalesStore()
	primary.counts["p1"] = 3
	r := newTestReconciler(t, primary, newMemorySalesStore())

	require.NoError(t, r.DecreaseSales(context.Background(), "p1", 5))
	assert.Equal(t, 0, primary.counts["p1"])
}

func TestReconciler_GetSales(t *testing.T) {
	primary, fallback := newMemorySalesStore(), newMemorySalesStore()
	fallback.counts["local-only"] = 4
	r := newTestReconciler(t, primary, fallback)

	sc, err := r.GetSales(context.Background(), "local-only")
	require.NoError(t, err)
	require.NotNil(t, sc)
	assert.Equal(t, 4, sc.Count)

	sc, err = r.GetSales(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, sc)
}
