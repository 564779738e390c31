package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

// SalesStore is implemented by both the Postgres repository and the Redis
// fallback. Increment and Decrement must be atomic in storage.
type SalesStore interface {
	Increment(ctx context.Context, productID string, quantity int) error
	Decrement(ctx context.Context, productID string, quantity int) error
	Get(ctx context.Context, productID string) (*domain.SalesCount, error)
	Top(ctx context.Context, limit int) ([]domain.SalesCount, error)
}

// Reconciler adjusts product sales counters, writing to the primary store and
// falling back to the secondary one when the primary fails.
type Reconciler struct {
	primary   SalesStore
	fallback  SalesStore
	logger    *slog.Logger
	fallbacks metric.Int64Counter
}

func NewReconciler(primary, fallback SalesStore, logger *slog.Logger) (*Reconciler, error) {
	fallbacks, err := otel.Meter("inventory").Int64Counter("storefront.sales.fallback_writes",
		metric.WithDescription("Sales counter writes served by the fallback store"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fallback counter: %w", err)
	}

	return &Reconciler{
		primary:   primary,
		fallback:  fallback,
		logger:    logger,
		fallbacks: fallbacks,
	}, nil
}

func (r *Reconciler) IncreaseSales(ctx context.Context, productID string, quantity int) error {
	return r.apply(ctx, "increase", productID, quantity, SalesStore.Increment)
}

func (r *Reconciler) DecreaseSales(ctx context.Context, productID string, quantity int) error {
	return r.apply(ctx, "decrease", productID, quantity, SalesStore.Decrement)
}

func (r *Reconciler) apply(ctx context.Context, op, productID string, quantity int, write func(SalesStore, context.Context, string, int) error) error {
	if quantity <= 0 {
		return &domain.ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}

	primaryErr := write(r.primary, ctx, productID, quantity)
	if primaryErr == nil {
		return nil
	}

	r.logger.Warn("primary sales store failed, using fallback",
		"error", primaryErr, "op", op, "product_id", productID, "quantity", quantity)
	r.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))

	if err := write(r.fallback, ctx, productID, quantity); err != nil {
		return fmt.Errorf("%s sales for %s: %w", op, productID, errors.Join(primaryErr, err))
	}

	return nil
}

// GetSales prefers the primary counter and falls back when the primary
// store errors or does not know the product.
func (r *Reconciler) GetSales(ctx context.Context, productID string) (*domain.SalesCount, error) {
	sc, err := r.primary.Get(ctx, productID)
	if err == nil && sc != nil {
		return sc, nil
	}
	if err != nil {
		r.logger.Warn("primary sales store failed, reading fallback", "error", err, "product_id", productID)
	}

	return r.fallback.Get(ctx, productID)
}

func (r *Reconciler) BestSellers(ctx context.Context, limit int) ([]domain.SalesCount, error) {
	counts, err := r.primary.Top(ctx, limit)
	if err == nil {
		return counts, nil
	}

	r.logger.Warn("primary sales store failed, reading fallback", "error", err)
	return r.fallback.Top(ctx, limit)
}
