package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
	"github.com/joao-fontenele/dropship-storefront/internal/pricing"
)

var (
	ErrOrderNotFound            = errors.New("order not found")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrConcurrentUpdate         = errors.New("order was modified concurrently")
	ErrNotCancellable           = errors.New("order can no longer be cancelled")
	ErrCancellationWindowClosed = errors.New("cancellation window has closed")
	ErrEmptyOrder               = errors.New("order has no items")
	ErrTooManyIDs               = errors.New("too many order ids")
)

const (
	maxLookupIDs         = 100
	defaultNotifyTimeout = 3 * time.Second
)

var statusAttr = attribute.Key("status")

// Store is implemented by the Postgres repository and the Redis fallback.
// Get returns nil, nil for unknown orders.
type Store interface {
	Insert(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Order, error)
	CompareAndSetStatus(ctx context.Context, id string, from, next domain.OrderStatus) (bool, error)
	SetStatus(ctx context.Context, id string, status domain.OrderStatus) error
	SetSupplierOrderID(ctx context.Context, id, supplierOrderID string) (bool, error)
}

type SalesAdjuster interface {
	IncreaseSales(ctx context.Context, productID string, quantity int) error
	DecreaseSales(ctx context.Context, productID string, quantity int) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type LedgerOption func(*Ledger)

// WithPublishers sets where order.created and order.cancelled events go.
// Either may be nil.
func WithPublishers(created, cancelled EventPublisher) LedgerOption {
	return func(l *Ledger) {
		l.created = created
		l.cancelled = cancelled
	}
}

func WithNotifyTimeout(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.notifyTimeout = d
		}
	}
}

func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// Ledger records orders and drives their status machine. Writes go to the
// primary store first and fall back to the secondary store; sales counters
// follow every transition into and out of paid.
type Ledger struct {
	primary       Store
	fallback      Store
	sales         SalesAdjuster
	created       EventPublisher
	cancelled     EventPublisher
	notifyTimeout time.Duration
	logger        *slog.Logger
	now           func() time.Time

	fallbackWrites metric.Int64Counter
	transitions    metric.Int64Counter
}

func NewLedger(primary, fallback Store, sales SalesAdjuster, logger *slog.Logger, opts ...LedgerOption) (*Ledger, error) {
	meter := otel.Meter("orders")

	fallbackWrites, err := meter.Int64Counter("storefront.orders.fallback_writes",
		metric.WithDescription("Order writes served by the fallback store"))
	if err != nil {
		return nil, fmt.Errorf("create fallback counter: %w", err)
	}

	transitions, err := meter.Int64Counter("storefront.orders.transitions",
		metric.WithDescription("Order status changes, including creation"))
	if err != nil {
		return nil, fmt.Errorf("create transitions counter: %w", err)
	}

	l := &Ledger{
		primary:        primary,
		fallback:       fallback,
		sales:          sales,
		notifyTimeout:  defaultNotifyTimeout,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
		fallbackWrites: fallbackWrites,
		transitions:    transitions,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

type NewOrder struct {
	Items         []domain.CartItem
	Customer      domain.ShippingDetails
	PaymentMethod domain.PaymentMethod
	Pricing       pricing.Breakdown
}

// CreateOrder records a paid order and returns its ID. The order is only
// lost if both stores reject it.
func (l *Ledger) CreateOrder(ctx context.Context, in NewOrder) (string, error) {
	if len(in.Items) == 0 {
		return "", ErrEmptyOrder
	}

	now := l.now()
	order := &domain.Order{
		ID: domain.NewOrderID(),
		Items: domain.OrderSnapshot{
			Products:      append([]domain.CartItem(nil), in.Items...),
			Customer:      in.Customer,
			PaymentMethod: in.PaymentMethod,
		},
		Status:      domain.OrderStatusPaid,
		TotalPrice:  in.Pricing.Total,
		PaymentFee:  in.Pricing.PaymentFee,
		ReturnFee:   in.Pricing.ReturnFee,
		WantsReturn: in.Pricing.WantsReturn,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := l.primary.Insert(ctx, order); err != nil {
		l.logger.Warn("primary order store unavailable, saving to fallback", "error", err, "order_id", order.ID)
		l.fallbackWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "insert")))

		if localErr := l.fallback.Insert(ctx, order); localErr != nil {
			return "", fmt.Errorf("save order %s: %w", order.ID, errors.Join(err, localErr))
		}
	}

	l.adjustSales(ctx, order, l.sales.IncreaseSales)
	l.transitions.Add(ctx, 1, metric.WithAttributes(statusAttr.String(string(order.Status))))
	l.publish(ctx, l.created, order.ID, domain.NewOrderCreatedEvent(order))

	l.logger.Info("order created", "order_id", order.ID, "total", order.TotalPrice.StringFixed(2))
	return order.ID, nil
}

// UpdateStatus moves an order along the status machine. It reports whether
// this call changed the status; a request for the current status is a no-op.
// Leaving paid for cancelled returns the sold quantities to the counters,
// and only the caller whose compare-and-set wins performs that reversal.
func (l *Ledger) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (bool, error) {
	if !next.Valid() {
		return false, &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", next)}
	}

	order, source, other, err := l.locate(ctx, id)
	if err != nil {
		return false, err
	}

	from := order.Status
	if from == next {
		return false, nil
	}
	if !from.CanTransitionTo(next) {
		return false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, next)
	}

	applied, err := source.CompareAndSetStatus(ctx, id, from, next)
	if err != nil {
		return false, fmt.Errorf("update status of %s: %w", id, err)
	}
	if !applied {
		current, err := source.Get(ctx, id)
		if err == nil && current != nil && current.Status == next {
			return false, nil
		}
		return false, ErrConcurrentUpdate
	}

	if err := other.SetStatus(ctx, id, next); err != nil {
		l.logger.Warn("failed to mirror order status", "error", err, "order_id", id, "status", next)
	}

	order.Status = next
	switch {
	case from == domain.OrderStatusPaid && next == domain.OrderStatusCancelled:
		l.adjustSales(ctx, order, l.sales.DecreaseSales)
		l.publish(ctx, l.cancelled, id, domain.NewOrderCancelledEvent(order, l.now()))
	case from == domain.OrderStatusPending && next == domain.OrderStatusPaid:
		l.adjustSales(ctx, order, l.sales.IncreaseSales)
	}

	l.transitions.Add(ctx, 1, metric.WithAttributes(statusAttr.String(string(next))))
	l.logger.Info("order status updated", "order_id", id, "from", from, "to", next)
	return true, nil
}

// CancelByCustomer cancels a paid order within the customer cancellation window.
func (l *Ledger) CancelByCustomer(ctx context.Context, id string) error {
	order, _, _, err := l.locate(ctx, id)
	if err != nil {
		return err
	}

	if order.Status != domain.OrderStatusPaid {
		return ErrNotCancellable
	}
	if !order.CustomerCancellable(l.now()) {
		return ErrCancellationWindowClosed
	}

	_, err = l.UpdateStatus(ctx, id, domain.OrderStatusCancelled)
	return err
}

func (l *Ledger) UpdateSupplierOrderID(ctx context.Context, id, supplierOrderID string) error {
	supplierOrderID = strings.TrimSpace(supplierOrderID)
	if supplierOrderID == "" {
		return &domain.ValidationError{Field: "supplier_order_id", Message: "supplier order id is required"}
	}

	found, err := l.primary.SetSupplierOrderID(ctx, id, supplierOrderID)
	if err != nil {
		l.logger.Warn("primary order store unavailable for supplier id", "error", err, "order_id", id)
		l.fallbackWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "supplier")))
	}

	foundLocal, localErr := l.fallback.SetSupplierOrderID(ctx, id, supplierOrderID)
	if localErr != nil {
		if err != nil {
			return fmt.Errorf("set supplier order id of %s: %w", id, errors.Join(err, localErr))
		}
		l.logger.Warn("fallback order store unavailable for supplier id", "error", localErr, "order_id", id)
	}

	if !found && !foundLocal {
		return ErrOrderNotFound
	}

	l.logger.Info("supplier order id recorded", "order_id", id, "supplier_order_id", supplierOrderID)
	return nil
}

func (l *Ledger) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, _, _, err := l.locate(ctx, id)
	return order, err
}

// ListOrders merges both stores, newest first. A primary record wins over a
// fallback record with the same ID.
func (l *Ledger) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return l.merged(ctx, func(ctx context.Context, s Store) ([]domain.Order, error) {
		return s.List(ctx)
	})
}

// ListByIDs looks up a customer's order history by the IDs they kept.
// Repeated IDs are looked up once.
func (l *Ledger) ListByIDs(ctx context.Context, ids []string) ([]domain.Order, error) {
	seen := make(map[string]bool, len(ids))
	unique := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	ids = unique

	if len(ids) > maxLookupIDs {
		return nil, ErrTooManyIDs
	}
	if len(ids) == 0 {
		return []domain.Order{}, nil
	}

	return l.merged(ctx, func(ctx context.Context, s Store) ([]domain.Order, error) {
		return s.ListByIDs(ctx, ids)
	})
}

// CustomerEmails returns the distinct customer emails across all orders.
func (l *Ledger) CustomerEmails(ctx context.Context) ([]string, error) {
	orders, err := l.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	emails := []string{}
	for _, o := range orders {
		email := strings.ToLower(strings.TrimSpace(o.Items.Customer.Email))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
	}
	sort.Strings(emails)

	return emails, nil
}

// locate finds the order and returns the store holding it, plus the other one.
func (l *Ledger) locate(ctx context.Context, id string) (*domain.Order, Store, Store, error) {
	order, err := l.primary.Get(ctx, id)
	if err == nil && order != nil {
		return order, l.primary, l.fallback, nil
	}
	if err != nil {
		l.logger.Warn("primary order store unavailable, reading fallback", "error", err, "order_id", id)
	}

	local, localErr := l.fallback.Get(ctx, id)
	if localErr != nil {
		if err != nil {
			return nil, nil, nil, fmt.Errorf("get order %s: %w", id, errors.Join(err, localErr))
		}
		return nil, nil, nil, fmt.Errorf("get order %s: %w", id, localErr)
	}
	if local == nil {
		if err != nil {
			return nil, nil, nil, fmt.Errorf("get order %s: %w", id, err)
		}
		return nil, nil, nil, ErrOrderNotFound
	}

	return local, l.fallback, l.primary, nil
}

func (l *Ledger) merged(ctx context.Context, load func(context.Context, Store) ([]domain.Order, error)) ([]domain.Order, error) {
	var primary, fallback []domain.Order
	var primaryErr, fallbackErr error

	var g errgroup.Group
	g.Go(func() error {
		primary, primaryErr = load(ctx, l.primary)
		return nil
	})
	g.Go(func() error {
		fallback, fallbackErr = load(ctx, l.fallback)
		return nil
	})
	_ = g.Wait()

	switch {
	case primaryErr != nil && fallbackErr != nil:
		return nil, fmt.Errorf("list orders: %w", errors.Join(primaryErr, fallbackErr))
	case primaryErr != nil:
		l.logger.Warn("primary order store unavailable, listing fallback only", "error", primaryErr)
	case fallbackErr != nil:
		l.logger.Warn("fallback order store unavailable", "error", fallbackErr)
	}

	return mergeOrders(primary, fallback), nil
}

func mergeOrders(primary, fallback []domain.Order) []domain.Order {
	seen := make(map[string]bool, len(primary))
	merged := make([]domain.Order, 0, len(primary)+len(fallback))
	for _, o := range primary {
		seen[o.ID] = true
		merged = append(merged, o)
	}
	for _, o := range fallback {
		if !seen[o.ID] {
			merged = append(merged, o)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

func (l *Ledger) adjustSales(ctx context.Context, order *domain.Order, adjust func(context.Context, string, int) error) {
	for _, item := range order.Items.Products {
		if err := adjust(ctx, item.ID, item.Quantity); err != nil {
			l.logger.Error("failed to adjust sales count", "error", err,
				"order_id", order.ID, "product_id", item.ID, "quantity", item.Quantity)
		}
	}
}

// publish never fails the caller; a slow broker is cut off after notifyTimeout.
func (l *Ledger) publish(ctx context.Context, pub EventPublisher, key string, event any) {
	if pub == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.notifyTimeout)
	defer cancel()

	if err := pub.Publish(ctx, key, event); err != nil {
		l.logger.Error("failed to publish order event", "error", err, "order_id", key)
	}
}
