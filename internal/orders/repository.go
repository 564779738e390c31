package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, items, status, total_price, shipping_cost, payment_fee, return_fee, wants_return, supplier_order_id, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var (
		o        domain.Order
		items    []byte
		supplier sql.NullString
	)

	err := row.Scan(&o.ID, &items, &o.Status, &o.TotalPrice, &o.ShippingCost, &o.PaymentFee,
		&o.ReturnFee, &o.WantsReturn, &supplier, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	o.SupplierOrderID = supplier.String

	return &o, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (id, items, customer_email, status, total_price, shipping_cost, payment_fee, return_fee, wants_return, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, order.ID, items, order.Items.Customer.Email, order.Status, order.TotalPrice, order.ShippingCost,
		order.PaymentFee, order.ReturnFee, order.WantsReturn, order.CreatedAt, order.UpdatedAt)
	return err
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC
	`)
}

func (r *OrderRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Order, error) {
	if len(ids) == 0 {
		return []domain.Order{}, nil
	}

	return r.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = ANY($1)
		ORDER BY created_at DESC
	`, pq.Array(ids))
}

// CompareAndSetStatus moves the order to next only if it is still in from.
func (r *OrderRepository) CompareAndSetStatus(ctx context.Context, id string, from, next domain.OrderStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, next)
	if err != nil {
		return false, err
	}

	return affected(result)
}

func (r *OrderRepository) SetStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, status)
	return err
}

func (r *OrderRepository) SetSupplierOrderID(ctx context.Context, id, supplierOrderID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET supplier_order_id = $2, updated_at = NOW()
		WHERE id = $1
	`, id, supplierOrderID)
	if err != nil {
		return false, err
	}

	return affected(result)
}

func (r *OrderRepository) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func affected(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}
