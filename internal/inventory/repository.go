package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// SalesRepository keeps sales counters on the products table. Every change
// is a single UPDATE so concurrent orders never lose increments.
type SalesRepository struct {
	db *sql.DB
}

func NewSalesRepository(db *sql.DB) *SalesRepository {
	return &SalesRepository{db: db}
}

func (r *SalesRepository) Increment(ctx context.Context, productID string, quantity int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET sales_count = sales_count + $2
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return err
	}

	return expectRow(result)
}

func (r *SalesRepository) Decrement(ctx context.Context, productID string, quantity int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET sales_count = GREATEST(sales_count - $2, 0)
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return err
	}

	return expectRow(result)
}

func (r *SalesRepository) Get(ctx context.Context, productID string) (*domain.SalesCount, error) {
	sc := &domain.SalesCount{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, sales_count
		FROM products
		WHERE id = $1
	`, productID).Scan(&sc.ProductID, &sc.Count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return sc, nil
}

func (r *SalesRepository) Top(ctx context.Context, limit int) ([]domain.SalesCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sales_count
		FROM products
		ORDER BY sales_count DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var counts []domain.SalesCount
	for rows.Next() {
		var sc domain.SalesCount
		if err := rows.Scan(&sc.ProductID, &sc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func expectRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}
