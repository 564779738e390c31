package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, description, image, category, price, discount, sales_count, created_at`

func scanProduct(row interface{ Scan(...any) error }, p *domain.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Category,
		&p.Price, &p.Discount, &p.SalesCount, &p.CreatedAt)
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]*domain.Product)
	var ids []string
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		byID[p.ID] = &p
		ids = append(ids, p.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	reviews, err := r.reviewsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, rev := range reviews {
		p := byID[rev.ProductID]
		p.Reviews = append(p.Reviews, rev)
	}

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, *byID[id])
	}

	return products, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}

	err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	p.Reviews, err = r.reviewsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Save inserts or updates the editable product fields. The sales counter is
// only written on insert; afterwards it belongs to inventory reconciliation.
func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, image, category, price, discount, sales_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			discount = EXCLUDED.discount
	`, p.ID, p.Name, p.Description, p.Image, p.Category, p.Price, p.Discount, p.SalesCount, p.CreatedAt)
	return err
}

func (r *ProductRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *ProductRepository) AddReview(ctx context.Context, rev *domain.Review) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (id, product_id, user_name, rating, comment, parent_id, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rev.ID, rev.ProductID, rev.UserName, rev.Rating, rev.Comment, rev.ParentID, rev.IsAdmin, rev.CreatedAt)
	return err
}

func (r *ProductRepository) reviewsFor(ctx context.Context, productIDs []string) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, user_name, rating, comment, parent_id, is_admin, created_at
		FROM reviews
		WHERE product_id = ANY($1)
		ORDER BY created_at
	`, pq.Array(productIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var reviews []domain.Review
	for rows.Next() {
		var (
			rev      domain.Review
			rating   sql.NullInt64
			parentID sql.NullString
		)
		if err := rows.Scan(&rev.ID, &rev.ProductID, &rev.UserName, &rating, &rev.Comment, &parentID, &rev.IsAdmin, &rev.CreatedAt); err != nil {
			return nil, err
		}
		if rating.Valid {
			n := int(rating.Int64)
			rev.Rating = &n
		}
		if parentID.Valid {
			rev.ParentID = &parentID.String
		}
		reviews = append(reviews, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reviews, nil
}
