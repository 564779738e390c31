package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

const uniqueViolation = "23505"

type StaffRepository struct {
	db *sql.DB
}

func NewStaffRepository(db *sql.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// FindByLogin matches login against email first, then username.
func (r *StaffRepository) FindByLogin(ctx context.Context, login string) (*domain.StaffAccount, error) {
	var a domain.StaffAccount
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, created_at
		FROM staff_accounts
		WHERE email = $1 OR username = $1
		ORDER BY (email = $1) DESC
		LIMIT 1
	`, login).Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &a, nil
}

func (r *StaffRepository) Create(ctx context.Context, a *domain.StaffAccount) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO staff_accounts (id, email, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.Email, a.Username, a.PasswordHash, a.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrStaffExists
	}
	return err
}
