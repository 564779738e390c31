package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrReviewNotFound  = errors.New("parent review not found")
	ErrNestedReply     = errors.New("replies can only answer top-level reviews")
)

type Store interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Save(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) (bool, error)
	AddReview(ctx context.Context, rev *domain.Review) error
}

// SalesCounts supplies the fallback sales counters, which are kept apart
// from the fallback product records.
type SalesCounts interface {
	All(ctx context.Context) (map[string]int, error)
}

type Service struct {
	primary  Store
	fallback Store
	counts   SalesCounts
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(primary, fallback Store, counts SalesCounts, logger *slog.Logger) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		counts:   counts,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListProducts merges both stores, preferring the primary record when a
// product exists in both.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var primary, fallback []domain.Product
	var primaryErr error

	var g errgroup.Group
	g.Go(func() error {
		primary, primaryErr = s.primary.List(ctx)
		return nil
	})
	g.Go(func() error {
		var err error
		fallback, err = s.fallback.List(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("list products: %w", errors.Join(primaryErr, err))
		}
		s.logger.Warn("fallback catalog unavailable", "error", err)
	}
	if primaryErr != nil {
		s.logger.Warn("primary catalog unavailable, serving fallback", "error", primaryErr)
	}

	seen := make(map[string]bool, len(primary))
	merged := make([]domain.Product, 0, len(primary)+len(fallback))
	for _, p := range primary {
		seen[p.ID] = true
		merged = append(merged, p)
	}

	var counts map[string]int
	if len(fallback) > 0 {
		counts = s.fallbackCounts(ctx)
	}
	for _, p := range fallback {
		if seen[p.ID] {
			continue
		}
		if n, ok := counts[p.ID]; ok {
			p.SalesCount = n
		}
		merged = append(merged, p)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	return merged, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.primary.Get(ctx, id)
	if err != nil {
		s.logger.Warn("primary catalog unavailable, reading fallback", "error", err, "product_id", id)
	}

	local, localErr := s.fallback.Get(ctx, id)
	if localErr != nil {
		if err != nil {
			return nil, fmt.Errorf("get product %s: %w", id, errors.Join(err, localErr))
		}
		s.logger.Warn("fallback catalog unavailable", "error", localErr, "product_id", id)
	}

	switch {
	case p != nil && local != nil:
		p.Reviews = mergeReviews(p.Reviews, local.Reviews)
		return p, nil
	case p != nil:
		return p, nil
	case local != nil:
		if n, ok := s.fallbackCounts(ctx)[id]; ok {
			local.SalesCount = n
		}
		return local, nil
	}

	return nil, nil
}

type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p := &domain.Product{
		ID:        domain.NewProductID(),
		CreatedAt: s.now(),
	}
	in.apply(p)

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("product created", "product_id", p.ID)
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}

	in.apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("product updated", "product_id", p.ID)
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	removed, err := s.primary.Delete(ctx, id)
	if err != nil {
		s.logger.Warn("primary catalog delete failed", "error", err, "product_id", id)
	}

	removedLocal, localErr := s.fallback.Delete(ctx, id)
	if localErr != nil {
		if err != nil {
			return fmt.Errorf("delete product %s: %w", id, errors.Join(err, localErr))
		}
		s.logger.Warn("fallback catalog delete failed", "error", localErr, "product_id", id)
	}

	if !removed && !removedLocal {
		return ErrProductNotFound
	}

	s.logger.Info("product deleted", "product_id", id)
	return nil
}

type ReviewInput struct {
	UserName string  `json:"user_name"`
	Rating   *int    `json:"rating"`
	Comment  string  `json:"comment"`
	ParentID *string `json:"parent_id"`
}

// AddReview posts a review or, with ParentID set, a reply to a top-level
// review of the same product.
func (s *Service) AddReview(ctx context.Context, productID string, in ReviewInput, isAdmin bool) (*domain.Review, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}

	rev := &domain.Review{
		ID:        domain.NewReviewID(),
		ProductID: productID,
		UserName:  strings.TrimSpace(in.UserName),
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		ParentID:  in.ParentID,
		IsAdmin:   isAdmin,
		CreatedAt: s.now(),
	}
	if rev.ParentID != nil {
		rev.Rating = nil
	}

	if err := rev.Validate(); err != nil {
		return nil, err
	}

	if rev.ParentID != nil {
		parent := findReview(p.Reviews, *rev.ParentID)
		if parent == nil {
			return nil, ErrReviewNotFound
		}
		if parent.ParentID != nil {
			return nil, ErrNestedReply
		}
	}

	if err := s.primary.AddReview(ctx, rev); err != nil {
		s.logger.Warn("primary catalog unavailable, storing review in fallback", "error", err, "product_id", productID)
		if err := s.fallback.AddReview(ctx, rev); err != nil {
			return nil, fmt.Errorf("add review: %w", err)
		}
	}

	return rev, nil
}

func (s *Service) save(ctx context.Context, p *domain.Product) error {
	err := s.primary.Save(ctx, p)
	if err == nil {
		return nil
	}

	s.logger.Warn("primary catalog unavailable, saving to fallback", "error", err, "product_id", p.ID)
	if localErr := s.fallback.Save(ctx, p); localErr != nil {
		return fmt.Errorf("save product %s: %w", p.ID, errors.Join(err, localErr))
	}
	return nil
}

func (s *Service) fallbackCounts(ctx context.Context) map[string]int {
	if s.counts == nil {
		return nil
	}
	counts, err := s.counts.All(ctx)
	if err != nil {
		s.logger.Warn("failed to read fallback sales counts", "error", err)
		return nil
	}
	return counts
}

func (in ProductInput) apply(p *domain.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Image = in.Image
	p.Category = in.Category
	p.Price = in.Price
	p.Discount = in.Discount
}

func findReview(reviews []domain.Review, id string) *domain.Review {
	for i := range reviews {
		if reviews[i].ID == id {
			return &reviews[i]
		}
	}
	return nil
}

func mergeReviews(primary, local []domain.Review) []domain.Review {
	seen := make(map[string]bool, len(primary))
	for _, r := range primary {
		seen[r.ID] = true
	}
	for _, r := range local {
		if !seen[r.ID] {
			primary = append(primary, r)
		}
	}
	sort.SliceStable(primary, func(i, j int) bool {
		return primary[i].CreatedAt.Before(primary[j].CreatedAt)
	})
	return primary
}
