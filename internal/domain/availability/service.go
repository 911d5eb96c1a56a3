// Package availability answers cross-location stock questions for a product.
package availability

import (
	"context"
	"strings"

	"stockledger/internal/core/apperror"
)

// Totals aggregates every item row of a product. It is computed on demand.
type Totals struct {
	ProductID      string `db:"product_id" json:"productId"`
	TotalQuantity  int64  `db:"total_quantity" json:"totalQuantity"`
	TotalReserved  int64  `db:"total_reserved" json:"totalReserved"`
	TotalAvailable int64  `db:"total_available" json:"totalAvailable"`
	ItemCount      int    `db:"item_count" json:"itemCount"`
}

// Check is the answer to "are n units of the product available anywhere".
type Check struct {
	ProductID string `json:"productId"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
	OK        bool   `json:"isAvailable"`
}

// Repository sums item rows. A product with no rows yields zero totals.
type Repository interface {
	TotalsForProduct(ctx context.Context, productID string) (Totals, error)
}

// Service provides the availability aggregator.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TotalsForProduct sums quantities across all locations stocking productID.
func (s *Service) TotalsForProduct(ctx context.Context, productID string) (Totals, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Totals{}, apperror.NewValidation("productId is required").WithDetail("field", "productId")
	}
	t, err := s.repo.TotalsForProduct(ctx, productID)
	if err != nil {
		return Totals{}, err
	}
	t.ProductID = productID
	return t, nil
}

// IsAvailable reports whether at least quantity units are available in total.
func (s *Service) IsAvailable(ctx context.Context, productID string, quantity int64) (Check, error) {
	if quantity <= 0 {
		return Check{}, apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}
	t, err := s.TotalsForProduct(ctx, productID)
	if err != nil {
		return Check{}, err
	}
	return Check{
		ProductID: t.ProductID,
		Requested: quantity,
		Available: t.TotalAvailable,
		OK:        t.TotalAvailable >= quantity,
	}, nil
}
