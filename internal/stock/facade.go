package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/domain"
	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/reservation"
)

// DefaultMaxBatch caps bulk requests at the boundary. Oversized batches
// are rejected outright, never truncated.
const DefaultMaxBatch = 50

var (
	ErrNoProducts      = errors.New("no products requested")
	ErrTooManyProducts = errors.New("too many products requested")
)

// CatalogReader is the durable-storage dependency of the facade.
type CatalogReader interface {
	GetProducts(ctx context.Context, ids []string) ([]*domain.Product, error)
}

// HoldReader exposes the live reservations the facade subtracts from
// actual stock.
type HoldReader interface {
	LiveFor(productID string) []domain.Reservation
}

// Service answers bulk effective-stock queries and validates cart lines.
// It is read-only: validation never creates reservations, so cart-page
// re-renders stay free of side effects.
type Service struct {
	catalog  CatalogReader
	holds    HoldReader
	maxBatch int
}

func NewService(catalog CatalogReader, holds HoldReader, maxBatch int) *Service {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Service{
		catalog:  catalog,
		holds:    holds,
		maxBatch: maxBatch,
	}
}

// GetEffectiveStocks returns the stock view for each requested product
// that exists, in input order. Unknown ids are absent from the result.
func (s *Service) GetEffectiveStocks(ctx context.Context, productIDs []string) ([]domain.StockLevel, error) {
	if len(productIDs) == 0 {
		return nil, ErrNoProducts
	}
	if len(productIDs) > s.maxBatch {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyProducts, len(productIDs), s.maxBatch)
	}

	products, err := s.catalog.GetProducts(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := time.Now()
	levels := make([]domain.StockLevel, 0, len(products))
	for _, id := range productIDs {
		p, ok := byID[id]
		if !ok {
			continue
		}
		effective := reservation.EffectiveStock(p.CountInStock, s.holds.LiveFor(p.ID), now)
		levels = append(levels, domain.StockLevel{
			ProductID:      p.ID,
			Name:           p.Name,
			ActualStock:    p.CountInStock,
			EffectiveStock: effective,
			InStock:        effective > 0,
		})
	}

	return levels, nil
}

// ValidateCartLines answers "would this cart be valid right now". Every
// line gets an individual verdict; a failing line never fails the batch.
func (s *Service) ValidateCartLines(ctx context.Context, lines []domain.CartLine) (valid []string, invalid []domain.InvalidLine, err error) {
	if len(lines) == 0 {
		return nil, nil, nil
	}
	if len(lines) > s.maxBatch {
		return nil, nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyProducts, len(lines), s.maxBatch)
	}

	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := time.Now()
	for _, line := range lines {
		p, ok := byID[line.ProductID]
		switch {
		case !ok:
			invalid = append(invalid, domain.InvalidLine{
				ProductID: line.ProductID,
				Name:      line.Name,
				Reason:    domain.ReasonNotFound,
			})
		case !p.IsPublished:
			invalid = append(invalid, domain.InvalidLine{
				ProductID: line.ProductID,
				Name:      line.Name,
				Reason:    domain.ReasonNotPublished,
			})
		case line.Quantity > reservation.EffectiveStock(p.CountInStock, s.holds.LiveFor(p.ID), now):
			invalid = append(invalid, domain.InvalidLine{
				ProductID: line.ProductID,
				Name:      line.Name,
				Reason:    domain.ReasonInsufficientStock,
			})
		default:
			valid = append(valid, line.ProductID)
		}
	}

	return valid, invalid, nil
}
