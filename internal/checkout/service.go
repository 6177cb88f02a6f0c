package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/domain"
	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/reservation"
	"github.com/google/uuid"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// StockValidator is the read-only cart validation contract of the stock
// facade.
type StockValidator interface {
	ValidateCartLines(ctx context.Context, lines []domain.CartLine) (valid []string, invalid []domain.InvalidLine, err error)
}

// Catalog is the durable-storage contract checkout depends on: actual
// stock reads at admission and the conditional decrement at completion.
type Catalog interface {
	GetProducts(ctx context.Context, ids []string) ([]*domain.Product, error)
	DecrementStock(ctx context.Context, id string, quantity int) error
}

// DeclinedLine reports the line that stopped a checkout and how many
// units were still available at that moment.
type DeclinedLine struct {
	ProductID string
	Available int
}

// Result is the outcome of a checkout initiation or revisit.
type Result struct {
	CheckoutID   string
	Reserved     bool
	ExpiresAt    time.Time
	InvalidLines []domain.InvalidLine
	Declined     *DeclinedLine
}

// Service drives the reservation side of the checkout flow. Reservation
// creation happens here, at checkout initiation, and nowhere else; cart
// validation stays side-effect free.
type Service struct {
	stocks  StockValidator
	catalog Catalog
	holds   *reservation.Manager
}

func NewService(stocks StockValidator, catalog Catalog, holds *reservation.Manager) *Service {
	return &Service{
		stocks:  stocks,
		catalog: catalog,
		holds:   holds,
	}
}

// InitiateCheckout validates the cart and places one hold per line, all
// under the checkout id. Any line failing admission rolls back the holds
// already placed for this checkout, so a checkout reserves everything or
// nothing.
func (s *Service) InitiateCheckout(ctx context.Context, checkoutID string, lines []domain.CartLine) (*Result, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if checkoutID == "" {
		checkoutID = uuid.New().String()
	}

	_, invalid, err := s.stocks.ValidateCartLines(ctx, lines)
	if err != nil {
		return nil, fmt.Errorf("cart validation failed: %w", err)
	}
	if len(invalid) > 0 {
		return &Result{CheckoutID: checkoutID, InvalidLines: invalid}, nil
	}

	lines = mergeLines(lines)
	byID, err := s.loadProducts(ctx, lines)
	if err != nil {
		return nil, err
	}

	for i, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			s.releaseLines(checkoutID, lines[:i])
			return &Result{
				CheckoutID: checkoutID,
				Declined:   &DeclinedLine{ProductID: line.ProductID},
			}, nil
		}

		decision, err := s.holds.TryReserve(line.ProductID, checkoutID, line.Quantity, p.CountInStock)
		if err != nil {
			s.releaseLines(checkoutID, lines[:i])
			return nil, fmt.Errorf("reserve %s failed: %w", line.ProductID, err)
		}
		if !decision.Granted {
			s.releaseLines(checkoutID, lines[:i])
			return &Result{
				CheckoutID: checkoutID,
				Declined:   &DeclinedLine{ProductID: line.ProductID, Available: decision.Available},
			}, nil
		}
	}

	return &Result{
		CheckoutID: checkoutID,
		Reserved:   true,
		ExpiresAt:  time.Now().Add(s.holds.TTL()),
	}, nil
}

// RevisitCheckout slides the expiry of the checkout's holds on repeated
// validation of the same cart. A hold that lapsed in the meantime is
// re-admitted as if new; lines that can no longer be admitted are
// reported declined without touching the others.
func (s *Service) RevisitCheckout(ctx context.Context, checkoutID string, lines []domain.CartLine) (*Result, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	lines = mergeLines(lines)
	byID, err := s.loadProducts(ctx, lines)
	if err != nil {
		return nil, err
	}

	result := &Result{
		CheckoutID: checkoutID,
		Reserved:   true,
		ExpiresAt:  time.Now().Add(s.holds.TTL()),
	}
	for _, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			result.Reserved = false
			result.Declined = &DeclinedLine{ProductID: line.ProductID}
			continue
		}

		decision, err := s.holds.RenewOrReserve(line.ProductID, checkoutID, line.Quantity, p.CountInStock)
		if err != nil {
			return nil, fmt.Errorf("renew %s failed: %w", line.ProductID, err)
		}
		if !decision.Granted {
			result.Reserved = false
			result.Declined = &DeclinedLine{ProductID: line.ProductID, Available: decision.Available}
		}
	}

	return result, nil
}

// ReleaseLine drops the hold for one cart line, as on cart-line removal.
func (s *Service) ReleaseLine(productID, checkoutID string) {
	s.holds.Release(productID, checkoutID)
}

// ReleaseCheckout drops every hold the checkout placed.
func (s *Service) ReleaseCheckout(checkoutID string, lines []domain.CartLine) {
	s.releaseLines(checkoutID, lines)
}

// CompleteLine is the order-completion path for one line: the durable
// stock is decremented conditionally, then the hold is released. The hold
// is released even when the decrement reports insufficient stock, because
// the checkout is over either way; the error surfaces so the caller can
// flag the oversold order.
func (s *Service) CompleteLine(ctx context.Context, checkoutID, productID string, quantity int) error {
	err := s.catalog.DecrementStock(ctx, productID, quantity)
	s.holds.Release(productID, checkoutID)
	if err != nil {
		return fmt.Errorf("decrement %s failed: %w", productID, err)
	}
	return nil
}

func (s *Service) loadProducts(ctx context.Context, lines []domain.CartLine) (map[string]*domain.Product, error) {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

// mergeLines folds duplicate product lines into one, summing quantities.
// A checkout holds one reservation per product, so without merging a
// second line for the same product would overwrite the first hold
// instead of adding to it.
func mergeLines(lines []domain.CartLine) []domain.CartLine {
	merged := make([]domain.CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

func (s *Service) releaseLines(checkoutID string, lines []domain.CartLine) {
	for _, line := range lines {
		s.holds.Release(line.ProductID, checkoutID)
	}
}
