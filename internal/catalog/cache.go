package catalog

import (
	"context"
	"errors"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/domain"
)

// ProductCache is a read-through cache of catalog rows.
type ProductCache interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
}

var ErrCacheMiss = errors.New("cache miss")
