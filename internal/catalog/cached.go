package catalog

import (
	"context"
	"errors"
	"log"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CachedRepository layers a ProductCache over the durable repository.
// Cache failures degrade to the database and are only logged; the cache is
// never allowed to fail a stock read.
type CachedRepository struct {
	repo  Catalog
	cache ProductCache
	sfg   singleflight.Group // prevents cache stampede per product id
}

func NewCachedRepository(repo Catalog, cache ProductCache) *CachedRepository {
	return &CachedRepository{
		repo:  repo,
		cache: cache,
	}
}

func (c *CachedRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	// Singleflight collapses concurrent misses for the same product into
	// one database read.
	v, err, _ := c.sfg.Do(id, func() (interface{}, error) {
		product, err := c.cache.Get(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cache get error: %v", err)
		}

		product, errGet := c.repo.GetProduct(ctx, id)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := c.cache.Set(context.Background(), product); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return product, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Product), nil
}

// GetProducts resolves each id through the cache, preserving the
// repository contract: missing ids are skipped, storage failures abort.
func (c *CachedRepository) GetProducts(ctx context.Context, ids []string) ([]*domain.Product, error) {
	products := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		product, err := c.GetProduct(ctx, id)
		if errors.Is(err, ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

// DecrementStock writes through to the durable store and invalidates the
// cached row so the next read sees the new count.
func (c *CachedRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	if err := c.repo.DecrementStock(ctx, id, quantity); err != nil {
		return err
	}

	if err := c.cache.Delete(ctx, id); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
	return nil
}
