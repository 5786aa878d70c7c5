package service

import (
	"context"

	"shop-service/internal/models"
	"shop-service/internal/redisclient"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// CatalogClient is the read side of the product catalog: a read-through
// Redis cache over the store. The store stays authoritative; any cache
// fault degrades to a database read and is logged, never surfaced.
type CatalogClient struct {
	store  store.Store
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogClient creates a catalog client. The cache may be nil, in
// which case every read goes to the store.
func NewCatalogClient(st store.Store, cache *redisclient.Client) *CatalogClient {
	return &CatalogClient{
		store:  st,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// GetProduct retrieves a product, preferring the cache.
func (cc *CatalogClient) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.GetProduct")
	defer span.End()

	if cc.cache != nil {
		product, err := cc.cache.GetProduct(ctx, id)
		if err != nil {
			cc.logger.Warn("Catalog cache read failed, falling back to store",
				zap.Int64("product_id", id),
				zap.Error(err))
		} else if product != nil {
			return product, nil
		}
	}

	product, err := cc.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cc.cache != nil {
		if err := cc.cache.SetProduct(ctx, product); err != nil {
			cc.logger.Warn("Catalog cache write failed",
				zap.Int64("product_id", id),
				zap.Error(err))
		}
	}

	return product, nil
}

// Invalidate drops cached products whose stock just changed. Best
// effort: failures are logged and the entries expire by TTL anyway.
func (cc *CatalogClient) Invalidate(ctx context.Context, ids []int64) {
	if cc.cache == nil || len(ids) == 0 {
		return
	}
	if err := cc.cache.InvalidateProducts(ctx, ids); err != nil {
		cc.logger.Warn("Catalog cache invalidation failed",
			zap.Int64s("product_ids", ids),
			zap.Error(err))
	}
}
