package service

import (
	"context"
	"errors"
	"fmt"

	"cart-service/internal/models"
	"cart-service/internal/redisclient"
	"cart-service/internal/util"

	"go.uber.org/zap"
)

// ProductRepository is the durable product store
type ProductRepository interface {
	UpsertProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
}

// ProductCache is an optional read-through cache in front of the repository
type ProductCache interface {
	CacheProduct(ctx context.Context, p *models.Product) error
	GetCachedProduct(ctx context.Context, id string) (*models.Product, error)
}

// CatalogService is the local product store used by reconciliation and
// the HTTP API. Writes go to the repository first, then refresh the cache.
type CatalogService struct {
	repo   ProductRepository
	cache  ProductCache
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(repo ProductRepository, cache ProductCache) *CatalogService {
	return &CatalogService{
		repo:   repo,
		cache:  cache,
		logger: util.Named("catalog"),
	}
}

// UpsertProduct stores p keyed by its id, replacing every field
func (s *CatalogService) UpsertProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		return errors.New("product id is required")
	}

	if err := s.repo.UpsertProduct(ctx, p); err != nil {
		return fmt.Errorf("failed to store product: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.CacheProduct(ctx, p); err != nil {
			s.logger.Warn("Failed to cache product",
				zap.String("product_id", p.ID),
				zap.Error(err))
		}
	}

	return nil
}

// GetProduct retrieves a product, preferring the cache
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if s.cache != nil {
		p, err := s.cache.GetCachedProduct(ctx, id)
		switch {
		case err == nil:
			util.ProductCacheLookups.WithLabelValues("hit").Inc()
			return p, nil
		case errors.Is(err, redisclient.ErrCacheMiss):
			util.ProductCacheLookups.WithLabelValues("miss").Inc()
		default:
			util.ProductCacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn("Product cache lookup failed, falling back to DB",
				zap.String("product_id", id),
				zap.Error(err))
		}
	}

	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheProduct(ctx, p); err != nil {
			s.logger.Warn("Failed to cache product", zap.String("product_id", id), zap.Error(err))
		}
	}
	return p, nil
}

// ListProducts retrieves every product from the repository
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetProducts(ctx)
}
