package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/repository"
)

// CatalogService serves the product catalog.
type CatalogService struct {
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(products repository.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{products: products, logger: logger}
}

// List returns the catalog, optionally restricted to a category.
func (s *CatalogService) List(ctx context.Context, category string) ([]domain.Product, error) {
	return s.products.List(ctx, category)
}

// Get returns one product.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// SeedIfEmpty loads products into an empty catalog and reports how many
// were inserted. A catalog that already has products is left untouched.
func (s *CatalogService) SeedIfEmpty(ctx context.Context, products []domain.Product) (int, error) {
	n, err := s.products.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 || len(products) == 0 {
		return 0, nil
	}

	inserted, err := s.products.Seed(ctx, products)
	if err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}
	s.logger.InfoContext(ctx, "catalog seeded", slog.Int("products", inserted))
	return inserted, nil
}
