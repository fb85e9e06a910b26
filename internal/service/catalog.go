package service

import (
	"context"
	"fmt"

	"github.com/nileshop/backend/internal/domain"
	"github.com/nileshop/backend/internal/repository"
	"github.com/nileshop/backend/pkg/pagination"
)

// CatalogService exposes the read-only storefront view of products.
type CatalogService struct {
	products repository.ProductRepository
}

// NewCatalogService creates the catalog service.
func NewCatalogService(products repository.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

// GetProduct resolves one active product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// ListProducts returns a page of active products, newest first.
func (s *CatalogService) ListProducts(ctx context.Context, params pagination.Params) (*pagination.Result[domain.Product], error) {
	products, total, err := s.products.List(ctx, params.Offset, params.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	result := pagination.NewResult(products, total, params)
	return &result, nil
}
