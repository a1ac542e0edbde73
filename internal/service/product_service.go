package service

import (
	"context"

	"golang.org/x/sync/singleflight"

	"planty-of-food/internal/entity"
	"planty-of-food/internal/repository"
	"planty-of-food/internal/validation"
)

type CreateProductInput struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Type     string `json:"type" validate:"required,oneof=vegetable fruit drink other"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

type UpdateProductInput struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=255"`
	Type     *string `json:"type" validate:"omitempty,oneof=vegetable fruit drink other"`
	Quantity *int    `json:"quantity" validate:"omitempty,gte=0"`
}

type ProductService struct {
	products repository.ProductRepository
	cache    ProductCache
	group    singleflight.Group
}

// NewProductService creates a new instance of ProductService. A nil cache
// disables caching.
func NewProductService(products repository.ProductRepository, cache ProductCache) *ProductService {
	if cache == nil {
		cache = nopCache{}
	}
	return &ProductService{products: products, cache: cache}
}

func (p *ProductService) CreateProduct(ctx context.Context, input CreateProductInput) (*entity.Product, error) {
	trim(&input.Name)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	product := &entity.Product{
		Name:     input.Name,
		Type:     entity.ProductType(input.Type),
		Quantity: input.Quantity,
	}
	if err := p.products.Create(ctx, product); err != nil {
		logger.Error().Err(err).Msg("Error creating product")
		return nil, err
	}
	return product, nil
}

// GetProduct reads through the cache. Concurrent misses for the same id
// share one repository read, which is not cancelled with the first caller.
func (p *ProductService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	cached, err := p.cache.Get(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting product %s from cache", id)
	}
	if cached != nil {
		return cached, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := p.group.Do(id, func() (interface{}, error) {
		product, err := p.products.FindByID(loadCtx, id)
		if err != nil {
			return nil, err
		}
		if err := p.cache.Set(loadCtx, product); err != nil {
			logger.Error().Err(err).Msgf("Error setting product %s in cache", id)
		}
		return *product, nil
	})
	if err != nil {
		return nil, notFound(err, entity.ErrProductNotFound)
	}
	product := v.(entity.Product)
	return &product, nil
}

func (p *ProductService) ListProducts(ctx context.Context) ([]entity.Product, error) {
	products, err := p.products.List(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing products")
		return nil, err
	}
	return products, nil
}

func (p *ProductService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*entity.Product, error) {
	trim(input.Name)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	patch := repository.ProductPatch{Name: input.Name, Quantity: input.Quantity}
	if input.Type != nil {
		t := entity.ProductType(*input.Type)
		patch.Type = &t
	}

	product, err := p.products.Update(ctx, id, patch)
	if err != nil {
		return nil, notFound(err, entity.ErrProductNotFound)
	}
	p.invalidate(ctx, id)
	return product, nil
}

func (p *ProductService) DeleteProduct(ctx context.Context, id string) (*entity.Product, error) {
	product, err := p.products.Delete(ctx, id)
	if err != nil {
		return nil, notFound(err, entity.ErrProductNotFound)
	}
	p.invalidate(ctx, id)
	return product, nil
}

func (p *ProductService) invalidate(ctx context.Context, id string) {
	if err := p.cache.Invalidate(ctx, id); err != nil {
		logger.Error().Err(err).Msgf("Error deleting product %s from cache", id)
	}
}
