package service

import (
	"context"
	"errors"

	"planty-of-food/internal/entity"
	"planty-of-food/internal/repository"
)

type Direction int

const (
	// Decrement takes stock for an order being placed or extended.
	Decrement Direction = iota
	// Increment gives stock back for an order being deleted.
	Increment
)

func (d Direction) String() string {
	if d == Increment {
		return "increment"
	}
	return "decrement"
}

// StockService applies the stock effect of order line items.
type StockService struct{}

func NewStockService() *StockService {
	return &StockService{}
}

// Adjust walks items in order and moves each product's stock in direction
// dir. products must belong to the caller's unit of work; the first failure
// is returned and the caller is expected to abort the unit.
func (s *StockService) Adjust(ctx context.Context, products repository.ProductRepository, items []entity.LineItem, dir Direction) error {
	for _, item := range items {
		product, err := products.FindByIDForUpdate(ctx, item.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return &entity.ProductNotFoundError{ProductID: item.ProductID}
		}
		if err != nil {
			logger.Error().Err(err).Msgf("Error getting product %s", item.ProductID)
			return err
		}

		delta := item.OrderedQuantity
		if dir == Decrement {
			if product.Quantity < item.OrderedQuantity {
				logger.Warn().Msgf("Product %s out of stock", item.ProductID)
				return insufficient(product, item)
			}
			delta = -delta
		}

		err = products.AdjustQuantity(ctx, item.ProductID, delta)
		switch {
		case errors.Is(err, repository.ErrStockUnderflow):
			return insufficient(product, item)
		case errors.Is(err, repository.ErrNotFound):
			return &entity.ProductNotFoundError{ProductID: item.ProductID}
		case err != nil:
			logger.Error().Err(err).Msgf("Error adjusting stock for product %s", item.ProductID)
			return err
		}
	}
	return nil
}

func insufficient(product *entity.Product, item entity.LineItem) error {
	return &entity.InsufficientStockError{
		ProductID:   product.ID,
		ProductName: product.Name,
		Available:   product.Quantity,
		Requested:   item.OrderedQuantity,
	}
}
