package repository

import (
	"context"

	"planty-of-food/internal/entity"
)

// ExpandOrders resolves the user and product references of orders with
// batched lookups through users and products.
func ExpandOrders(ctx context.Context, users UserRepository, products ProductRepository, orders []entity.Order, expand Expand) ([]entity.OrderDetail, error) {
	var (
		userByID    map[string]*entity.User
		productByID map[string]*entity.Product
		err         error
	)

	if expand.User {
		userByID, err = users.FindByIDs(ctx, collectUserIDs(orders))
		if err != nil {
			return nil, err
		}
	}
	if expand.Products {
		productByID, err = products.FindByIDs(ctx, collectProductIDs(orders))
		if err != nil {
			return nil, err
		}
	}

	details := make([]entity.OrderDetail, 0, len(orders))
	for _, o := range orders {
		d := entity.OrderDetail{
			ID:        o.ID,
			UserID:    o.UserID,
			User:      userByID[o.UserID],
			Products:  make([]entity.LineItemDetail, 0, len(o.Products)),
			Status:    o.Status,
			Total:     o.Total,
			CreatedAt: o.CreatedAt,
			UpdatedAt: o.UpdatedAt,
		}
		for _, item := range o.Products {
			d.Products = append(d.Products, entity.LineItemDetail{
				ProductID:       item.ProductID,
				Product:         productByID[item.ProductID],
				OrderedQuantity: item.OrderedQuantity,
			})
		}
		details = append(details, d)
	}
	return details, nil
}

func collectUserIDs(orders []entity.Order) []string {
	seen := make(map[string]struct{}, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.UserID]; ok {
			continue
		}
		seen[o.UserID] = struct{}{}
		ids = append(ids, o.UserID)
	}
	return ids
}

func collectProductIDs(orders []entity.Order) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, o := range orders {
		for _, item := range o.Products {
			if _, ok := seen[item.ProductID]; ok {
				continue
			}
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}
