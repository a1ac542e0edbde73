package service

import (
	"context"
	"time"

	"planty-of-food/internal/entity"
	"planty-of-food/internal/repository"
	"planty-of-food/internal/validation"
)

type CreateOrderInput struct {
	UserID         string            `json:"userId" validate:"notblank"`
	Products       []entity.LineItem `json:"products" validate:"required,min=1,dive"`
	IdempotencyKey string            `json:"-"`
}

// UpdateOrderInput is a partial update. Products are appended to the
// order's existing lines; nil fields are left untouched.
type UpdateOrderInput struct {
	Products []entity.LineItem `json:"products" validate:"omitempty,dive"`
	Status   *string           `json:"status"`
	UserID   *string           `json:"userId" validate:"omitempty,notblank"`
}

// OrderQuery filters ListOrders. Empty fields are ignored.
type OrderQuery struct {
	Date      string
	UserID    string
	ProductID string
}

// OrderService places, changes and removes orders, keeping product stock
// consistent with them.
type OrderService struct {
	store       repository.Store
	stock       *StockService
	publisher   EventPublisher
	idempotency IdempotencyStore
	cache       ProductCache
	location    *time.Location
}

type OrderOption func(*OrderService)

func WithPublisher(p EventPublisher) OrderOption {
	return func(s *OrderService) { s.publisher = p }
}

func WithIdempotency(i IdempotencyStore) OrderOption {
	return func(s *OrderService) { s.idempotency = i }
}

func WithOrderCache(c ProductCache) OrderOption {
	return func(s *OrderService) { s.cache = c }
}

// WithLocation sets the time zone used to interpret the date filter.
func WithLocation(loc *time.Location) OrderOption {
	return func(s *OrderService) { s.location = loc }
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(store repository.Store, stock *StockService, opts ...OrderOption) *OrderService {
	s := &OrderService{
		store:       store,
		stock:       stock,
		publisher:   nopPublisher{},
		idempotency: nopIdempotency{},
		cache:       nopCache{},
		location:    time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder places a new pending order and takes its stock in the same
// unit of work.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (order *entity.Order, err error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" {
		reserved, rerr := s.idempotency.Reserve(ctx, input.IdempotencyKey)
		if rerr != nil {
			logger.Error().Err(rerr).Msg("Error reserving idempotency key")
			return nil, rerr
		}
		if !reserved {
			return nil, entity.ErrDuplicateRequest
		}
		// err is the named result
		defer func() {
			if err == nil {
				return
			}
			if rerr := s.idempotency.Release(ctx, input.IdempotencyKey); rerr != nil {
				logger.Error().Err(rerr).Msgf("Error releasing idempotency key %s", input.IdempotencyKey)
			}
		}()
	}

	if _, err := s.store.Users().FindByID(ctx, input.UserID); err != nil {
		return nil, notFound(err, entity.ErrUserNotFound)
	}

	err = repository.RunInTx(ctx, s.store, func(ctx context.Context, tx repository.Tx) error {
		if err := s.stock.Adjust(ctx, tx.Products(), input.Products, Decrement); err != nil {
			return err
		}

		order = &entity.Order{
			UserID:   input.UserID,
			Products: append([]entity.LineItem(nil), input.Products...),
			Status:   entity.OrderStatusPending,
		}
		return tx.Orders().Create(ctx, order)
	})
	if err != nil {
		logger.Error().Err(err).Msg("Error creating order")
		return nil, err
	}

	s.committed(ctx, EventOrderCreated, order)
	return order, nil
}

// UpdateOrder appends line items, changes the status or reassigns the user.
// Every change, including the stock taken for new lines, lands together or
// not at all.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, input UpdateOrderInput) (*entity.Order, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	if _, err := s.store.Orders().FindByID(ctx, id); err != nil {
		return nil, notFound(err, entity.ErrOrderNotFound)
	}

	var updated *entity.Order
	err := repository.RunInTx(ctx, s.store, func(ctx context.Context, tx repository.Tx) error {
		patch := repository.OrderPatch{}

		if len(input.Products) > 0 {
			if err := s.stock.Adjust(ctx, tx.Products(), input.Products, Decrement); err != nil {
				return err
			}
			patch.AppendProducts = input.Products
		}

		if input.Status != nil {
			status := entity.OrderStatus(*input.Status)
			if !status.Valid() {
				return &entity.InvalidStatusError{Status: *input.Status}
			}
			patch.Status = &status
		}

		if input.UserID != nil {
			if _, err := tx.Users().FindByID(ctx, *input.UserID); err != nil {
				return notFound(err, entity.ErrUserNotFound)
			}
			patch.UserID = input.UserID
		}

		var err error
		updated, err = tx.Orders().Update(ctx, id, patch)
		return notFound(err, entity.ErrOrderNotFound)
	})
	if err != nil {
		logger.Error().Err(err).Msgf("Error updating order %s", id)
		return nil, err
	}

	s.committed(ctx, EventOrderUpdated, updated)
	return updated, nil
}

// DeleteOrder removes an order and gives its stock back. The order is looked
// up inside the unit of work so the restored quantities match what is
// deleted.
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	var deleted *entity.Order
	err := repository.RunInTx(ctx, s.store, func(ctx context.Context, tx repository.Tx) error {
		order, err := tx.Orders().FindByID(ctx, id)
		if err != nil {
			return notFound(err, entity.ErrOrderNotFound)
		}

		if err := s.stock.Adjust(ctx, tx.Products(), order.Products, Increment); err != nil {
			return err
		}

		deleted, err = tx.Orders().Delete(ctx, id)
		return notFound(err, entity.ErrOrderNotFound)
	})
	if err != nil {
		logger.Error().Err(err).Msgf("Error deleting order %s", id)
		return err
	}

	s.committed(ctx, EventOrderDeleted, deleted)
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*entity.OrderDetail, error) {
	order, err := s.store.Orders().FindDetail(ctx, id, repository.ExpandAll)
	if err != nil {
		return nil, notFound(err, entity.ErrOrderNotFound)
	}
	return order, nil
}

// ListOrders returns the orders matching q, newest first, with users and
// products expanded. Date selects one calendar day in the service's location.
func (s *OrderService) ListOrders(ctx context.Context, q OrderQuery) ([]entity.OrderDetail, error) {
	filter := repository.OrderFilter{
		UserID:    q.UserID,
		ProductID: q.ProductID,
	}

	if q.Date != "" {
		day, err := time.ParseInLocation(time.DateOnly, q.Date, s.location)
		if err != nil {
			return nil, entity.NewValidationError("date must be in YYYY-MM-DD format")
		}
		filter.CreatedFrom = day
		filter.CreatedTo = day.AddDate(0, 0, 1)
	}

	orders, err := s.store.Orders().ListDetails(ctx, filter, repository.ExpandAll)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing orders")
		return nil, err
	}
	return orders, nil
}

// committed runs the side effects of a committed order change. They are
// best effort: the change itself has already been persisted.
func (s *OrderService) committed(ctx context.Context, eventType string, order *entity.Order) {
	if err := s.publisher.Publish(ctx, eventType, order); err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s for order %s", eventType, order.ID)
	}

	ids := make([]string, 0, len(order.Products))
	for _, item := range order.Products {
		ids = append(ids, item.ProductID)
	}
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		logger.Error().Err(err).Msg("Error invalidating cached products")
	}
}
