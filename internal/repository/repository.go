package repository

import (
	"context"
	"errors"
	"time"

	"planty-of-food/internal/entity"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("record conflicts with an existing one")
	// ErrStockUnderflow is returned by AdjustQuantity when the delta would
	// take the stock below zero.
	ErrStockUnderflow = errors.New("stock would become negative")
)

type UserFilter struct {
	Name  string
	Email string
}

type UserPatch struct {
	Name    *string
	Surname *string
	Email   *string
}

type ProductPatch struct {
	Name     *string
	Type     *entity.ProductType
	Quantity *int
}

// OrderFilter selects orders. Zero values are ignored; the created-at range
// is [CreatedFrom, CreatedTo).
type OrderFilter struct {
	CreatedFrom time.Time
	CreatedTo   time.Time
	UserID      string
	ProductID   string
}

type OrderPatch struct {
	UserID         *string
	Status         *entity.OrderStatus
	AppendProducts []entity.LineItem
}

// Expand selects which relations of an order are resolved.
type Expand struct {
	User     bool
	Products bool
}

var ExpandAll = Expand{User: true, Products: true}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error)
	List(ctx context.Context, filter UserFilter) ([]entity.User, error)
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, id string, patch UserPatch) (*entity.User, error)
	Delete(ctx context.Context, id string) (*entity.User, error)
}

type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	// FindByIDForUpdate reads a product and holds it for the rest of the
	// enclosing unit of work.
	FindByIDForUpdate(ctx context.Context, id string) (*entity.Product, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error)
	List(ctx context.Context) ([]entity.Product, error)
	Create(ctx context.Context, product *entity.Product) error
	Update(ctx context.Context, id string, patch ProductPatch) (*entity.Product, error)
	// AdjustQuantity adds delta to the stock only if the result stays >= 0.
	AdjustQuantity(ctx context.Context, id string, delta int) error
	Delete(ctx context.Context, id string) (*entity.Product, error)
}

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	FindDetail(ctx context.Context, id string, expand Expand) (*entity.OrderDetail, error)
	ListDetails(ctx context.Context, filter OrderFilter, expand Expand) ([]entity.OrderDetail, error)
	Create(ctx context.Context, order *entity.Order) error
	Update(ctx context.Context, id string, patch OrderPatch) (*entity.Order, error)
	Delete(ctx context.Context, id string) (*entity.Order, error)
}

type Repositories interface {
	Users() UserRepository
	Products() ProductRepository
	Orders() OrderRepository
}

// Tx is a unit of work. Every repository obtained from it takes part in the
// same atomic scope. Rollback after Commit is a no-op.
type Tx interface {
	Repositories
	Commit() error
	Rollback() error
}

// Store gives autocommit repositories and opens units of work.
type Store interface {
	Repositories
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// RunInTx runs fn inside a new unit of work. The unit is committed when fn
// returns nil and aborted otherwise; it is always released.
func RunInTx(ctx context.Context, store Store, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}
