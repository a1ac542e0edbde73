package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"planty-of-food/internal/entity"
	"planty-of-food/internal/repository"
)

var errTxDone = errors.New("memory: transaction has already been committed or rolled back")

type userRepository struct {
	v view
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.v.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	users := make(map[string]*entity.User, len(ids))
	err := r.v.read(func(st *state) error {
		for _, id := range ids {
			if u, ok := st.users[id]; ok {
				users[id] = &u
			}
		}
		return nil
	})
	return users, err
}

func (r *userRepository) List(ctx context.Context, filter repository.UserFilter) ([]entity.User, error) {
	users := []entity.User{}
	err := r.v.read(func(st *state) error {
		for _, u := range st.users {
			if filter.Name != "" && !containsFold(u.Name, filter.Name) {
				continue
			}
			if filter.Email != "" && !containsFold(u.Email, filter.Email) {
				continue
			}
			users = append(users, u)
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, err
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.v.write(func(st *state) error {
		if emailTaken(st, user.Email, "") {
			return repository.ErrConflict
		}
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		now := r.v.now()
		user.CreatedAt, user.UpdatedAt = now, now
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepository) Update(ctx context.Context, id string, patch repository.UserPatch) (*entity.User, error) {
	var updated entity.User
	err := r.v.write(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		if patch.Email != nil && emailTaken(st, *patch.Email, id) {
			return repository.ErrConflict
		}
		if patch.Name != nil {
			u.Name = *patch.Name
		}
		if patch.Surname != nil {
			u.Surname = *patch.Surname
		}
		if patch.Email != nil {
			u.Email = *patch.Email
		}
		u.UpdatedAt = r.v.now()
		st.users[id] = u
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *userRepository) Delete(ctx context.Context, id string) (*entity.User, error) {
	var deleted entity.User
	err := r.v.write(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		delete(st.users, id)
		deleted = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

func emailTaken(st *state, email, exceptID string) bool {
	for id, u := range st.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type productRepository struct {
	v view
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var product entity.Product
	err := r.v.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate needs no extra locking: a unit of work already has
// exclusive access to its snapshot.
func (r *productRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	products := make(map[string]*entity.Product, len(ids))
	err := r.v.read(func(st *state) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				products[id] = &p
			}
		}
		return nil
	})
	return products, err
}

func (r *productRepository) List(ctx context.Context) ([]entity.Product, error) {
	products := []entity.Product{}
	err := r.v.read(func(st *state) error {
		for _, p := range st.products {
			products = append(products, p)
		}
		return nil
	})
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID < products[j].ID
		}
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
	return products, err
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	return r.v.write(func(st *state) error {
		if product.ID == "" {
			product.ID = uuid.NewString()
		}
		now := r.v.now()
		product.CreatedAt, product.UpdatedAt = now, now
		product.Availability = product.Quantity > 0
		st.products[product.ID] = *product
		return nil
	})
}

func (r *productRepository) Update(ctx context.Context, id string, patch repository.ProductPatch) (*entity.Product, error) {
	var updated entity.Product
	err := r.v.write(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Type != nil {
			p.Type = *patch.Type
		}
		if patch.Quantity != nil {
			p.Quantity = *patch.Quantity
			p.Availability = p.Quantity > 0
		}
		p.UpdatedAt = r.v.now()
		st.products[id] = p
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *productRepository) AdjustQuantity(ctx context.Context, id string, delta int) error {
	return r.v.write(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		if p.Quantity+delta < 0 {
			return repository.ErrStockUnderflow
		}
		p.Quantity += delta
		p.Availability = p.Quantity > 0
		p.UpdatedAt = r.v.now()
		st.products[id] = p
		return nil
	})
}

func (r *productRepository) Delete(ctx context.Context, id string) (*entity.Product, error) {
	var deleted entity.Product
	err := r.v.write(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		delete(st.products, id)
		deleted = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

type orderRepository struct {
	v view
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.v.read(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		order = copyOrder(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindDetail(ctx context.Context, id string, expand repository.Expand) (*entity.OrderDetail, error) {
	order, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := r.expand(ctx, []entity.Order{*order}, expand)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (r *orderRepository) ListDetails(ctx context.Context, filter repository.OrderFilter, expand repository.Expand) ([]entity.OrderDetail, error) {
	var orders []entity.Order
	err := r.v.read(func(st *state) error {
		for _, o := range st.orders {
			if matchOrder(o, filter) {
				orders = append(orders, copyOrder(o))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return r.expand(ctx, orders, expand)
}

func (r *orderRepository) expand(ctx context.Context, orders []entity.Order, expand repository.Expand) ([]entity.OrderDetail, error) {
	return repository.ExpandOrders(ctx, &userRepository{v: r.v}, &productRepository{v: r.v}, orders, expand)
}

func matchOrder(o entity.Order, filter repository.OrderFilter) bool {
	if !filter.CreatedFrom.IsZero() && o.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && !o.CreatedAt.Before(filter.CreatedTo) {
		return false
	}
	if filter.UserID != "" && o.UserID != filter.UserID {
		return false
	}
	if filter.ProductID != "" {
		for _, item := range o.Products {
			if item.ProductID == filter.ProductID {
				return true
			}
		}
		return false
	}
	return true
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.v.write(func(st *state) error {
		if order.ID == "" {
			order.ID = uuid.NewString()
		}
		if order.Status == "" {
			order.Status = entity.OrderStatusPending
		}
		if order.CreatedAt.IsZero() {
			order.CreatedAt = r.v.now()
		}
		order.UpdatedAt = order.CreatedAt
		st.orders[order.ID] = copyOrder(*order)
		return nil
	})
}

func (r *orderRepository) Update(ctx context.Context, id string, patch repository.OrderPatch) (*entity.Order, error) {
	var updated entity.Order
	err := r.v.write(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		if patch.UserID != nil {
			o.UserID = *patch.UserID
		}
		if patch.Status != nil {
			o.Status = *patch.Status
		}
		o.Products = append(append([]entity.LineItem(nil), o.Products...), patch.AppendProducts...)
		o.UpdatedAt = r.v.now()
		st.orders[id] = o
		updated = copyOrder(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) (*entity.Order, error) {
	var deleted entity.Order
	err := r.v.write(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		delete(st.orders, id)
		deleted = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}
