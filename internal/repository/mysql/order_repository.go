package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"planty-of-food/internal/entity"
	"planty-of-food/internal/repository"
)

const orderColumns = `id, user_id, status, total, created_at, updated_at`

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db}
}

func scanOrder(row rowScanner) (*entity.Order, error) {
	order := &entity.Order{}
	var total sql.NullFloat64
	err := row.Scan(&order.ID, &order.UserID, &order.Status, &total, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if total.Valid {
		order.Total = &total.Float64
	}
	return order, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	orderQuery := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	itemQuery := `SELECT product_id, ordered_quantity FROM order_items WHERE order_id = ? ORDER BY position`

	order, err := scanOrder(r.db.QueryRowContext(ctx, orderQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, itemQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	order.Products = []entity.LineItem{}
	for rows.Next() {
		item := entity.LineItem{}
		if err := rows.Scan(&item.ProductID, &item.OrderedQuantity); err != nil {
			return nil, err
		}
		order.Products = append(order.Products, item)
	}
	return order, rows.Err()
}

func (r *OrderRepository) FindDetail(ctx context.Context, id string, expand repository.Expand) (*entity.OrderDetail, error) {
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

func (r *OrderRepository) ListDetails(ctx context.Context, filter repository.OrderFilter, expand repository.Expand) ([]entity.OrderDetail, error) {
	var (
		where []string
		args  []any
	)
	if !filter.CreatedFrom.IsZero() {
		where = append(where, `o.created_at >= ?`)
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, `o.created_at < ?`)
		args = append(args, filter.CreatedTo.UTC())
	}
	if filter.UserID != "" {
		where = append(where, `o.user_id = ?`)
		args = append(args, filter.UserID)
	}
	if filter.ProductID != "" {
		where = append(where, `EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.product_id = ?)`)
		args = append(args, filter.ProductID)
	}

	query := `SELECT o.id, o.user_id, o.status, o.total, o.created_at, o.updated_at FROM orders o`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY o.created_at DESC, o.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return r.expand(ctx, orders, expand)
}

// loadItems fills the line items of orders with a single query.
func (r *OrderRepository) loadItems(ctx context.Context, orders []entity.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[string]int, len(orders))
	ids := make([]string, len(orders))
	for i := range orders {
		orders[i].Products = []entity.LineItem{}
		index[orders[i].ID] = i
		ids[i] = orders[i].ID
	}

	query := `SELECT order_id, product_id, ordered_quantity FROM order_items
		WHERE order_id IN (` + placeholders(len(ids)) + `) ORDER BY order_id, position`
	rows, err := r.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		item := entity.LineItem{}
		if err := rows.Scan(&orderID, &item.ProductID, &item.OrderedQuantity); err != nil {
			return err
		}
		i := index[orderID]
		orders[i].Products = append(orders[i].Products, item)
	}
	return rows.Err()
}

func (r *OrderRepository) expand(ctx context.Context, orders []entity.Order, expand repository.Expand) ([]entity.OrderDetail, error) {
	return repository.ExpandOrders(ctx, NewUserRepository(r.db), NewProductRepository(r.db), orders, expand)
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = entity.OrderStatusPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now()
	}
	order.UpdatedAt = order.CreatedAt

	orderQuery := `INSERT INTO orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, orderQuery, order.ID, order.UserID, order.Status, order.Total, order.CreatedAt.UTC(), order.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	return r.insertItems(ctx, order.ID, 0, order.Products)
}

// insertItems batch-inserts line items, numbering positions from offset.
func (r *OrderRepository) insertItems(ctx context.Context, orderID string, offset int, items []entity.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	itemQuery := `INSERT INTO order_items (order_id, position, product_id, ordered_quantity) VALUES `
	values := make([]any, 0, len(items)*4)
	for i, item := range items {
		itemQuery += "(?, ?, ?, ?),"
		values = append(values, orderID, offset+i, item.ProductID, item.OrderedQuantity)
	}
	itemQuery = itemQuery[:len(itemQuery)-1]

	_, err := r.db.ExecContext(ctx, itemQuery, values...)
	return err
}

func (r *OrderRepository) Update(ctx context.Context, id string, patch repository.OrderPatch) (*entity.Order, error) {
	order, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.UserID != nil {
		order.UserID = *patch.UserID
	}
	if patch.Status != nil {
		order.Status = *patch.Status
	}
	order.UpdatedAt = now()

	orderQuery := `UPDATE orders SET user_id = ?, status = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, orderQuery, order.UserID, order.Status, order.UpdatedAt, id); err != nil {
		return nil, err
	}

	if err := r.insertItems(ctx, id, len(order.Products), patch.AppendProducts); err != nil {
		return nil, err
	}
	order.Products = append(order.Products, patch.AppendProducts...)
	return order, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) (*entity.Order, error) {
	order, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	itemQuery := `DELETE FROM order_items WHERE order_id = ?`
	if _, err := r.db.ExecContext(ctx, itemQuery, id); err != nil {
		return nil, err
	}

	orderQuery := `DELETE FROM orders WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, orderQuery, id); err != nil {
		return nil, err
	}
	return order, nil
}
