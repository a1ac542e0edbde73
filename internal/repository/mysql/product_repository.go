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

const productColumns = `id, name, type, quantity, availability, created_at, updated_at`

type ProductRepository struct {
	db DBTX
}

func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db}
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	product := &entity.Product{}
	err := row.Scan(&product.ID, &product.Name, &product.Type, &product.Quantity, &product.Availability, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *ProductRepository) findOne(ctx context.Context, query string, id string) (*entity.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return product, err
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
}

func (r *ProductRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = ? FOR UPDATE`, id)
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	products := make(map[string]*entity.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[product.ID] = product
	}
	return products, rows.Err()
}

func (r *ProductRepository) List(ctx context.Context) ([]entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []entity.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func (r *ProductRepository) Create(ctx context.Context, product *entity.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	product.Availability = product.Quantity > 0
	product.CreatedAt = now()
	product.UpdatedAt = product.CreatedAt

	query := `INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, product.ID, product.Name, product.Type, product.Quantity, product.Availability, product.CreatedAt, product.UpdatedAt)
	return err
}

func (r *ProductRepository) Update(ctx context.Context, id string, patch repository.ProductPatch) (*entity.Product, error) {
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}

	set := []string{`updated_at = ?`}
	args := []any{now()}
	if patch.Name != nil {
		set = append(set, `name = ?`)
		args = append(args, *patch.Name)
	}
	if patch.Type != nil {
		set = append(set, `type = ?`)
		args = append(args, *patch.Type)
	}
	if patch.Quantity != nil {
		set = append(set, `quantity = ?`, `availability = ?`)
		args = append(args, *patch.Quantity, *patch.Quantity > 0)
	}
	args = append(args, id)

	query := `UPDATE products SET ` + strings.Join(set, `, `) + ` WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// AdjustQuantity is a conditional write: the row only changes if the new
// stock is non-negative, which also guards against concurrent writers.
func (r *ProductRepository) AdjustQuantity(ctx context.Context, id string, delta int) error {
	query := `UPDATE products SET quantity = quantity + ?, availability = (quantity > 0), updated_at = ?
		WHERE id = ? AND quantity + ? >= 0`
	res, err := r.db.ExecContext(ctx, query, delta, now(), id, delta)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	return repository.ErrStockUnderflow
}

func (r *ProductRepository) Delete(ctx context.Context, id string) (*entity.Product, error) {
	product, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `DELETE FROM products WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return nil, err
	}
	return product, nil
}
