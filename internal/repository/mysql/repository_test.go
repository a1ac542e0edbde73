package mysql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planty-of-food/internal/entity"
	"planty-of-food/internal/repository"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestAdjustQuantityConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	update := regexp.QuoteMeta(`UPDATE products SET quantity = quantity + ?`)
	exists := regexp.QuoteMeta(`SELECT 1 FROM products WHERE id = ?`)

	t.Run("applied", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(update).
			WithArgs(-2, sqlmock.AnyArg(), "p1", -2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewProductRepository(db).AdjustQuantity(ctx, "p1", -2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("underflow", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(update).
			WithArgs(-5, sqlmock.AnyArg(), "p1", -5).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(exists).WithArgs("p1").
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		err := NewProductRepository(db).AdjustQuantity(ctx, "p1", -5)
		assert.ErrorIs(t, err, repository.ErrStockUnderflow)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing product", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(update).
			WithArgs(3, sqlmock.AnyArg(), "nope", 3).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(exists).WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"1"}))

		err := NewProductRepository(db).AdjustQuantity(ctx, "nope", 3)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFindByIDForUpdateLocksRow(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM products WHERE id = \? FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "quantity", "availability", "created_at", "updated_at"}).
			AddRow("p1", "Pomodoro Bio", "vegetable", 100, true, created, created))

	product, err := NewProductRepository(db).FindByIDForUpdate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Pomodoro Bio", product.Name)
	assert.Equal(t, entity.ProductTypeVegetable, product.Type)
	assert.Equal(t, 100, product.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := NewUserRepository(db).Create(context.Background(), &entity.User{Name: "Mario", Surname: "Rossi", Email: "mario@example.com"})
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderFindByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = ?`)).
		WithArgs("o1").
		WillReturnError(sql.ErrNoRows)

	_, err := NewOrderRepository(db).FindByID(context.Background(), "o1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderCreateBatchInsertsItems(t *testing.T) {
	db, mock := newMock(t)
	order := &entity.Order{
		UserID: "u1",
		Products: []entity.LineItem{
			{ProductID: "p1", OrderedQuantity: 2},
			{ProductID: "p2", OrderedQuantity: 1},
		},
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders`)).
		WithArgs(sqlmock.AnyArg(), "u1", entity.OrderStatusPending, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items (order_id, position, product_id, ordered_quantity) VALUES (?, ?, ?, ?),(?, ?, ?, ?)`)).
		WithArgs(sqlmock.AnyArg(), 0, "p1", 2, sqlmock.AnyArg(), 1, "p2", 1).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewOrderRepository(db).Create(context.Background(), order))
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxCommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET quantity`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repository.RunInTx(ctx, NewStore(db), func(ctx context.Context, tx repository.Tx) error {
			return tx.Products().AdjustQuantity(ctx, "p1", -1)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		db, mock := newMock(t)
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repository.RunInTx(ctx, NewStore(db), func(ctx context.Context, tx repository.Tx) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDSN(t *testing.T) {
	dsn := ConnConfig{Host: "db", Port: "3306", User: "root", Password: "secret", Name: "planty"}.DSN()
	assert.Contains(t, dsn, "root:secret@tcp(db:3306)/planty")
	assert.Contains(t, dsn, "parseTime=true")
}
