package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"planty-of-food/internal/repository"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ConnConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (c ConnConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Host + ":" + c.Port
	cfg.DBName = c.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// Connect opens the pool and pings it, retrying while the server comes up.
func Connect(ctx context.Context, c ConnConfig, retries int) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	for i := 0; i < retries; i++ {
		db, err = sql.Open("mysql", c.DSN())
		if err == nil {
			err = db.PingContext(ctx)
			if err == nil {
				log.Info().Str("db", c.Name).Msg("connected to database")
				return db, nil
			}
			db.Close()
		}
		log.Warn().Err(err).Msgf("retry %d: failed to connect to DB %s (%s:%s)", i+1, c.Name, c.Host, c.Port)

		select {
		case <-time.After(3 * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%s after retries: %w", c.Name, c.Host, c.Port, err)
}

type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() repository.UserRepository       { return NewUserRepository(s.db) }
func (s *Store) Products() repository.ProductRepository { return NewProductRepository(s.db) }
func (s *Store) Orders() repository.OrderRepository     { return NewOrderRepository(s.db) }

// Begin opens a REPEATABLE READ transaction. Stock rows are additionally
// locked with SELECT ... FOR UPDATE by the product repository.
func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Users() repository.UserRepository       { return NewUserRepository(t.tx) }
func (t *Tx) Products() repository.ProductRepository { return NewProductRepository(t.tx) }
func (t *Tx) Orders() repository.OrderRepository     { return NewOrderRepository(t.tx) }

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
