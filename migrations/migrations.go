package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var schema = []struct {
	table string
	query string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			surname VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL,
			created_at DATETIME(3) NOT NULL,
			updated_at DATETIME(3) NOT NULL,
			UNIQUE INDEX email_idx (email)
		);
	`},
	{"products", `
		CREATE TABLE IF NOT EXISTS products (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			type VARCHAR(20) NOT NULL,
			quantity INT NOT NULL,
			availability BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME(3) NOT NULL,
			updated_at DATETIME(3) NOT NULL,
			CONSTRAINT quantity_non_negative CHECK (quantity >= 0)
		);
	`},
	{"orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			status VARCHAR(20) NOT NULL,
			total DOUBLE NULL,
			created_at DATETIME(3) NOT NULL,
			updated_at DATETIME(3) NOT NULL,
			INDEX user_idx (user_id),
			INDEX created_at_idx (created_at)
		);
	`},
	{"order_items", `
		CREATE TABLE IF NOT EXISTS order_items (
			id INT AUTO_INCREMENT PRIMARY KEY,
			order_id CHAR(36) NOT NULL,
			position INT NOT NULL,
			product_id CHAR(36) NOT NULL,
			ordered_quantity INT NOT NULL,
			INDEX product_idx (product_id),
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
		);
	`},
}

// AutoMigrate creates the users, products, orders and order_items tables if
// they do not exist, retrying each statement up to retries times.
func AutoMigrate(ctx context.Context, db *sql.DB, retries int) error {
	for _, s := range schema {
		_, err := db.ExecContext(ctx, s.query)
		for i := 0; err != nil && i < retries; i++ {
			time.Sleep(1 * time.Second)
			_, err = db.ExecContext(ctx, s.query)
		}
		if err != nil {
			return fmt.Errorf("migrate %s table: %w", s.table, err)
		}
	}
	return nil
}
