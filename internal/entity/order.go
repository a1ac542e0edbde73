package entity

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
)

// Valid reports set membership only. Any valid status may follow any other.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusDelivered:
		return true
	}
	return false
}

// LineItem is one product reference within an order. The same product may
// appear on several lines.
type LineItem struct {
	ProductID       string `json:"product" validate:"notblank"`
	OrderedQuantity int    `json:"orderedQuantity" validate:"gt=0"`
}

type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user"`
	Products  []LineItem  `json:"products"`
	Status    OrderStatus `json:"status"`
	Total     *float64    `json:"total,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// OrderDetail is an order with its user and product references resolved.
// UserID and ProductID are always set; User and Product are nil when the
// relation was not expanded or the referenced record no longer exists.
type OrderDetail struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	User      *User            `json:"user"`
	Products  []LineItemDetail `json:"products"`
	Status    OrderStatus      `json:"status"`
	Total     *float64         `json:"total,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type LineItemDetail struct {
	ProductID       string   `json:"productId"`
	Product         *Product `json:"product"`
	OrderedQuantity int      `json:"orderedQuantity"`
}

/*
Mysql Table

CREATE TABLE orders (
	id CHAR(36) PRIMARY KEY,
	user_id CHAR(36) NOT NULL,
	status VARCHAR(20) NOT NULL,
	total DOUBLE NULL,
	created_at DATETIME(3) NOT NULL,
	updated_at DATETIME(3) NOT NULL
);

CREATE TABLE order_items (
	id INT AUTO_INCREMENT PRIMARY KEY,
	order_id CHAR(36) NOT NULL REFERENCES orders(id),
	position INT NOT NULL,
	product_id CHAR(36) NOT NULL,
	ordered_quantity INT NOT NULL
);
*/
