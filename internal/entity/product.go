package entity

import "time"

type ProductType string

const (
	ProductTypeVegetable ProductType = "vegetable"
	ProductTypeFruit     ProductType = "fruit"
	ProductTypeDrink     ProductType = "drink"
	ProductTypeOther     ProductType = "other"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeVegetable, ProductTypeFruit, ProductTypeDrink, ProductTypeOther:
		return true
	}
	return false
}

// Product is an inventory record. Quantity is the authoritative stock level
// and never goes negative; Availability mirrors Quantity > 0.
type Product struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         ProductType `json:"type"`
	Quantity     int         `json:"quantity"`
	Availability bool        `json:"availability"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

/*
Mysql Schema:

CREATE TABLE products (
	id CHAR(36) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	type VARCHAR(20) NOT NULL,
	quantity INT NOT NULL CHECK (quantity >= 0),
	availability BOOLEAN NOT NULL DEFAULT TRUE,
	created_at DATETIME(3) NOT NULL,
	updated_at DATETIME(3) NOT NULL
);
*/
