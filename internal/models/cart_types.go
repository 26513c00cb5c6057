package models

import "time"

// Cart is the model for the 'carts' table: one row per (user, product) pair.
type Cart struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Join (not in the table, populated manually)
	Product *Product `json:"product,omitempty" db:"-"`
}

// Favorite is the model for the 'favorites' table
type Favorite struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// Join (not in the table, populated manually)
	Product *Product `json:"product,omitempty" db:"-"`
}
