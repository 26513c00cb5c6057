package models

import "time"

// Category is the model for the 'categories' table
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Product is the model for the 'products' table.
// Stock is guarded by row-level locking during checkout and never goes negative.
type Product struct {
	ID          int64   `json:"id" db:"id"`
	CategoryID  int64   `json:"categoryId" db:"category_id"`
	Name        string  `json:"name" db:"name"`
	Slug        string  `json:"slug" db:"slug"`
	Description *string `json:"description,omitempty" db:"description"`

	Price    float64  `json:"price" db:"price"`
	OldPrice *float64 `json:"oldPrice,omitempty" db:"old_price"`
	Image    *string  `json:"image,omitempty" db:"image"`
	Stock    int      `json:"stock" db:"stock"`

	Rating       float64 `json:"rating" db:"rating"`
	ReviewsCount int     `json:"reviewsCount" db:"reviews_count"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Join (not in the table, populated manually)
	Category *Category `json:"category,omitempty" db:"-"`
}
