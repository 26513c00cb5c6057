package models

import "time"

// Order is the model for the 'orders' table.
// Total is always computed server-side from product prices; caller-supplied
// totals are ignored.
type Order struct {
	ID              int64     `json:"id" db:"id"`
	UserID          int64     `json:"userId" db:"user_id"`
	Total           float64   `json:"total" db:"total"`
	Status          string    `json:"status" db:"status"`
	PaymentMethod   *string   `json:"paymentMethod,omitempty" db:"payment_method"`
	ShippingAddress *string   `json:"shippingAddress,omitempty" db:"shipping_address"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`

	// Joins (not in the table, populated manually)
	Items   []OrderItem `json:"items,omitempty" db:"-"`
	Payment *Payment    `json:"payment,omitempty" db:"-"`
}

// OrderItem is the model for the 'order_items' table.
// Price is the product's unit price at the time of purchase, snapshotted.
type OrderItem struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   int64     `json:"orderId" db:"order_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     float64   `json:"price" db:"price"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// Join (not in the table, populated manually)
	Product *Product `json:"product,omitempty" db:"-"`
}

// Payment is the model for the 'payments' table: at most one per order.
type Payment struct {
	ID            int64      `json:"id" db:"id"`
	OrderID       int64      `json:"orderId" db:"order_id"`
	PaymentMethod *string    `json:"paymentMethod,omitempty" db:"payment_method"`
	PaymentStatus *string    `json:"paymentStatus,omitempty" db:"payment_status"`
	PaidAt        *time.Time `json:"paidAt,omitempty" db:"paid_at"`
}
