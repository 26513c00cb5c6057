package checkout

import (
	"context"

	"github.com/lustra-app/lustra-golang/internal/models"
)

// LockedProduct is the stock and price of a product read under an exclusive
// row lock. Both values stay current until the owning Tx ends.
type LockedProduct struct {
	ID    int64
	Stock int
	Price float64
}

// Tx is one atomic checkout unit. Every mutation made through a Tx is applied
// on Commit or discarded on Rollback; partial application is not possible.
//
// LockProduct blocks until any concurrent lock on the same product row is
// released. DecrementStock must only be called for a product locked by this
// Tx and must refuse to drive stock negative.
type Tx interface {
	LockProduct(ctx context.Context, productID int64) (LockedProduct, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	CreateOrder(ctx context.Context, order *models.Order) (int64, error)
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	Commit() error
	Rollback() error
}

// Store opens checkout transactions against the inventory ledger.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}
