package checkout

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/lustra-app/lustra-golang/internal/auth"
	"github.com/lustra-app/lustra-golang/internal/models"
)

// Notifier records a durable message after a successful commit. It is a
// best-effort collaborator: failures are logged, never surfaced.
type Notifier interface {
	OrderPlaced(ctx context.Context, userID, orderID int64) error
}

// Engine orchestrates order placement: validation, authorization, row
// locking, total computation, persistence and the post-commit notification.
type Engine struct {
	Store    Store
	Notifier Notifier
}

func NewEngine(store Store, notifier Notifier) *Engine {
	return &Engine{Store: store, Notifier: notifier}
}

// ItemRequest is one requested (product, quantity) pair.
type ItemRequest struct {
	ProductID int64
	Quantity  int
}

// Request is a checkout request. UserID zero means the acting principal
// orders for themselves. Any caller-supplied total or item price is ignored
// by design; prices are read under lock.
type Request struct {
	UserID          int64
	Status          string
	PaymentMethod   *string
	ShippingAddress *string
	Items           []ItemRequest
}

// PlaceOrder validates a multi-item request, then atomically checks and
// decrements stock per product, computes the order total from current prices,
// and persists the order with its line items. Concurrent checkouts of the
// same product serialize at the row lock; overselling is impossible.
func (e *Engine) PlaceOrder(ctx context.Context, p auth.Principal, req Request) (*models.Order, error) {
	// 1. --- Validate before entering the atomic unit ---
	if len(req.Items) == 0 {
		return nil, validationf("items must not be empty")
	}
	for _, it := range req.Items {
		if it.Quantity < 1 {
			return nil, validationf("quantity must be at least 1 for product %d", it.ProductID)
		}
	}

	targetUserID := req.UserID
	if targetUserID == 0 {
		targetUserID = p.ID
	}
	if !auth.CanAct(p, targetUserID) {
		return nil, ErrForbidden
	}

	status := req.Status
	if status == "" {
		status = string(StatusPending)
	}

	// 2. --- Atomic unit ---
	tx, err := e.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // no-op once committed

	// Lock in ascending product id order so two checkouts spanning the same
	// products never deadlock each other.
	items := make([]ItemRequest, len(req.Items))
	copy(items, req.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	var total float64
	lines := make([]models.OrderItem, 0, len(items))

	for _, it := range items {
		locked, err := tx.LockProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return nil, validationf("product %d does not exist", it.ProductID)
			}
			return nil, err
		}

		if locked.Stock < it.Quantity {
			return nil, &InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: locked.Stock,
			}
		}

		total += locked.Price * float64(it.Quantity)
		lines = append(lines, models.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     locked.Price,
		})

		if err := tx.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			return nil, err
		}
	}

	order := &models.Order{
		UserID:          targetUserID,
		Total:           total,
		Status:          status,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
	}

	orderID, err := tx.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	order.ID = orderID

	for i := range lines {
		lines[i].OrderID = orderID
		if err := tx.CreateOrderItem(ctx, &lines[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	order.Items = lines

	// 3. --- Post-commit, best-effort ---
	if e.Notifier != nil {
		if err := e.Notifier.OrderPlaced(ctx, targetUserID, orderID); err != nil {
			log.Printf("WARNING: order %d placed but notification failed: %v", orderID, err)
		}
	}

	return order, nil
}
