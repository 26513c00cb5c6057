package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lustra-app/lustra-golang/internal/auth"
	"github.com/lustra-app/lustra-golang/internal/checkout"
	"github.com/lustra-app/lustra-golang/internal/models"
)

//
// --- Order Handlers ---
//

// loadOrder fetches an order with its items (product attached) and
// payment, if one exists.
func (h *Handlers) loadOrder(id int64) (*models.Order, error) {
	var o models.Order
	err := h.DB.QueryRow(`
		SELECT id, user_id, total, status, payment_method, shipping_address, created_at, updated_at
		FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentMethod, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := h.DB.Query(`
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.created_at,
		       p.id, p.category_id, p.name, p.slug, p.description, p.price, p.old_price,
		       p.image, p.stock, p.rating, p.reviews_count, p.created_at, p.updated_at
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	o.Items = []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		var p models.Product
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.CreatedAt,
			&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.OldPrice,
			&p.Image, &p.Stock, &p.Rating, &p.ReviewsCount, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		item.Product = &p
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var pay models.Payment
	err = h.DB.QueryRow(`
		SELECT id, order_id, payment_method, payment_status, paid_at
		FROM payments WHERE order_id = ?`, id,
	).Scan(&pay.ID, &pay.OrderID, &pay.PaymentMethod, &pay.PaymentStatus, &pay.PaidAt)
	switch {
	case err == nil:
		o.Payment = &pay
	case errors.Is(err, sql.ErrNoRows):
		// no payment yet
	default:
		return nil, err
	}

	return &o, nil
}

// ListOrders is the handler for GET /api/orders
// Admins see every order, everyone else sees their own.
func (h *Handlers) ListOrders(c *gin.Context) {
	p := principal(c)

	query := "SELECT id FROM orders WHERE user_id = ? ORDER BY id DESC"
	args := []any{p.ID}
	if p.IsAdmin {
		query = "SELECT id FROM orders ORDER BY id DESC"
		args = nil
	}

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch orders"})
		return
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to scan order"})
			return
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch orders"})
		return
	}

	orders := []*models.Order{}
	for _, id := range ids {
		order, err := h.loadOrder(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load order"})
			return
		}
		orders = append(orders, order)
	}

	c.JSON(http.StatusOK, orders)
}

// GetOrder is the handler for GET /api/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	p := principal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}

	order, err := h.loadOrder(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch order"})
		return
	}
	if !auth.CanAct(p, order.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own orders."})
		return
	}

	c.JSON(http.StatusOK, order)
}

// PlaceOrderInput defines the JSON body for POST /api/orders
type PlaceOrderInput struct {
	UserID          *int64                `json:"user_id"`
	Status          *string               `json:"status" binding:"omitempty,oneof=pending processing shipped delivered cancelled"`
	PaymentMethod   *string               `json:"payment_method" binding:"omitempty,max=100"`
	ShippingAddress *string               `json:"shipping_address" binding:"omitempty,max=1000"`
	Items           []PlaceOrderItemInput `json:"items" binding:"required,min=1,dive"`
}

// PlaceOrderItemInput is one requested order line.
type PlaceOrderItemInput struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// PlaceOrder is the handler for POST /api/orders
// The heavy lifting happens in the checkout engine, which locks stock,
// computes the total from current prices and commits atomically.
func (h *Handlers) PlaceOrder(c *gin.Context) {
	p := principal(c)

	var input PlaceOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	req := checkout.Request{
		PaymentMethod:   input.PaymentMethod,
		ShippingAddress: input.ShippingAddress,
	}
	if input.UserID != nil {
		req.UserID = *input.UserID
	}
	if input.Status != nil {
		req.Status = *input.Status
	}
	for _, item := range input.Items {
		req.Items = append(req.Items, checkout.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.Engine.PlaceOrder(c.Request.Context(), p, req)
	if err != nil {
		var vErr *checkout.ValidationError
		var stockErr *checkout.InsufficientStockError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": vErr.Error()})
		case errors.As(err, &stockErr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": stockErr.Error()})
		case errors.Is(err, checkout.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only create your own orders."})
		case errors.Is(err, checkout.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"message": "Order could not be placed due to concurrent activity. Please retry."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to place order"})
		}
		return
	}

	detail, err := h.loadOrder(order.ID)
	if err != nil {
		// The order is committed, so still report success with what we have.
		c.JSON(http.StatusCreated, gin.H{"message": "Order placed", "order": order})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Order placed", "order": detail})
}

// UpdateOrderStatusInput defines the JSON body for PATCH /api/orders/:id/status
type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
}

// UpdateOrderStatus is the handler for PATCH /api/orders/:id/status
// Non-admins may only cancel their own cancellable orders. Admins may
// move an order to any later state.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	p := principal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	}

	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}
	next := checkout.Status(input.Status)

	order, err := h.loadOrder(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch order"})
		return
	}
	if !auth.CanAct(p, order.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own orders."})
		return
	}

	current := checkout.Status(order.Status)
	if p.IsAdmin {
		if !checkout.CanTransition(current, next) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid status transition."})
			return
		}
	} else {
		if next != checkout.StatusCancelled {
			c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only cancel your order."})
			return
		}
		if !checkout.CanCancel(current) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Order can no longer be cancelled."})
			return
		}
	}

	_, err = h.DB.Exec("UPDATE orders SET status = ?, updated_at = ? WHERE id = ?", string(next), time.Now(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update order status"})
		return
	}

	fresh, err := h.loadOrder(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": fresh})
}
