package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lustra-app/lustra-golang/internal/auth"
	"github.com/lustra-app/lustra-golang/internal/models"
)

//
// --- Cart Handlers ---
//

const cartColumns = `ca.id, ca.user_id, ca.product_id, ca.quantity, ca.created_at, ca.updated_at,
	p.id, p.category_id, p.name, p.slug, p.description, p.price, p.old_price,
	p.image, p.stock, p.rating, p.reviews_count, p.created_at, p.updated_at`

const cartJoin = "FROM carts ca JOIN products p ON ca.product_id = p.id"

func scanCart(row rowScanner) (*models.Cart, error) {
	var item models.Cart
	var p models.Product
	err := row.Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
		&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.OldPrice,
		&p.Image, &p.Stock, &p.Rating, &p.ReviewsCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Product = &p
	return &item, nil
}

func (h *Handlers) cartItemByID(id int64) (*models.Cart, error) {
	row := h.DB.QueryRow("SELECT "+cartColumns+" "+cartJoin+" WHERE ca.id = ?", id)
	return scanCart(row)
}

// GetCart is the handler for GET /api/carts/user/:userId
func (h *Handlers) GetCart(c *gin.Context) {
	p := principal(c)

	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if !auth.CanAct(p, userID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own cart."})
		return
	}

	rows, err := h.DB.Query("SELECT "+cartColumns+" "+cartJoin+" WHERE ca.user_id = ? ORDER BY ca.id ASC", userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch cart"})
		return
	}
	defer rows.Close()

	items := []*models.Cart{}
	for rows.Next() {
		item, err := scanCart(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to scan cart item"})
			return
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch cart"})
		return
	}

	c.JSON(http.StatusOK, items)
}

// AddToCartInput defines the JSON body for POST /api/carts
type AddToCartInput struct {
	UserID    *int64 `json:"user_id"`
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"omitempty,min=1"`
}

// AddToCart is the handler for POST /api/carts
// Adding a product already in the cart increments its quantity instead
// of creating a second row.
func (h *Handlers) AddToCart(c *gin.Context) {
	p := principal(c)

	var input AddToCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	userID := p.ID
	if input.UserID != nil {
		userID = *input.UserID
	}
	if !auth.CanAct(p, userID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own cart."})
		return
	}

	var exists bool
	if err := h.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)", input.ProductID).Scan(&exists); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to check product"})
		return
	}
	if !exists {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The selected product does not exist."})
		return
	}

	quantity := 1
	if input.Quantity != nil {
		quantity = *input.Quantity
	}

	now := time.Now()

	var existingID int64
	err := h.DB.QueryRow(
		"SELECT id FROM carts WHERE user_id = ? AND product_id = ?", userID, input.ProductID,
	).Scan(&existingID)
	switch {
	case err == nil:
		_, err = h.DB.Exec(
			"UPDATE carts SET quantity = quantity + ?, updated_at = ? WHERE id = ?",
			quantity, now, existingID,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update cart"})
			return
		}
		item, err := h.cartItemByID(existingID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load cart item"})
			return
		}
		c.JSON(http.StatusOK, item)
	case errors.Is(err, sql.ErrNoRows):
		result, err := h.DB.Exec(
			"INSERT INTO carts (user_id, product_id, quantity, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			userID, input.ProductID, quantity, now, now,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add to cart"})
			return
		}
		id, err := result.LastInsertId()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add to cart"})
			return
		}
		item, err := h.cartItemByID(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load cart item"})
			return
		}
		c.JSON(http.StatusCreated, item)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to check cart"})
	}
}

// UpdateCartItemInput defines the JSON body for PUT /api/carts/:id
type UpdateCartItemInput struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItem is the handler for PUT /api/carts/:id
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	p := principal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Cart item not found"})
		return
	}

	var input UpdateCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	item, err := h.cartItemByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Cart item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch cart item"})
		return
	}
	if !auth.CanAct(p, item.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own cart."})
		return
	}

	_, err = h.DB.Exec("UPDATE carts SET quantity = ?, updated_at = ? WHERE id = ?", input.Quantity, time.Now(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update cart item"})
		return
	}

	fresh, err := h.cartItemByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load cart item"})
		return
	}
	c.JSON(http.StatusOK, fresh)
}

// DeleteCartItem is the handler for DELETE /api/carts/:id
func (h *Handlers) DeleteCartItem(c *gin.Context) {
	p := principal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Cart item not found"})
		return
	}

	item, err := h.cartItemByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Cart item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch cart item"})
		return
	}
	if !auth.CanAct(p, item.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own cart."})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM carts WHERE id = ?", id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to remove cart item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart item removed"})
}

// ClearCart is the handler for DELETE /api/carts/user/:userId/clear
func (h *Handlers) ClearCart(c *gin.Context) {
	p := principal(c)

	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if !auth.CanAct(p, userID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own cart."})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM carts WHERE user_id = ?", userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to clear cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
