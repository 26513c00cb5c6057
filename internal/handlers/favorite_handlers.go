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
// --- Favorite Handlers ---
//

const favoriteColumns = `f.id, f.user_id, f.product_id, f.created_at,
	p.id, p.category_id, p.name, p.slug, p.description, p.price, p.old_price,
	p.image, p.stock, p.rating, p.reviews_count, p.created_at, p.updated_at`

const favoriteJoin = "FROM favorites f JOIN products p ON f.product_id = p.id"

func scanFavorite(row rowScanner) (*models.Favorite, error) {
	var fav models.Favorite
	var p models.Product
	err := row.Scan(
		&fav.ID, &fav.UserID, &fav.ProductID, &fav.CreatedAt,
		&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.OldPrice,
		&p.Image, &p.Stock, &p.Rating, &p.ReviewsCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fav.Product = &p
	return &fav, nil
}

func (h *Handlers) favoriteByID(id int64) (*models.Favorite, error) {
	row := h.DB.QueryRow("SELECT "+favoriteColumns+" "+favoriteJoin+" WHERE f.id = ?", id)
	return scanFavorite(row)
}

// favoriteTarget resolves whose favorites a request is about. Path param
// wins, then the user_id query param, then the caller themselves.
func favoriteTarget(c *gin.Context, p auth.Principal) (int64, error) {
	if raw := c.Param("userId"); raw != "" {
		return strconv.ParseInt(raw, 10, 64)
	}
	if raw := c.Query("user_id"); raw != "" {
		return strconv.ParseInt(raw, 10, 64)
	}
	return p.ID, nil
}

// ListFavorites is the handler for GET /api/favorites and GET /api/favorites/user/:userId
func (h *Handlers) ListFavorites(c *gin.Context) {
	p := principal(c)

	userID, err := favoriteTarget(c, p)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if !auth.CanAct(p, userID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own favorites."})
		return
	}

	rows, err := h.DB.Query("SELECT "+favoriteColumns+" "+favoriteJoin+" WHERE f.user_id = ? ORDER BY f.id DESC", userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch favorites"})
		return
	}
	defer rows.Close()

	favorites := []*models.Favorite{}
	for rows.Next() {
		fav, err := scanFavorite(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to scan favorite"})
			return
		}
		favorites = append(favorites, fav)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch favorites"})
		return
	}

	c.JSON(http.StatusOK, favorites)
}

// FavoriteInput defines the JSON body for favorite create/toggle.
type FavoriteInput struct {
	UserID    *int64 `json:"user_id"`
	ProductID int64  `json:"product_id" binding:"required"`
}

func (h *Handlers) resolveFavoriteInput(c *gin.Context) (int64, int64, bool) {
	p := principal(c)

	var input FavoriteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return 0, 0, false
	}

	userID := p.ID
	if input.UserID != nil {
		userID = *input.UserID
	}
	if !auth.CanAct(p, userID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own favorites."})
		return 0, 0, false
	}

	var exists bool
	if err := h.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)", input.ProductID).Scan(&exists); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to check product"})
		return 0, 0, false
	}
	if !exists {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The selected product does not exist."})
		return 0, 0, false
	}

	return userID, input.ProductID, true
}

// AddFavorite is the handler for POST /api/favorites
// Re-adding an existing favorite returns the existing row.
func (h *Handlers) AddFavorite(c *gin.Context) {
	userID, productID, ok := h.resolveFavoriteInput(c)
	if !ok {
		return
	}

	var existingID int64
	err := h.DB.QueryRow(
		"SELECT id FROM favorites WHERE user_id = ? AND product_id = ?", userID, productID,
	).Scan(&existingID)
	switch {
	case err == nil:
		fav, err := h.favoriteByID(existingID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load favorite"})
			return
		}
		c.JSON(http.StatusOK, fav)
	case errors.Is(err, sql.ErrNoRows):
		result, err := h.DB.Exec(
			"INSERT INTO favorites (user_id, product_id, created_at) VALUES (?, ?, ?)",
			userID, productID, time.Now(),
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add favorite"})
			return
		}
		id, err := result.LastInsertId()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add favorite"})
			return
		}
		fav, err := h.favoriteByID(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load favorite"})
			return
		}
		c.JSON(http.StatusCreated, fav)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to check favorite"})
	}
}

// ToggleFavorite is the handler for POST /api/favorites/toggle
func (h *Handlers) ToggleFavorite(c *gin.Context) {
	userID, productID, ok := h.resolveFavoriteInput(c)
	if !ok {
		return
	}

	var existingID int64
	err := h.DB.QueryRow(
		"SELECT id FROM favorites WHERE user_id = ? AND product_id = ?", userID, productID,
	).Scan(&existingID)
	switch {
	case err == nil:
		if _, err := h.DB.Exec("DELETE FROM favorites WHERE id = ?", existingID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to remove favorite"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Removed from favorites", "isFavorite": false})
	case errors.Is(err, sql.ErrNoRows):
		if _, err := h.DB.Exec(
			"INSERT INTO favorites (user_id, product_id, created_at) VALUES (?, ?, ?)",
			userID, productID, time.Now(),
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add favorite"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Added to favorites", "isFavorite": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to check favorite"})
	}
}

// DeleteFavorite is the handler for DELETE /api/favorites/:id
func (h *Handlers) DeleteFavorite(c *gin.Context) {
	p := principal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Favorite not found"})
		return
	}

	fav, err := h.favoriteByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Favorite not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch favorite"})
		return
	}
	if !auth.CanAct(p, fav.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own favorites."})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM favorites WHERE id = ?", id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to remove favorite"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Favorite removed"})
}
