package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"github.com/lustra-app/lustra-golang/internal/models"
)

//
// --- Product Handlers ---
//

// Product reads are hot, so GetProduct is cache-aside with a short TTL.
const productCacheTTL = 5 * time.Minute

func productCacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

const productColumns = `p.id, p.category_id, p.name, p.slug, p.description, p.price, p.old_price,
	p.image, p.stock, p.rating, p.reviews_count, p.created_at, p.updated_at,
	c.id, c.name, c.description, c.created_at, c.updated_at`

const productJoin = "FROM products p JOIN categories c ON p.category_id = c.id"

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var cat models.Category
	err := row.Scan(
		&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.OldPrice,
		&p.Image, &p.Stock, &p.Rating, &p.ReviewsCount, &p.CreatedAt, &p.UpdatedAt,
		&cat.ID, &cat.Name, &cat.Description, &cat.CreatedAt, &cat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Category = &cat
	return &p, nil
}

func (h *Handlers) productByID(id int64) (*models.Product, error) {
	row := h.DB.QueryRow("SELECT "+productColumns+" "+productJoin+" WHERE p.id = ?", id)
	return scanProduct(row)
}

// ListProducts is the handler for GET /api/products
func (h *Handlers) ListProducts(c *gin.Context) {
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if err != nil || perPage < 1 || perPage > 100 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "per_page must be an integer between 1 and 100"})
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	var total int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM products").Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to count products"})
		return
	}

	rows, err := h.DB.Query(
		"SELECT "+productColumns+" "+productJoin+" ORDER BY p.id DESC LIMIT ? OFFSET ?",
		perPage, (page-1)*perPage,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch products"})
		return
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to scan product"})
			return
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    products,
		"page":    page,
		"perPage": perPage,
		"total":   total,
	})
}

// GetProduct is the handler for GET /api/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}

	// Cache errors are treated as misses; the read path never depends on redis.
	if cached, hit, err := h.Cache.Get(c.Request.Context(), productCacheKey(id)); err == nil && hit {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
		return
	}

	product, err := h.productByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch product"})
		return
	}

	body, err := json.Marshal(product)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to encode product"})
		return
	}
	if err := h.Cache.Set(c.Request.Context(), productCacheKey(id), string(body), productCacheTTL); err != nil {
		log.Printf("Failed to cache product %d: %v", id, err)
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (h *Handlers) invalidateProduct(c *gin.Context, id int64) {
	if err := h.Cache.Delete(c.Request.Context(), productCacheKey(id)); err != nil {
		log.Printf("Failed to invalidate product %d cache: %v", id, err)
	}
}

// ProductInput defines the JSON body for product create/update (admin only).
type ProductInput struct {
	CategoryID   *int64   `json:"category_id"`
	Name         *string  `json:"name" binding:"omitempty,max=255"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price" binding:"omitempty,min=0"`
	OldPrice     *float64 `json:"old_price" binding:"omitempty,min=0"`
	Image        *string  `json:"image" binding:"omitempty,max=255"`
	Stock        *int     `json:"stock" binding:"omitempty,min=0"`
	Rating       *float64 `json:"rating" binding:"omitempty,min=0,max=5"`
	ReviewsCount *int     `json:"reviews_count" binding:"omitempty,min=0"`
}

func (h *Handlers) categoryExists(id int64) (bool, error) {
	var exists bool
	err := h.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM categories WHERE id = ?)", id).Scan(&exists)
	return exists, err
}

// CreateProduct is the handler for POST /api/products (admin only)
func (h *Handlers) CreateProduct(c *gin.Context) {
	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}
	if input.CategoryID == nil || input.Name == nil || input.Price == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "category_id, name and price are required"})
		return
	}

	ok, err := h.categoryExists(*input.CategoryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to check category"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The selected category does not exist."})
		return
	}

	stock := 0
	if input.Stock != nil {
		stock = *input.Stock
	}
	rating := 0.0
	if input.Rating != nil {
		rating = *input.Rating
	}
	reviews := 0
	if input.ReviewsCount != nil {
		reviews = *input.ReviewsCount
	}

	now := time.Now()
	result, err := h.DB.Exec(`
		INSERT INTO products (category_id, name, slug, description, price, old_price, image, stock, rating, reviews_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		*input.CategoryID, *input.Name, slug.Make(*input.Name), input.Description, *input.Price,
		input.OldPrice, input.Image, stock, rating, reviews, now, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create product"})
		return
	}

	id, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create product"})
		return
	}
	h.invalidateProduct(c, id)

	product, err := h.productByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load product"})
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct is the handler for PUT /api/products/:id (admin only)
func (h *Handlers) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}

	product, err := h.productByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch product"})
		return
	}

	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	// Partial update: absent fields keep their current values.
	if input.CategoryID != nil {
		ok, err := h.categoryExists(*input.CategoryID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to check category"})
			return
		}
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The selected category does not exist."})
			return
		}
		product.CategoryID = *input.CategoryID
	}
	if input.Name != nil {
		product.Name = *input.Name
		product.Slug = slug.Make(*input.Name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.OldPrice != nil {
		product.OldPrice = input.OldPrice
	}
	if input.Image != nil {
		product.Image = input.Image
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Rating != nil {
		product.Rating = *input.Rating
	}
	if input.ReviewsCount != nil {
		product.ReviewsCount = *input.ReviewsCount
	}

	_, err = h.DB.Exec(`
		UPDATE products
		SET category_id = ?, name = ?, slug = ?, description = ?, price = ?, old_price = ?,
		    image = ?, stock = ?, rating = ?, reviews_count = ?, updated_at = ?
		WHERE id = ?`,
		product.CategoryID, product.Name, product.Slug, product.Description, product.Price,
		product.OldPrice, product.Image, product.Stock, product.Rating, product.ReviewsCount,
		time.Now(), id,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update product"})
		return
	}
	h.invalidateProduct(c, id)

	fresh, err := h.productByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load product"})
		return
	}
	c.JSON(http.StatusOK, fresh)
}

// DeleteProduct is the handler for DELETE /api/products/:id (admin only)
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}

	result, err := h.DB.Exec("DELETE FROM products WHERE id = ?", id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete product"})
		return
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}
	h.invalidateProduct(c, id)

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
