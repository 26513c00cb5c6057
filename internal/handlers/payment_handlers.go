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
// --- Payment Handlers ---
//

const paymentColumns = "id, order_id, payment_method, payment_status, paid_at"

func scanPayment(row rowScanner) (*models.Payment, error) {
	var pay models.Payment
	err := row.Scan(&pay.ID, &pay.OrderID, &pay.PaymentMethod, &pay.PaymentStatus, &pay.PaidAt)
	if err != nil {
		return nil, err
	}
	return &pay, nil
}

func (h *Handlers) paymentByID(id int64) (*models.Payment, error) {
	row := h.DB.QueryRow("SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)
	return scanPayment(row)
}

func (h *Handlers) orderOwner(orderID int64) (int64, error) {
	var userID int64
	err := h.DB.QueryRow("SELECT user_id FROM orders WHERE id = ?", orderID).Scan(&userID)
	return userID, err
}

// ListPayments is the handler for GET /api/payments
// Admins see every payment, everyone else sees payments for their own orders.
func (h *Handlers) ListPayments(c *gin.Context) {
	p := principal(c)

	query := `SELECT pmt.id, pmt.order_id, pmt.payment_method, pmt.payment_status, pmt.paid_at
		FROM payments pmt JOIN orders o ON pmt.order_id = o.id
		WHERE o.user_id = ? ORDER BY pmt.id DESC`
	args := []any{p.ID}
	if p.IsAdmin {
		query = "SELECT " + paymentColumns + " FROM payments ORDER BY id DESC"
		args = nil
	}

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch payments"})
		return
	}
	defer rows.Close()

	payments := []*models.Payment{}
	for rows.Next() {
		pay, err := scanPayment(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to scan payment"})
			return
		}
		payments = append(payments, pay)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}

// GetPayment is the handler for GET /api/payments/:id
func (h *Handlers) GetPayment(c *gin.Context) {
	p := principal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Payment not found"})
		return
	}

	pay, err := h.paymentByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch payment"})
		return
	}

	owner, err := h.orderOwner(pay.OrderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch payment"})
		return
	}
	if !auth.CanAct(p, owner) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own payments."})
		return
	}

	c.JSON(http.StatusOK, pay)
}

// PaymentInput defines the JSON body for payment create/update.
type PaymentInput struct {
	OrderID       *int64  `json:"order_id"`
	PaymentMethod *string `json:"payment_method" binding:"omitempty,max=50"`
	PaymentStatus *string `json:"payment_status" binding:"omitempty,oneof=pending paid failed refunded"`
	PaidAt        *string `json:"paid_at"`
}

// parsePaidAt accepts the timestamp formats clients actually send.
func parsePaidAt(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized paid_at format")
}

// CreatePayment is the handler for POST /api/payments
// An order can have at most one payment; the unique key on order_id
// enforces that under concurrency.
func (h *Handlers) CreatePayment(c *gin.Context) {
	p := principal(c)

	var input PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}
	if input.OrderID == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The order_id field is required."})
		return
	}

	owner, err := h.orderOwner(*input.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch order"})
		return
	}
	if !auth.CanAct(p, owner) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only create payment for your own order."})
		return
	}

	var paidAt *time.Time
	if input.PaidAt != nil && *input.PaidAt != "" {
		t, err := parsePaidAt(*input.PaidAt)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The paid_at field must be a valid date."})
			return
		}
		paidAt = &t
	}

	result, err := h.DB.Exec(
		"INSERT INTO payments (order_id, payment_method, payment_status, paid_at) VALUES (?, ?, ?, ?)",
		*input.OrderID, input.PaymentMethod, input.PaymentStatus, paidAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "A payment already exists for this order."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create payment"})
		return
	}

	id, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create payment"})
		return
	}

	pay, err := h.paymentByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load payment"})
		return
	}
	c.JSON(http.StatusCreated, pay)
}

// UpdatePayment is the handler for PUT /api/payments/:id (admin only)
func (h *Handlers) UpdatePayment(c *gin.Context) {
	p := principal(c)
	if !p.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. Admin access required."})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Payment not found"})
		return
	}

	pay, err := h.paymentByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch payment"})
		return
	}

	var input PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	if input.PaymentMethod != nil {
		pay.PaymentMethod = input.PaymentMethod
	}
	if input.PaymentStatus != nil {
		pay.PaymentStatus = input.PaymentStatus
	}
	if input.PaidAt != nil {
		if *input.PaidAt == "" {
			pay.PaidAt = nil
		} else {
			t, err := parsePaidAt(*input.PaidAt)
			if err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The paid_at field must be a valid date."})
				return
			}
			pay.PaidAt = &t
		}
	}

	_, err = h.DB.Exec(
		"UPDATE payments SET payment_method = ?, payment_status = ?, paid_at = ? WHERE id = ?",
		pay.PaymentMethod, pay.PaymentStatus, pay.PaidAt, id,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update payment"})
		return
	}

	fresh, err := h.paymentByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load payment"})
		return
	}
	c.JSON(http.StatusOK, fresh)
}

// DeletePayment is the handler for DELETE /api/payments/:id (admin only)
func (h *Handlers) DeletePayment(c *gin.Context) {
	p := principal(c)
	if !p.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. Admin access required."})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Payment not found"})
		return
	}

	result, err := h.DB.Exec("DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete payment"})
		return
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Payment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted"})
}
