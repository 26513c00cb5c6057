package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lustra-app/lustra-golang/internal/auth"
	"github.com/lustra-app/lustra-golang/internal/models"
	"github.com/lustra-app/lustra-golang/internal/notify"
)

//
// --- Notification Handlers ---
//

func (h *Handlers) notificationByID(id int64) (*models.Notification, error) {
	var n models.Notification
	err := h.DB.QueryRow(
		"SELECT id, user_id, title, message, type, is_read, created_at FROM notifications WHERE id = ?", id,
	).Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotifications is the handler for GET /api/notifications/user/:userId
func (h *Handlers) ListNotifications(c *gin.Context) {
	p := principal(c)

	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if !auth.CanAct(p, userID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own notifications."})
		return
	}

	rows, err := h.DB.Query(
		"SELECT id, user_id, title, message, type, is_read, created_at FROM notifications WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch notifications"})
		return
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to scan notification"})
			return
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// NotificationInput defines the JSON body for POST /api/notifications
type NotificationInput struct {
	UserID  *int64 `json:"user_id"`
	Title   string `json:"title" binding:"required,max=255"`
	Message string `json:"message" binding:"required"`
	Type    string `json:"type" binding:"omitempty"`
	IsRead  bool   `json:"is_read"`
}

// CreateNotification is the handler for POST /api/notifications
func (h *Handlers) CreateNotification(c *gin.Context) {
	p := principal(c)

	var input NotificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}
	if input.Type != "" && !notify.ValidType(input.Type) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The selected type is invalid."})
		return
	}

	userID := p.ID
	if input.UserID != nil {
		userID = *input.UserID
	}
	if !auth.CanAct(p, userID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own notifications."})
		return
	}

	n := &models.Notification{
		UserID:  userID,
		Title:   input.Title,
		Message: input.Message,
		Type:    input.Type,
		IsRead:  input.IsRead,
	}
	if err := h.Notify.Create(c.Request.Context(), n); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create notification"})
		return
	}

	c.JSON(http.StatusCreated, n)
}

// MarkAsRead is the handler for PATCH /api/notifications/:id/read
func (h *Handlers) MarkAsRead(c *gin.Context) {
	p := principal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Notification not found"})
		return
	}

	n, err := h.notificationByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch notification"})
		return
	}
	if !auth.CanAct(p, n.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own notifications."})
		return
	}

	if _, err := h.DB.Exec("UPDATE notifications SET is_read = 1 WHERE id = ?", id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update notification"})
		return
	}
	n.IsRead = true

	c.JSON(http.StatusOK, n)
}

// DeleteNotification is the handler for DELETE /api/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	p := principal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Notification not found"})
		return
	}

	n, err := h.notificationByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch notification"})
		return
	}
	if !auth.CanAct(p, n.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden. You can only access your own notifications."})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM notifications WHERE id = ?", id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
