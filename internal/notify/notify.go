package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lustra-app/lustra-golang/internal/models"
)

// Notification types accepted by the sink.
const (
	TypePayment   = "payment"
	TypeOrder     = "order"
	TypePromotion = "promotion"
	TypeSystem    = "system"
)

// ValidType reports whether t is one of the accepted notification types.
func ValidType(t string) bool {
	switch t {
	case TypePayment, TypeOrder, TypePromotion, TypeSystem:
		return true
	}
	return false
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Emitter persists notifications. LegacySchema targets older deployments
// whose notifications table has no type column; the field is dropped there
// instead of failing the caller.
type Emitter struct {
	DB           execer
	LegacySchema bool
}

func NewEmitter(db *sql.DB, legacySchema bool) *Emitter {
	return &Emitter{DB: db, LegacySchema: legacySchema}
}

// Create inserts the notification and fills in its id and creation time.
func (e *Emitter) Create(ctx context.Context, n *models.Notification) error {
	if n.Type == "" {
		n.Type = TypeSystem
	}
	now := time.Now()

	var (
		result sql.Result
		err    error
	)
	if e.LegacySchema {
		result, err = e.DB.ExecContext(ctx, `
			INSERT INTO notifications (user_id, title, message, is_read, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			n.UserID, n.Title, n.Message, n.IsRead, now,
		)
	} else {
		result, err = e.DB.ExecContext(ctx, `
			INSERT INTO notifications (user_id, title, message, type, is_read, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			n.UserID, n.Title, n.Message, n.Type, n.IsRead, now,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	n.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}
	n.CreatedAt = now
	return nil
}

// OrderPlaced records the post-checkout notification. Callers treat failures
// as best-effort: the committed order is never rolled back because of them.
func (e *Emitter) OrderPlaced(ctx context.Context, userID, orderID int64) error {
	return e.Create(ctx, &models.Notification{
		UserID:  userID,
		Title:   "Order Placed",
		Message: fmt.Sprintf("Your order #%d has been placed successfully.", orderID),
		Type:    TypeOrder,
	})
}
