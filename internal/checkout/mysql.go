package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lustra-app/lustra-golang/internal/models"
)

// SQLStore implements Store on top of MySQL. Checkout transactions run at
// serializable isolation; product rows are locked with SELECT ... FOR UPDATE
// and decremented conditionally so stock can never go below zero.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to start checkout transaction: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) LockProduct(ctx context.Context, productID int64) (LockedProduct, error) {
	var lp LockedProduct
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, stock, price FROM products WHERE id = ? FOR UPDATE",
		productID,
	).Scan(&lp.ID, &lp.Stock, &lp.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LockedProduct{}, ErrProductNotFound
		}
		return LockedProduct{}, translateMySQLErr(err)
	}
	return lp, nil
}

func (t *sqlTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	// Conditional write: the stock >= ? guard backs up the locked read, so a
	// bug in the caller still cannot oversell.
	result, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?",
		quantity, productID, quantity,
	)
	if err != nil {
		return translateMySQLErr(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return fmt.Errorf("stock decrement rejected for product %d", productID)
	}
	return nil
}

func (t *sqlTx) CreateOrder(ctx context.Context, order *models.Order) (int64, error) {
	now := time.Now()
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (user_id, total, status, payment_method, shipping_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.UserID, order.Total, order.Status, order.PaymentMethod, order.ShippingAddress, now, now,
	)
	if err != nil {
		return 0, translateMySQLErr(err)
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	order.CreatedAt = now
	order.UpdatedAt = now
	return orderID, nil
}

func (t *sqlTx) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, price, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.OrderID, item.ProductID, item.Quantity, item.Price, time.Now(),
	)
	if err != nil {
		return translateMySQLErr(err)
	}
	item.ID, err = result.LastInsertId()
	return err
}

func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return translateMySQLErr(err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
