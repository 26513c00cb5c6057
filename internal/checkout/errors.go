package checkout

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden means the acting principal may not create an order for the
// requested target user.
var ErrForbidden = errors.New("forbidden")

// ErrProductNotFound is returned by a Tx when a locked read finds no row.
var ErrProductNotFound = errors.New("product not found")

// ErrConflict marks a deadlock or lock-wait timeout inside the atomic unit.
// Nothing was persisted; the caller may safely retry.
var ErrConflict = errors.New("transient conflict, request can be retried")

// ValidationError is malformed caller input: empty item list, quantity < 1,
// or a product id that does not exist. No side effects occurred.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError aborts the entire transaction: no partial order is
// created and no stock anywhere is decremented.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product %d", e.ProductID)
}

// translateMySQLErr maps MySQL deadlock (1213) and lock wait timeout (1205)
// to ErrConflict so callers can distinguish retryable failures.
func translateMySQLErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == 1213 || me.Number == 1205) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
