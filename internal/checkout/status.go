package checkout

// Status is an order's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// validNext lists every allowed transition. delivered and cancelled are
// terminal. Admins may jump ahead (e.g. pending -> delivered); cancellation
// is impossible once an order has shipped. Cancelling does not restock.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusShipped: true, StatusDelivered: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusDelivered: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// CanCancel reports whether an owner (non-admin) may still cancel. Owners may
// only request cancellation, and only before the order ships.
func CanCancel(from Status) bool {
	return from == StatusPending || from == StatusProcessing
}
