package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lustra-app/lustra-golang/internal/auth"
	"github.com/lustra-app/lustra-golang/internal/checkout"
	"github.com/lustra-app/lustra-golang/internal/models"
)

// memStore implements checkout.Store in memory with a real per-product lock,
// so the engine's locking discipline can be exercised by concurrent tests.
type memStore struct {
	mu       sync.Mutex
	products map[int64]*memProduct
	nextID   int64
	orders   []models.Order
	items    []models.OrderItem
}

type memProduct struct {
	mu    sync.Mutex
	stock int
	price float64
}

func newMemStore() *memStore {
	return &memStore{products: make(map[int64]*memProduct)}
}

func (s *memStore) addProduct(id int64, stock int, price float64) {
	s.products[id] = &memProduct{stock: stock, price: price}
}

func (s *memStore) stockOf(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].stock
}

func (s *memStore) Begin(_ context.Context) (checkout.Tx, error) {
	return &memTx{
		store:  s,
		locked: make(map[int64]*memProduct),
		deltas: make(map[int64]int),
	}, nil
}

type memTx struct {
	store     *memStore
	locked    map[int64]*memProduct
	lockOrder []*memProduct
	deltas    map[int64]int
	orders    []models.Order
	items     []models.OrderItem
	done      bool
}

func (t *memTx) LockProduct(_ context.Context, productID int64) (checkout.LockedProduct, error) {
	t.store.mu.Lock()
	p, ok := t.store.products[productID]
	t.store.mu.Unlock()
	if !ok {
		return checkout.LockedProduct{}, checkout.ErrProductNotFound
	}
	if _, held := t.locked[productID]; !held {
		p.mu.Lock()
		t.locked[productID] = p
		t.lockOrder = append(t.lockOrder, p)
	}
	// Re-reads within the same tx see this tx's own decrements.
	return checkout.LockedProduct{
		ID:    productID,
		Stock: p.stock - t.deltas[productID],
		Price: p.price,
	}, nil
}

func (t *memTx) DecrementStock(_ context.Context, productID int64, quantity int) error {
	p, held := t.locked[productID]
	if !held {
		return errors.New("decrement without lock")
	}
	if p.stock-t.deltas[productID] < quantity {
		return errors.New("stock decrement rejected")
	}
	t.deltas[productID] += quantity
	return nil
}

func (t *memTx) CreateOrder(_ context.Context, order *models.Order) (int64, error) {
	t.store.mu.Lock()
	t.store.nextID++
	id := t.store.nextID
	t.store.mu.Unlock()
	o := *order
	o.ID = id
	t.orders = append(t.orders, o)
	return id, nil
}

func (t *memTx) CreateOrderItem(_ context.Context, item *models.OrderItem) error {
	t.items = append(t.items, *item)
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.store.mu.Lock()
	for id, delta := range t.deltas {
		t.store.products[id].stock -= delta
	}
	t.store.orders = append(t.store.orders, t.orders...)
	t.store.items = append(t.store.items, t.items...)
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *memTx) release() {
	t.done = true
	for _, p := range t.lockOrder {
		p.mu.Unlock()
	}
	t.lockOrder = nil
}

// mockNotifier records post-commit notifications and can be made to fail.
type mockNotifier struct {
	mu      sync.Mutex
	userIDs []int64
	orders  []int64
	err     error
}

func (m *mockNotifier) OrderPlaced(_ context.Context, userID, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userIDs = append(m.userIDs, userID)
	m.orders = append(m.orders, orderID)
	return m.err
}

func TestPlaceOrder_ComputesTotalFromCurrentPrices(t *testing.T) {
	store := newMemStore()
	store.addProduct(1, 10, 19.99)
	store.addProduct(2, 5, 4.50)
	engine := checkout.NewEngine(store, nil)

	order, err := engine.PlaceOrder(context.Background(), auth.Principal{ID: 7}, checkout.Request{
		Items: []checkout.ItemRequest{
			{ProductID: 2, Quantity: 2},
			{ProductID: 1, Quantity: 3},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), order.UserID)
	assert.Equal(t, "pending", order.Status)
	assert.InDelta(t, 3*19.99+2*4.50, order.Total, 1e-9)

	require.Len(t, order.Items, 2)
	// Items are processed in ascending product id order.
	assert.Equal(t, int64(1), order.Items[0].ProductID)
	assert.InDelta(t, 19.99, order.Items[0].Price, 1e-9)
	assert.Equal(t, int64(2), order.Items[1].ProductID)
	assert.InDelta(t, 4.50, order.Items[1].Price, 1e-9)

	assert.Equal(t, 7, store.stockOf(1))
	assert.Equal(t, 3, store.stockOf(2))
}

func TestPlaceOrder_ValidationFailures(t *testing.T) {
	store := newMemStore()
	store.addProduct(1, 10, 5.00)
	engine := checkout.NewEngine(store, nil)
	p := auth.Principal{ID: 7}

	var ve *checkout.ValidationError

	_, err := engine.PlaceOrder(context.Background(), p, checkout.Request{})
	require.ErrorAs(t, err, &ve)

	_, err = engine.PlaceOrder(context.Background(), p, checkout.Request{
		Items: []checkout.ItemRequest{{ProductID: 1, Quantity: 0}},
	})
	require.ErrorAs(t, err, &ve)

	_, err = engine.PlaceOrder(context.Background(), p, checkout.Request{
		Items: []checkout.ItemRequest{{ProductID: 999, Quantity: 1}},
	})
	require.ErrorAs(t, err, &ve)

	assert.Equal(t, 10, store.stockOf(1))
	assert.Empty(t, store.orders)
}

func TestPlaceOrder_InsufficientStockAbortsEverything(t *testing.T) {
	store := newMemStore()
	store.addProduct(1, 10, 2.00)
	store.addProduct(2, 1, 3.00)
	engine := checkout.NewEngine(store, nil)

	_, err := engine.PlaceOrder(context.Background(), auth.Principal{ID: 7}, checkout.Request{
		Items: []checkout.ItemRequest{
			{ProductID: 1, Quantity: 4},
			{ProductID: 2, Quantity: 5},
		},
	})

	var ise *checkout.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(2), ise.ProductID)
	assert.Equal(t, 5, ise.Requested)
	assert.Equal(t, 1, ise.Available)

	// The decrement for product 1 was rolled back with the rest.
	assert.Equal(t, 10, store.stockOf(1))
	assert.Equal(t, 1, store.stockOf(2))
	assert.Empty(t, store.orders)
	assert.Empty(t, store.items)
}

func TestPlaceOrder_DuplicateLinesShareTheSameStock(t *testing.T) {
	store := newMemStore()
	store.addProduct(1, 10, 2.00)
	engine := checkout.NewEngine(store, nil)

	// 6 + 6 exceeds stock 10 even though each line alone would fit.
	_, err := engine.PlaceOrder(context.Background(), auth.Principal{ID: 7}, checkout.Request{
		Items: []checkout.ItemRequest{
			{ProductID: 1, Quantity: 6},
			{ProductID: 1, Quantity: 6},
		},
	})

	var ise *checkout.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 10, store.stockOf(1))
}

func TestPlaceOrder_Authorization(t *testing.T) {
	store := newMemStore()
	store.addProduct(1, 10, 2.00)
	engine := checkout.NewEngine(store, nil)
	items := []checkout.ItemRequest{{ProductID: 1, Quantity: 1}}

	_, err := engine.PlaceOrder(context.Background(), auth.Principal{ID: 7}, checkout.Request{
		UserID: 8,
		Items:  items,
	})
	require.ErrorIs(t, err, checkout.ErrForbidden)
	assert.Equal(t, 10, store.stockOf(1))
	assert.Empty(t, store.orders)

	order, err := engine.PlaceOrder(context.Background(), auth.Principal{ID: 1, IsAdmin: true}, checkout.Request{
		UserID: 8,
		Items:  items,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), order.UserID)
}

func TestPlaceOrder_CallerStatusAndFieldsKept(t *testing.T) {
	store := newMemStore()
	store.addProduct(1, 10, 2.00)
	engine := checkout.NewEngine(store, nil)

	method := "card"
	address := "1 Main St"
	order, err := engine.PlaceOrder(context.Background(), auth.Principal{ID: 7}, checkout.Request{
		Status:          "processing",
		PaymentMethod:   &method,
		ShippingAddress: &address,
		Items:           []checkout.ItemRequest{{ProductID: 1, Quantity: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, "processing", order.Status)
	require.NotNil(t, order.PaymentMethod)
	assert.Equal(t, "card", *order.PaymentMethod)
	require.NotNil(t, order.ShippingAddress)
	assert.Equal(t, "1 Main St", *order.ShippingAddress)
}

func TestPlaceOrder_NotifierFailureDoesNotFailTheOrder(t *testing.T) {
	store := newMemStore()
	store.addProduct(1, 10, 2.00)
	notifier := &mockNotifier{err: errors.New("sink unavailable")}
	engine := checkout.NewEngine(store, notifier)

	order, err := engine.PlaceOrder(context.Background(), auth.Principal{ID: 7}, checkout.Request{
		Items: []checkout.ItemRequest{{ProductID: 1, Quantity: 2}},
	})

	require.NoError(t, err)
	assert.Equal(t, 8, store.stockOf(1))
	require.Len(t, notifier.orders, 1)
	assert.Equal(t, order.ID, notifier.orders[0])
	assert.Equal(t, int64(7), notifier.userIDs[0])
}

func TestPlaceOrder_ConcurrentSameProduct(t *testing.T) {
	store := newMemStore()
	store.addProduct(1, 10, 2.00)
	engine := checkout.NewEngine(store, nil)

	// stock=10, two concurrent requests each ordering 6: exactly one may win.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.PlaceOrder(context.Background(), auth.Principal{ID: int64(i + 1)}, checkout.Request{
				Items: []checkout.ItemRequest{{ProductID: 1, Quantity: 6}},
			})
		}(i)
	}
	wg.Wait()

	var successes, shortages int
	for _, err := range errs {
		var ise *checkout.InsufficientStockError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &ise):
			shortages++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, shortages)
	assert.Equal(t, 4, store.stockOf(1))
}

func TestPlaceOrder_ConcurrentFanOutNeverOversells(t *testing.T) {
	const (
		stock    = 10
		quantity = 3
		attempts = 8
	)
	store := newMemStore()
	store.addProduct(1, stock, 1.00)
	engine := checkout.NewEngine(store, nil)

	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.PlaceOrder(context.Background(), auth.Principal{ID: int64(i + 1)}, checkout.Request{
				Items: []checkout.ItemRequest{{ProductID: 1, Quantity: quantity}},
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			var ise *checkout.InsufficientStockError
			require.ErrorAs(t, err, &ise)
		}
	}

	assert.Equal(t, stock/quantity, successes)
	assert.Equal(t, stock-successes*quantity, store.stockOf(1))
	assert.GreaterOrEqual(t, store.stockOf(1), 0)
}
