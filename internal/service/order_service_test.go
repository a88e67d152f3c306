package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"library-service/internal/models"
	"library-service/internal/session"
	"library-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory implementation of the checkout persistence
// boundary. Per-publication mutexes emulate row locks: a transaction holds
// every lock it took until Commit or Rollback, so concurrent checkouts on
// the same publication serialize exactly like FOR UPDATE rows.
type memStore struct {
	mu     sync.Mutex
	stock  map[int64]int
	orders map[string]*models.Order
	lines  map[int64][]models.OrderLine
	locks  map[int64]*sync.Mutex
	nextID int64

	failOn string // inject an error at the named step
}

func newMemStore() *memStore {
	return &memStore{
		stock:  make(map[int64]int),
		orders: make(map[string]*models.Order),
		lines:  make(map[int64][]models.OrderLine),
		locks:  make(map[int64]*sync.Mutex),
	}
}

func (m *memStore) addPublication(id int64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[id] = stock
	m.locks[id] = &sync.Mutex{}
}

func (m *memStore) stockOf(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[id]
}

func (m *memStore) orderByNumber(number string) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[number]
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) BeginCheckout(ctx context.Context) (store.CheckoutTx, error) {
	if m.failOn == "begin" {
		return nil, &models.PersistenceError{Op: "BeginCheckout", Err: errors.New("injected")}
	}
	return &memTx{store: m, staged: make(map[int64]int), held: make(map[int64]bool)}, nil
}

type memTx struct {
	store  *memStore
	staged map[int64]int // publication id -> pending decrement
	held   map[int64]bool
	order  *models.Order
	lines  []models.OrderLine
	done   bool
}

func (t *memTx) lock(id int64) error {
	if t.held[id] {
		return nil
	}
	t.store.mu.Lock()
	l, ok := t.store.locks[id]
	t.store.mu.Unlock()
	if !ok {
		return fmt.Errorf("publication %d: %w", id, models.ErrNotFound)
	}
	l.Lock()
	t.held[id] = true
	return nil
}

func (t *memTx) unlockAll() {
	for id := range t.held {
		t.store.mu.Lock()
		l := t.store.locks[id]
		t.store.mu.Unlock()
		l.Unlock()
	}
	t.held = make(map[int64]bool)
}

func (t *memTx) StockForUpdate(ctx context.Context, publicationID int64) (int, error) {
	if err := t.lock(publicationID); err != nil {
		return 0, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.stock[publicationID] - t.staged[publicationID], nil
}

func (t *memTx) InsertOrder(ctx context.Context, order *models.Order) error {
	if t.store.failOn == "insert_order" {
		return &models.PersistenceError{Op: "InsertOrder", Err: errors.New("injected")}
	}
	t.store.mu.Lock()
	t.store.nextID++
	order.ID = t.store.nextID
	t.store.mu.Unlock()
	order.CreatedAt = time.Now()
	t.order = order
	return nil
}

func (t *memTx) InsertOrderLine(ctx context.Context, line *models.OrderLine) error {
	if t.store.failOn == "insert_line" {
		return &models.PersistenceError{Op: "InsertOrderLine", Err: errors.New("injected")}
	}
	t.lines = append(t.lines, *line)
	return nil
}

func (t *memTx) DecrementStock(ctx context.Context, publicationID int64, quantity int) error {
	if t.store.failOn == "decrement" {
		return &models.PersistenceError{Op: "DecrementStock", Err: errors.New("injected")}
	}
	if err := t.lock(publicationID); err != nil {
		return err
	}
	t.store.mu.Lock()
	available := t.store.stock[publicationID] - t.staged[publicationID]
	t.store.mu.Unlock()
	if available < quantity {
		return &models.InsufficientStockError{
			PublicationID: publicationID,
			Requested:     quantity,
			Available:     available,
		}
	}
	t.staged[publicationID] += quantity
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	if t.store.failOn == "commit" {
		t.done = true
		t.unlockAll()
		return &models.PersistenceError{Op: "Commit", Err: errors.New("injected")}
	}
	t.done = true
	t.store.mu.Lock()
	for id, qty := range t.staged {
		t.store.stock[id] -= qty
	}
	if t.order != nil {
		t.store.orders[t.order.OrderNumber] = t.order
		t.store.lines[t.order.ID] = t.lines
	}
	t.store.mu.Unlock()
	t.unlockAll()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.unlockAll()
	return nil
}

func newTestSession(t *testing.T, user *models.User) *session.Session {
	t.Helper()
	sess, err := session.NewManager(nil, time.Minute).Create(context.Background(), user)
	require.NoError(t, err)
	return sess
}

func testUser() *models.User {
	return &models.User{ID: 42, Email: "reader@library.example", Role: models.RoleUser}
}

func TestCheckoutEndToEnd(t *testing.T) {
	ms := newMemStore()
	ms.addPublication(1, 10)
	svc := NewOrderService(ms, nil, nil, time.Second)

	sess := newTestSession(t, testUser())
	pub := &models.Publication{ID: 1, Title: "I, Robot", Price: 100, StockQuantity: 10}
	require.NoError(t, sess.Cart.Add(pub, 3))
	require.Equal(t, int64(300), sess.Cart.Total())

	order, err := svc.Checkout(context.Background(), sess, "card", "221B Baker St")
	require.NoError(t, err)

	assert.Equal(t, int64(300), order.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, int64(42), order.UserID)
	assert.NotEmpty(t, order.OrderNumber)
	assert.Equal(t, 7, ms.stockOf(1))
	assert.True(t, sess.Cart.IsEmpty())
}

func TestCheckoutTotalMatchesLines(t *testing.T) {
	ms := newMemStore()
	ms.addPublication(1, 10)
	ms.addPublication(2, 10)
	svc := NewOrderService(ms, nil, nil, time.Second)

	sess := newTestSession(t, testUser())
	require.NoError(t, sess.Cart.Add(&models.Publication{ID: 1, Title: "A", Price: 450, StockQuantity: 10}, 2))
	require.NoError(t, sess.Cart.Add(&models.Publication{ID: 2, Title: "B", Price: 1200, StockQuantity: 10}, 1))

	order, err := svc.Checkout(context.Background(), sess, "card", "")
	require.NoError(t, err)

	lines := ms.lines[order.ID]
	require.Len(t, lines, 2)

	var sum int64
	for _, l := range lines {
		sum += int64(l.Quantity) * l.UnitPrice
		assert.Equal(t, order.ID, l.OrderID)
	}
	assert.Equal(t, order.TotalAmount, sum)
}

func TestCheckoutDecrementsOnlyOrderedStock(t *testing.T) {
	ms := newMemStore()
	ms.addPublication(1, 10)
	ms.addPublication(2, 8)
	svc := NewOrderService(ms, nil, nil, time.Second)

	sess := newTestSession(t, testUser())
	require.NoError(t, sess.Cart.Add(&models.Publication{ID: 1, Title: "A", Price: 100, StockQuantity: 10}, 4))

	_, err := svc.Checkout(context.Background(), sess, "cash", "")
	require.NoError(t, err)

	assert.Equal(t, 6, ms.stockOf(1))
	assert.Equal(t, 8, ms.stockOf(2), "untouched publication must keep its stock")
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := NewOrderService(newMemStore(), nil, nil, time.Second)
	sess := newTestSession(t, testUser())

	_, err := svc.Checkout(context.Background(), sess, "card", "")
	assert.ErrorIs(t, err, models.ErrEmptyCart)
}

func TestCheckoutUnauthenticated(t *testing.T) {
	svc := NewOrderService(newMemStore(), nil, nil, time.Second)

	_, err := svc.Checkout(context.Background(), nil, "card", "")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = svc.Checkout(context.Background(), &session.Session{}, "card", "")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestCheckoutStockChangedAfterAdd(t *testing.T) {
	ms := newMemStore()
	ms.addPublication(1, 2)
	svc := NewOrderService(ms, nil, nil, time.Second)

	sess := newTestSession(t, testUser())
	pub := &models.Publication{ID: 1, Title: "War and Peace", Price: 800, StockQuantity: 2}
	require.NoError(t, sess.Cart.Add(pub, 2))

	// Stock drops between cart add and checkout; the advisory check gave no
	// protection and the authoritative re-check must catch it.
	ms.mu.Lock()
	ms.stock[1] = 1
	ms.mu.Unlock()

	_, err := svc.Checkout(context.Background(), sess, "card", "")
	require.Error(t, err)

	var ise *models.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(1), ise.PublicationID)
	assert.Equal(t, "War and Peace", ise.Title)

	assert.Equal(t, 1, ms.stockOf(1), "failed checkout must not touch stock")
	assert.Equal(t, 1, sess.Cart.Len(), "failed checkout must leave the cart for retry")
	assert.Equal(t, 0, ms.orderCount())
}

func TestCheckoutAtomicOnInjectedFailure(t *testing.T) {
	for _, step := range []string{"insert_order", "insert_line", "decrement", "commit"} {
		t.Run(step, func(t *testing.T) {
			ms := newMemStore()
			ms.addPublication(1, 10)
			ms.failOn = step
			svc := NewOrderService(ms, nil, nil, time.Second)

			sess := newTestSession(t, testUser())
			require.NoError(t, sess.Cart.Add(&models.Publication{ID: 1, Title: "A", Price: 100, StockQuantity: 10}, 3))

			_, err := svc.Checkout(context.Background(), sess, "card", "")
			require.Error(t, err)
			assert.True(t, models.IsPersistence(err))

			assert.Equal(t, 0, ms.orderCount(), "no order may survive a failed checkout")
			assert.Equal(t, 10, ms.stockOf(1), "stock must be unchanged after rollback")
			assert.Equal(t, 1, sess.Cart.Len())
		})
	}
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	ms := newMemStore()
	ms.addPublication(1, 5)
	svc := NewOrderService(ms, nil, nil, 5*time.Second)

	pub := &models.Publication{ID: 1, Title: "Scarce", Price: 100, StockQuantity: 5}

	sessions := make([]*session.Session, 2)
	for i := range sessions {
		sessions[i] = newTestSession(t, &models.User{ID: int64(i + 1), Role: models.RoleUser})
		require.NoError(t, sessions[i].Cart.Add(pub, 5))
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(context.Background(), sessions[i], "card", "")
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case models.IsInsufficientStock(err):
			insufficient++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}

	assert.Equal(t, 1, ok, "exactly one concurrent checkout must win")
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 0, ms.stockOf(1), "stock must end at zero, never negative")
	assert.Equal(t, 1, ms.orderCount())
}

func TestOrderNumbersDistinctPerUser(t *testing.T) {
	ms := newMemStore()
	ms.addPublication(1, 10)
	svc := NewOrderService(ms, nil, nil, time.Second)

	sess := newTestSession(t, testUser())
	pub := &models.Publication{ID: 1, Title: "A", Price: 100, StockQuantity: 10}

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		require.NoError(t, sess.Cart.Add(pub, 1))
		order, err := svc.Checkout(context.Background(), sess, "card", "")
		require.NoError(t, err)
		assert.False(t, seen[order.OrderNumber], "order number %s repeated", order.OrderNumber)
		seen[order.OrderNumber] = true
	}
}
