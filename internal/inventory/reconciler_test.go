package inventory_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/orderly/internal/domain"
	"github.com/vladyslavplus/orderly/internal/event"
	"github.com/vladyslavplus/orderly/internal/inventory"
	"github.com/vladyslavplus/orderly/internal/repository"
)

func TestOrderCreatedDecrementsStock(t *testing.T) {
	stock := newStockRepo(map[int64]int{1: 10, 2: 4})
	reconciler := inventory.NewReconciler(stock, nil, zap.NewNop())

	err := reconciler.HandleOrderCreated(context.Background(), event.OrderCreated{
		OrderID: 100,
		Items: []event.OrderItem{
			{ProductID: 1, Quantity: 3},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 7, stock.quantity(1))
	require.Equal(t, 3, stock.quantity(2))
}

func TestOrderCreatedClampsAtZero(t *testing.T) {
	stock := newStockRepo(map[int64]int{1: 3})
	reconciler := inventory.NewReconciler(stock, nil, zap.NewNop())

	err := reconciler.HandleOrderCreated(context.Background(), event.OrderCreated{
		OrderID: 100,
		Items:   []event.OrderItem{{ProductID: 1, Quantity: 5}},
	})
	require.NoError(t, err)
	require.Equal(t, 0, stock.quantity(1))
}

func TestOrderCreatedSkipsMissingProduct(t *testing.T) {
	stock := newStockRepo(map[int64]int{1: 10})
	reconciler := inventory.NewReconciler(stock, nil, zap.NewNop())

	err := reconciler.HandleOrderCreated(context.Background(), event.OrderCreated{
		OrderID: 100,
		Items: []event.OrderItem{
			{ProductID: 99, Quantity: 2},
			{ProductID: 1, Quantity: 4},
		},
	})
	require.NoError(t, err)
	// The unknown line is skipped; the known one still applies.
	require.Equal(t, 6, stock.quantity(1))
}

func TestOrderDeletedRestoresCancelledOrder(t *testing.T) {
	stock := newStockRepo(map[int64]int{1: 3})
	reconciler := inventory.NewReconciler(stock, nil, zap.NewNop())

	err := reconciler.HandleOrderDeleted(context.Background(), event.OrderDeleted{
		OrderID: 100,
		Status:  "cancelled",
		Items:   []event.OrderItem{{ProductID: 1, Quantity: 5}},
	})
	require.NoError(t, err)
	require.Equal(t, 8, stock.quantity(1))
}

func TestOrderDeletedIgnoresOtherStatuses(t *testing.T) {
	for _, status := range []string{"SHIPPED", "COMPLETED", "", "CANCEL"} {
		stock := newStockRepo(map[int64]int{1: 3})
		reconciler := inventory.NewReconciler(stock, nil, zap.NewNop())

		err := reconciler.HandleOrderDeleted(context.Background(), event.OrderDeleted{
			OrderID: 100,
			Status:  status,
			Items:   []event.OrderItem{{ProductID: 1, Quantity: 5}},
		})
		require.NoError(t, err)
		require.Equal(t, 3, stock.quantity(1), "status %q must not restock", status)
	}
}

func TestHandleRoutesByTopic(t *testing.T) {
	stock := newStockRepo(map[int64]int{1: 10})
	reconciler := inventory.NewReconciler(stock, nil, zap.NewNop())

	created, err := json.Marshal(event.OrderCreated{OrderID: 100, Items: []event.OrderItem{{ProductID: 1, Quantity: 2}}})
	require.NoError(t, err)
	require.NoError(t, reconciler.Handle(context.Background(), kafkago.Message{Topic: event.TopicOrderCreated, Value: created}))
	require.Equal(t, 8, stock.quantity(1))

	deleted, err := json.Marshal(event.OrderDeleted{OrderID: 100, Status: "CANCELLED", Items: []event.OrderItem{{ProductID: 1, Quantity: 2}}})
	require.NoError(t, err)
	require.NoError(t, reconciler.Handle(context.Background(), kafkago.Message{Topic: event.TopicOrderDeleted, Value: deleted}))
	require.Equal(t, 10, stock.quantity(1))

	require.Error(t, reconciler.Handle(context.Background(), kafkago.Message{Topic: "order.shipped", Value: created}))
	require.Error(t, reconciler.Handle(context.Background(), kafkago.Message{Topic: event.TopicOrderCreated, Value: []byte("{")}))
}

func TestGuardSuppressesDuplicates(t *testing.T) {
	stock := newStockRepo(map[int64]int{1: 10})
	guard := &memoryGuard{seen: make(map[string]bool)}
	reconciler := inventory.NewReconciler(stock, guard, zap.NewNop())

	evt := event.OrderCreated{OrderID: 100, Items: []event.OrderItem{{ProductID: 1, Quantity: 3}}}
	require.NoError(t, reconciler.HandleOrderCreated(context.Background(), evt))
	require.NoError(t, reconciler.HandleOrderCreated(context.Background(), evt))

	// The redelivery is suppressed, so only one decrement lands.
	require.Equal(t, 7, stock.quantity(1))
}

func TestGuardFailureDoesNotBlockApply(t *testing.T) {
	stock := newStockRepo(map[int64]int{1: 10})
	guard := &memoryGuard{err: errors.New("redis down")}
	reconciler := inventory.NewReconciler(stock, guard, zap.NewNop())

	evt := event.OrderCreated{OrderID: 100, Items: []event.OrderItem{{ProductID: 1, Quantity: 3}}}
	require.NoError(t, reconciler.HandleOrderCreated(context.Background(), evt))
	require.Equal(t, 7, stock.quantity(1))
}

// stockRepo is a quantity-only ProductRepository for reconciler tests.
type stockRepo struct {
	mu         sync.Mutex
	quantities map[int64]int
}

func newStockRepo(quantities map[int64]int) *stockRepo {
	return &stockRepo{quantities: quantities}
}

func (s *stockRepo) quantity(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantities[productID]
}

func (s *stockRepo) ApplyDeltas(ctx context.Context, deltas []repository.InventoryDelta) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var missing []int64
	for _, delta := range deltas {
		quantity, ok := s.quantities[delta.ProductID]
		if !ok {
			missing = append(missing, delta.ProductID)
			continue
		}
		quantity += delta.Delta
		if quantity < 0 {
			quantity = 0
		}
		s.quantities[delta.ProductID] = quantity
	}
	return missing, nil
}

func (s *stockRepo) GetByID(ctx context.Context, productID int64) (domain.Product, error) {
	return domain.Product{}, pgx.ErrNoRows
}

func (s *stockRepo) GetByName(ctx context.Context, name string) (domain.Product, error) {
	return domain.Product{}, pgx.ErrNoRows
}

func (s *stockRepo) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	return product, nil
}

func (s *stockRepo) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	return product, nil
}

func (s *stockRepo) Delete(ctx context.Context, productID int64) error { return nil }

type memoryGuard struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (g *memoryGuard) FirstDelivery(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}
