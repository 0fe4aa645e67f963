package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/orderly/internal/apperr"
	"github.com/vladyslavplus/orderly/internal/domain"
	"github.com/vladyslavplus/orderly/internal/event"
	"github.com/vladyslavplus/orderly/internal/repository"
	"github.com/vladyslavplus/orderly/internal/service"
)

func newCatalogFixture(t *testing.T) (*service.ProductService, *memoryProductRepo, *capturePublisher) {
	t.Helper()
	products := newMemoryProductRepo()
	publisher := &capturePublisher{}
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	return service.NewProductService(products, publisher, node, zap.NewNop()), products, publisher
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	catalog, _, publisher := newCatalogFixture(t)

	created, err := catalog.Create(ctx, service.CreateProductParams{
		Name:     "widget",
		Price:    9.99,
		Quantity: 5,
		Category: "tools",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	published := publisher.events()
	require.Len(t, published, 1)
	evt, ok := published[0].(event.ProductCreated)
	require.True(t, ok)
	require.Equal(t, "widget", evt.Name)
}

func TestCreateProductDuplicateName(t *testing.T) {
	ctx := context.Background()
	catalog, _, _ := newCatalogFixture(t)

	_, err := catalog.Create(ctx, service.CreateProductParams{Name: "widget", Price: 9.99})
	require.NoError(t, err)

	_, err = catalog.Create(ctx, service.CreateProductParams{Name: "widget", Price: 1.50})
	require.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestCreateProductValidation(t *testing.T) {
	ctx := context.Background()
	catalog, _, _ := newCatalogFixture(t)

	cases := []struct {
		name   string
		params service.CreateProductParams
	}{
		{"missing name", service.CreateProductParams{Price: 1}},
		{"zero price", service.CreateProductParams{Name: "widget", Price: 0}},
		{"negative quantity", service.CreateProductParams{Name: "widget", Price: 1, Quantity: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := catalog.Create(ctx, tc.params)
			require.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	ctx := context.Background()
	catalog, _, publisher := newCatalogFixture(t)

	created, err := catalog.Create(ctx, service.CreateProductParams{Name: "widget", Price: 9.99, Quantity: 5})
	require.NoError(t, err)
	publisher.reset()

	price := 12.50
	updated, err := catalog.Update(ctx, created.ID, service.UpdateProductParams{Price: &price})
	require.NoError(t, err)
	require.Equal(t, 12.50, updated.Price)
	require.Len(t, publisher.events(), 1)

	// No-op update publishes nothing.
	publisher.reset()
	_, err = catalog.Update(ctx, created.ID, service.UpdateProductParams{})
	require.NoError(t, err)
	require.Empty(t, publisher.events())

	badPrice := -1.0
	_, err = catalog.Update(ctx, created.ID, service.UpdateProductParams{Price: &badPrice})
	require.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))
}

func TestUpdateUnknownProduct(t *testing.T) {
	catalog, _, _ := newCatalogFixture(t)

	name := "ghost"
	_, err := catalog.Update(context.Background(), 404, service.UpdateProductParams{Name: &name})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteProduct(t *testing.T) {
	ctx := context.Background()
	catalog, _, publisher := newCatalogFixture(t)

	created, err := catalog.Create(ctx, service.CreateProductParams{Name: "widget", Price: 9.99, Quantity: 5})
	require.NoError(t, err)
	publisher.reset()

	require.NoError(t, catalog.Delete(ctx, created.ID))

	published := publisher.events()
	require.Len(t, published, 1)
	deleted, ok := published[0].(event.ProductDeleted)
	require.True(t, ok)
	require.Equal(t, created.ID, deleted.ProductID)

	_, err = catalog.GetByID(ctx, created.ID)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

// memoryProductRepo mirrors the postgres repository: a name unique index and
// zero-floored batch stock adjustments.
type memoryProductRepo struct {
	mu     sync.Mutex
	byID   map[int64]domain.Product
	byName map[string]int64
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{
		byID:   make(map[int64]domain.Product),
		byName: make(map[string]int64),
	}
}

func (m *memoryProductRepo) GetByID(ctx context.Context, productID int64) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.byID[productID]
	if !ok {
		return domain.Product{}, pgx.ErrNoRows
	}
	return product, nil
}

func (m *memoryProductRepo) GetByName(ctx context.Context, name string) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byName[name]
	if !ok {
		return domain.Product{}, pgx.ErrNoRows
	}
	return m.byID[id], nil
}

func (m *memoryProductRepo) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[product.Name]; exists {
		return domain.Product{}, &pgconn.PgError{Code: "23505", ConstraintName: "products_name_key"}
	}
	product.CreatedAt = time.Now().UTC()
	m.byID[product.ID] = product
	m.byName[product.Name] = product.ID
	return product, nil
}

func (m *memoryProductRepo) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byID[product.ID]
	if !ok {
		return domain.Product{}, pgx.ErrNoRows
	}
	if id, exists := m.byName[product.Name]; exists && id != product.ID {
		return domain.Product{}, &pgconn.PgError{Code: "23505", ConstraintName: "products_name_key"}
	}
	delete(m.byName, current.Name)
	now := time.Now().UTC()
	product.UpdatedAt = &now
	m.byID[product.ID] = product
	m.byName[product.Name] = product.ID
	return product, nil
}

func (m *memoryProductRepo) Delete(ctx context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.byID[productID]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(m.byName, product.Name)
	delete(m.byID, productID)
	return nil
}

func (m *memoryProductRepo) ApplyDeltas(ctx context.Context, deltas []repository.InventoryDelta) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var missing []int64
	for _, delta := range deltas {
		product, ok := m.byID[delta.ProductID]
		if !ok {
			missing = append(missing, delta.ProductID)
			continue
		}
		product.Quantity += delta.Delta
		if product.Quantity < 0 {
			product.Quantity = 0
		}
		m.byID[delta.ProductID] = product
	}
	return missing, nil
}
