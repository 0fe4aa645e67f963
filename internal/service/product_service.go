package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vladyslavplus/orderly/internal/apperr"
	"github.com/vladyslavplus/orderly/internal/broker"
	"github.com/vladyslavplus/orderly/internal/domain"
	"github.com/vladyslavplus/orderly/internal/event"
	"github.com/vladyslavplus/orderly/internal/repository"
)

// CreateProductParams is the creation payload after transport binding.
type CreateProductParams struct {
	Name        string
	Description string
	Price       float64
	Quantity    int
	Category    string
	Rating      float64
}

// UpdateProductParams carries optional field changes; nil means untouched.
type UpdateProductParams struct {
	Name        *string
	Description *string
	Price       *float64
	Quantity    *int
	Category    *string
	Rating      *float64
}

// ProductService owns direct catalog mutations and publishes product
// lifecycle events after each commit. Stock adjustments driven by order
// events live in the inventory reconciler, not here.
type ProductService struct {
	products  repository.ProductRepository
	publisher broker.Publisher
	node      *snowflake.Node
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewProductService wires dependencies.
func NewProductService(products repository.ProductRepository, publisher broker.Publisher, node *snowflake.Node, logger *zap.Logger) *ProductService {
	return &ProductService{
		products:  products,
		publisher: publisher,
		node:      node,
		logger:    logger,
		tracer:    otel.Tracer("github.com/vladyslavplus/orderly/internal/service"),
	}
}

// Create validates and persists a product. Duplicate names fail with
// AlreadyExists.
func (s *ProductService) Create(ctx context.Context, params CreateProductParams) (domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Create")
	defer span.End()

	if err := validateProduct(params.Name, params.Price, params.Quantity); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		ID:          s.node.Generate().Int64(),
		Name:        strings.TrimSpace(params.Name),
		Description: params.Description,
		Price:       params.Price,
		Quantity:    params.Quantity,
		Category:    params.Category,
		Rating:      params.Rating,
	}

	created, err := s.products.Create(ctx, product)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return domain.Product{}, apperr.New(apperr.KindAlreadyExists, "product %q already exists", product.Name)
		}
		span.RecordError(err)
		return domain.Product{}, apperr.New(apperr.KindInternal, "create product: %v", err)
	}

	s.publish(ctx, event.ProductCreated{
		ProductID:   created.ID,
		Name:        created.Name,
		Description: created.Description,
		Price:       created.Price,
		Quantity:    created.Quantity,
		Category:    created.Category,
		Rating:      created.Rating,
		CreatedAt:   created.CreatedAt,
	}, created.Name)

	return created, nil
}

// GetByID loads a product.
func (s *ProductService) GetByID(ctx context.Context, productID int64) (domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, apperr.New(apperr.KindNotFound, "product %d not found", productID)
		}
		return domain.Product{}, apperr.New(apperr.KindInternal, "get product: %v", err)
	}
	return product, nil
}

// Update applies provided field changes and publishes ProductUpdated only
// when something actually changed.
func (s *ProductService) Update(ctx context.Context, productID int64, params UpdateProductParams) (domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Update")
	defer span.End()

	product, err := s.GetByID(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	changed := false
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name != "" && name != product.Name {
			product.Name = name
			changed = true
		}
	}
	if params.Description != nil && *params.Description != product.Description {
		product.Description = *params.Description
		changed = true
	}
	if params.Price != nil && *params.Price != product.Price {
		if *params.Price <= 0 {
			return domain.Product{}, apperr.New(apperr.KindValidationFailed, "price must be positive")
		}
		product.Price = *params.Price
		changed = true
	}
	if params.Quantity != nil && *params.Quantity != product.Quantity {
		if *params.Quantity < 0 {
			return domain.Product{}, apperr.New(apperr.KindValidationFailed, "quantity must not be negative")
		}
		product.Quantity = *params.Quantity
		changed = true
	}
	if params.Category != nil && *params.Category != product.Category {
		product.Category = *params.Category
		changed = true
	}
	if params.Rating != nil && math.Abs(*params.Rating-product.Rating) > 1e-9 {
		product.Rating = *params.Rating
		changed = true
	}

	if !changed {
		return product, nil
	}

	updated, err := s.products.Update(ctx, product)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return domain.Product{}, apperr.New(apperr.KindAlreadyExists, "product %q already exists", product.Name)
		}
		span.RecordError(err)
		return domain.Product{}, apperr.New(apperr.KindInternal, "update product: %v", err)
	}

	evt := event.ProductUpdated{
		ProductID:   updated.ID,
		Name:        updated.Name,
		Description: updated.Description,
		Price:       updated.Price,
		Quantity:    updated.Quantity,
		Category:    updated.Category,
		Rating:      updated.Rating,
	}
	if updated.UpdatedAt != nil {
		evt.UpdatedAt = *updated.UpdatedAt
	}
	s.publish(ctx, evt, updated.Name)

	return updated, nil
}

// Delete removes a product and publishes ProductDeleted.
func (s *ProductService) Delete(ctx context.Context, productID int64) error {
	ctx, span := s.tracer.Start(ctx, "ProductService.Delete")
	defer span.End()

	product, err := s.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	if err := s.products.Delete(ctx, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "product %d not found", productID)
		}
		span.RecordError(err)
		return apperr.New(apperr.KindInternal, "delete product: %v", err)
	}

	s.publish(ctx, event.ProductDeleted{
		ProductID: product.ID,
		Name:      product.Name,
		Category:  product.Category,
		Price:     product.Price,
		Quantity:  product.Quantity,
		DeletedAt: time.Now().UTC(),
	}, product.Name)

	return nil
}

func (s *ProductService) publish(ctx context.Context, evt any, key string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt, key); err != nil {
		s.logger.Error("publish event failed",
			zap.String("topic", event.TopicFor(evt)),
			zap.Error(err),
		)
	}
}

func validateProduct(name string, price float64, quantity int) error {
	if strings.TrimSpace(name) == "" {
		return apperr.New(apperr.KindValidationFailed, "product name is required")
	}
	if price <= 0 {
		return apperr.New(apperr.KindValidationFailed, "price must be positive")
	}
	if quantity < 0 {
		return apperr.New(apperr.KindValidationFailed, "quantity must not be negative")
	}
	return nil
}
