package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vladyslavplus/orderly/internal/event"
	"github.com/vladyslavplus/orderly/internal/repository"
)

// orderCancelled is the only OrderDeleted status that restores stock.
const orderCancelled = "CANCELLED"

// Guard suppresses repeated application of the same event under at-least-once
// delivery. A nil Guard preserves the baseline contract: redelivery of the
// same OrderCreated double-decrements stock.
type Guard interface {
	FirstDelivery(ctx context.Context, key string) (bool, error)
}

// Reconciler consumes order lifecycle events and adjusts product stock. It is
// stateless across events; all mutation lands on product rows in one commit
// per event.
type Reconciler struct {
	products repository.ProductRepository
	guard    Guard
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewReconciler wires dependencies. guard may be nil.
func NewReconciler(products repository.ProductRepository, guard Guard, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		products: products,
		guard:    guard,
		logger:   logger,
		tracer:   otel.Tracer("github.com/vladyslavplus/orderly/internal/inventory"),
	}
}

// Handle decodes a broker message by topic and applies it. Unknown topics are
// an error so a miswired consumer fails loudly instead of silently draining.
func (r *Reconciler) Handle(ctx context.Context, msg kafkago.Message) error {
	switch msg.Topic {
	case event.TopicOrderCreated:
		var evt event.OrderCreated
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode order created: %w", err)
		}
		return r.HandleOrderCreated(ctx, evt)
	case event.TopicOrderDeleted:
		var evt event.OrderDeleted
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode order deleted: %w", err)
		}
		return r.HandleOrderDeleted(ctx, evt)
	default:
		return fmt.Errorf("unexpected topic %q", msg.Topic)
	}
}

// HandleOrderCreated decrements stock per line item, flooring at zero. A line
// referencing an unknown product is logged and skipped; the rest of the batch
// still commits.
func (r *Reconciler) HandleOrderCreated(ctx context.Context, evt event.OrderCreated) error {
	ctx, span := r.tracer.Start(ctx, "inventory.Reconciler.HandleOrderCreated")
	defer span.End()

	r.logger.Info("order created received", zap.Int64("order_id", evt.OrderID))

	if skip, err := r.alreadyApplied(ctx, evt.OrderID, event.TopicOrderCreated); err == nil && skip {
		return nil
	}

	deltas := make([]repository.InventoryDelta, 0, len(evt.Items))
	for _, item := range evt.Items {
		deltas = append(deltas, repository.InventoryDelta{ProductID: item.ProductID, Delta: -item.Quantity})
	}

	missing, err := r.products.ApplyDeltas(ctx, deltas)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("apply order created %d: %w", evt.OrderID, err)
	}
	r.logMissing(missing)

	r.logger.Info("order created processed", zap.Int64("order_id", evt.OrderID))
	return nil
}

// HandleOrderDeleted restores stock for cancelled orders only. Any other
// status is a no-op: the stock was legitimately consumed.
func (r *Reconciler) HandleOrderDeleted(ctx context.Context, evt event.OrderDeleted) error {
	ctx, span := r.tracer.Start(ctx, "inventory.Reconciler.HandleOrderDeleted")
	defer span.End()

	r.logger.Info("order deleted received",
		zap.Int64("order_id", evt.OrderID),
		zap.String("status", evt.Status),
	)

	if !strings.EqualFold(evt.Status, orderCancelled) {
		r.logger.Info("order not cancelled, skipping restock", zap.Int64("order_id", evt.OrderID))
		return nil
	}

	if skip, err := r.alreadyApplied(ctx, evt.OrderID, event.TopicOrderDeleted); err == nil && skip {
		return nil
	}

	deltas := make([]repository.InventoryDelta, 0, len(evt.Items))
	for _, item := range evt.Items {
		deltas = append(deltas, repository.InventoryDelta{ProductID: item.ProductID, Delta: item.Quantity})
	}

	missing, err := r.products.ApplyDeltas(ctx, deltas)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("apply order deleted %d: %w", evt.OrderID, err)
	}
	r.logMissing(missing)

	r.logger.Info("order deleted processed", zap.Int64("order_id", evt.OrderID))
	return nil
}

// alreadyApplied consults the guard when configured. A guard failure is
// logged and treated as first delivery: availability wins over dedup.
func (r *Reconciler) alreadyApplied(ctx context.Context, orderID int64, kind string) (bool, error) {
	if r.guard == nil {
		return false, nil
	}
	first, err := r.guard.FirstDelivery(ctx, fmt.Sprintf("%d:%s", orderID, kind))
	if err != nil {
		r.logger.Warn("dedup guard unavailable",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
		return false, err
	}
	if !first {
		r.logger.Info("duplicate event suppressed",
			zap.Int64("order_id", orderID),
			zap.String("kind", kind),
		)
		return true, nil
	}
	return false, nil
}

func (r *Reconciler) logMissing(missing []int64) {
	for _, id := range missing {
		r.logger.Warn("product not found, line item skipped", zap.Int64("product_id", id))
	}
}
