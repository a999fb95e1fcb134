package events

import (
	"context"

	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/pkg/logger"
	"github.com/bartarleather/erp-backend/pkg/messaging"
)

// ProductionEventPublisher publishes production engine events. A nil
// publisher is valid and drops every event, so the engine runs without a
// broker.
type ProductionEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewProductionEventPublisher creates a new production event publisher
func NewProductionEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*ProductionEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeProductionEvents, "production-service", log)
	if err != nil {
		return nil, err
	}

	return &ProductionEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishTransfer publishes the event mirroring one transfer log entry
func (p *ProductionEventPublisher) PublishTransfer(ctx context.Context, entry *repository.TransferEntry) {
	if p == nil {
		return
	}

	var eventType string
	data := any(nil)
	switch entry.Kind {
	case repository.TransferKindConsume:
		eventType = messaging.EventStockConsumed
		data = messaging.StockConsumedEvent{
			ProductID:   entry.ProductID,
			FromShelfID: deref(entry.FromShelfID),
			Quantity:    entry.Quantity,
			Unit:        string(entry.Unit),
		}
	case repository.TransferKindProduce:
		eventType = messaging.EventStockProduced
		data = messaging.StockProducedEvent{
			ProductID: entry.ProductID,
			ShelfID:   deref(entry.ToShelfID),
			Quantity:  entry.Quantity,
			Unit:      string(entry.Unit),
		}
	default:
		eventType = messaging.EventStockMoved
		data = messaging.StockMovedEvent{
			ProductID:   entry.ProductID,
			FromShelfID: deref(entry.FromShelfID),
			ToShelfID:   deref(entry.ToShelfID),
			Quantity:    entry.Quantity,
			Unit:        string(entry.Unit),
			Kind:        entry.Kind,
		}
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish transfer event")
	}
}

// PublishHandoverCreated publishes a handover created event
func (p *ProductionEventPublisher) PublishHandoverCreated(ctx context.Context, stageTaskID string, form *repository.HandoverForm) {
	if p == nil {
		return
	}

	data := messaging.HandoverCreatedEvent{
		FormID:      form.ID,
		StageTaskID: stageTaskID,
		Direction:   form.Direction,
		Giver:       form.Giver,
		Receiver:    form.Receiver,
	}
	if err := p.publisher.Publish(ctx, messaging.EventHandoverCreated, data); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish handover created event")
	}
}

// PublishHandoverConfirmed publishes a one-side confirmation event
func (p *ProductionEventPublisher) PublishHandoverConfirmed(ctx context.Context, stageTaskID, formID, side, actor string) {
	if p == nil {
		return
	}

	data := messaging.HandoverConfirmedEvent{
		FormID:      formID,
		StageTaskID: stageTaskID,
		Side:        side,
		Actor:       actor,
	}
	if err := p.publisher.Publish(ctx, messaging.EventHandoverConfirmed, data); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish handover confirmed event")
	}
}

// PublishHandoverSettled publishes a settled event once both sides confirmed
func (p *ProductionEventPublisher) PublishHandoverSettled(ctx context.Context, stageTaskID string, form *repository.HandoverForm) {
	if p == nil {
		return
	}

	data := messaging.HandoverSettledEvent{
		FormID:      form.ID,
		StageTaskID: stageTaskID,
		Giver:       form.Giver,
		Receiver:    form.Receiver,
	}
	if err := p.publisher.Publish(ctx, messaging.EventHandoverSettled, data); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish handover settled event")
	}
}

// PublishOrderStatusChanged publishes an order status transition
func (p *ProductionEventPublisher) PublishOrderStatusChanged(ctx context.Context, orderID, oldStatus, newStatus string) {
	if p == nil {
		return
	}

	data := messaging.OrderStatusChangedEvent{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
	if err := p.publisher.Publish(ctx, messaging.EventOrderStatusChanged, data); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish order status event")
	}
}

// PublishGroupStarted publishes a group start event
func (p *ProductionEventPublisher) PublishGroupStarted(ctx context.Context, groupID string, orderIDs []string) {
	if p == nil {
		return
	}

	data := messaging.GroupStartedEvent{
		GroupID:  groupID,
		OrderIDs: orderIDs,
	}
	if err := p.publisher.Publish(ctx, messaging.EventGroupStarted, data); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish group started event")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
