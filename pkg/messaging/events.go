package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Stock events
	EventStockMoved    = "production.stock.moved"
	EventStockConsumed = "production.stock.consumed"
	EventStockProduced = "production.stock.produced"

	// Handover events
	EventHandoverCreated   = "production.handover.created"
	EventHandoverConfirmed = "production.handover.confirmed"
	EventHandoverSettled   = "production.handover.settled"

	// Order events
	EventOrderStatusChanged = "production.order.status_changed"
	EventGroupStarted       = "production.group.started"
)

// Exchange names
const (
	ExchangeProductionEvents = "production.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Stock Events

// StockMovedEvent is published when stock is transferred between shelves
type StockMovedEvent struct {
	ProductID   string  `json:"product_id"`
	FromShelfID string  `json:"from_shelf_id"`
	ToShelfID   string  `json:"to_shelf_id"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Kind        string  `json:"kind"`
}

// StockConsumedEvent is published when material is consumed by production
type StockConsumedEvent struct {
	ProductID   string  `json:"product_id"`
	FromShelfID string  `json:"from_shelf_id"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// StockProducedEvent is published when finished goods are credited
type StockProducedEvent struct {
	ProductID string  `json:"product_id"`
	ShelfID   string  `json:"shelf_id"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
}

// Handover Events

// HandoverCreatedEvent is published when a handover form is drafted
type HandoverCreatedEvent struct {
	FormID      string `json:"form_id"`
	StageTaskID string `json:"stage_task_id"`
	Direction   string `json:"direction"`
	Giver       string `json:"giver"`
	Receiver    string `json:"receiver"`
}

// HandoverConfirmedEvent is published when one side confirms a handover
type HandoverConfirmedEvent struct {
	FormID      string `json:"form_id"`
	StageTaskID string `json:"stage_task_id"`
	Side        string `json:"side"`
	Actor       string `json:"actor"`
}

// HandoverSettledEvent is published when both sides have confirmed
type HandoverSettledEvent struct {
	FormID      string `json:"form_id"`
	StageTaskID string `json:"stage_task_id"`
	Giver       string `json:"giver"`
	Receiver    string `json:"receiver"`
}

// Order Events

// OrderStatusChangedEvent is published when a production order changes status
type OrderStatusChangedEvent struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// GroupStartedEvent is published when a group order run is started
type GroupStartedEvent struct {
	GroupID  string   `json:"group_id"`
	OrderIDs []string `json:"order_ids"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
