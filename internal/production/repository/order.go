package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/database"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
)

// Piece is one material-line row: a cut piece the order needs, with its
// derived usage and cost figures.
type Piece struct {
	Name       string  `json:"name,omitempty"`
	Length     float64 `json:"length"`
	Width      float64 `json:"width"`
	Quantity   float64 `json:"quantity"`
	WasteRate  float64 `json:"waste_rate"`
	FinalUsage float64 `json:"final_usage"`
	TotalUsage float64 `json:"total_usage"`
	UnitPrice  float64 `json:"unit_price"`
	TotalCost  float64 `json:"total_cost"`
}

// Recalculate refreshes the derived fields from the editable ones.
func (p *Piece) Recalculate() {
	p.FinalUsage = p.Length * p.Width * (1 + p.WasteRate/100)
	p.TotalUsage = p.FinalUsage * p.Quantity
	p.TotalCost = p.TotalUsage * p.UnitPrice
}

// DeliveryRow records one physical delivery against a grid group. Rows are
// append-only once the covering handover form is settled.
type DeliveryRow struct {
	Name         string  `json:"name,omitempty"`
	Length       float64 `json:"length"`
	Width        float64 `json:"width"`
	Quantity     float64 `json:"quantity"`
	DeliveredQty float64 `json:"delivered_qty"`
}

// Recalculate refreshes DeliveredQty. Discrete products are counted, not
// measured, so the row's quantity stands as delivered. Rows recorded from a
// production start carry only the delivered figure, with no dimensions to
// derive it from; those keep their recorded quantity.
func (d *DeliveryRow) Recalculate(discrete bool) {
	if d.Length == 0 && d.Width == 0 && d.Quantity == 0 {
		return
	}
	if discrete {
		d.DeliveredQty = d.Quantity
		return
	}
	d.DeliveredQty = d.Length * d.Width * d.Quantity
}

// GridGroup is one material category inside an order: the selected product,
// its cut pieces, recorded deliveries and routing defaults.
type GridGroup struct {
	Category          string        `json:"category"`
	SelectedProductID string        `json:"selected_product_id"`
	Unit              unit.Unit     `json:"unit,omitempty"`
	SourceShelfID     string        `json:"source_shelf_id,omitempty"`
	TargetStageTaskID string        `json:"target_stage_task_id,omitempty"`
	Pieces            []Piece       `json:"pieces"`
	Deliveries        []DeliveryRow `json:"deliveries"`
	TotalUsage        float64       `json:"total_usage"`
	TotalDelivered    float64       `json:"total_delivered"`
	TotalCost         float64       `json:"total_cost"`
}

// Recalculate refreshes the group's derived rows and running totals.
func (g *GridGroup) Recalculate(discrete bool) {
	g.TotalUsage = 0
	g.TotalCost = 0
	for i := range g.Pieces {
		g.Pieces[i].Recalculate()
		g.TotalUsage += g.Pieces[i].TotalUsage
		g.TotalCost += g.Pieces[i].TotalCost
	}
	g.TotalDelivered = 0
	for i := range g.Deliveries {
		g.Deliveries[i].Recalculate(discrete)
		g.TotalDelivered += g.Deliveries[i].DeliveredQty
	}
}

// GridGroups is the JSONB column holding an order's material categories.
type GridGroups []GridGroup

// Value implements driver.Valuer
func (g GridGroups) Value() (driver.Value, error) {
	if g == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(g)
}

// Scan implements sql.Scanner
func (g *GridGroups) Scan(src interface{}) error {
	if src == nil {
		*g = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for GridGroups", src)
	}
	return json.Unmarshal(b, g)
}

// ProductionOrder represents one production order and its material grids
type ProductionOrder struct {
	ID        string     `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Quantity  float64    `db:"quantity" json:"quantity"`
	Status    string     `db:"status" json:"status"`
	Grids     GridGroups `db:"grids" json:"grids"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// OrderRepository handles production order persistence
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create creates a new production order
func (r *OrderRepository) Create(ctx context.Context, o *ProductionOrder) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	if o.Grids == nil {
		o.Grids = GridGroups{}
	}

	query := `
		INSERT INTO production_orders (id, title, quantity, status, grids)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		o.ID, o.Title, o.Quantity, o.Status, o.Grids,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Wrap(err, "DB_ERROR", "failed to create production order", 500)
	}
	return nil
}

// GetByID gets a production order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*ProductionOrder, error) {
	var o ProductionOrder
	query := `
		SELECT id, title, quantity, status, grids, created_at, updated_at
		FROM production_orders WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &o, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("production order")
		}
		return nil, errors.Wrap(err, "DB_ERROR", "failed to get production order", 500)
	}
	return &o, nil
}

// ListByIDs gets a set of production orders, preserving the requested order
func (r *OrderRepository) ListByIDs(ctx context.Context, ids []string) ([]*ProductionOrder, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []*ProductionOrder
	query := `
		SELECT id, title, quantity, status, grids, created_at, updated_at
		FROM production_orders WHERE id = ANY($1)
	`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list production orders", 500)
	}

	byID := make(map[string]*ProductionOrder, len(rows))
	for _, o := range rows {
		byID[o.ID] = o
	}
	ordered := make([]*ProductionOrder, 0, len(ids))
	for _, id := range ids {
		o, ok := byID[id]
		if !ok {
			return nil, errors.NotFound("production order")
		}
		ordered = append(ordered, o)
	}
	return ordered, nil
}

// SaveGrids replaces an order's material grids
func (r *OrderRepository) SaveGrids(ctx context.Context, id string, grids GridGroups) error {
	query := `UPDATE production_orders SET grids = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, grids)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to save grids", 500)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("production order")
	}
	return nil
}

// UpdateQuantity sets the order's target production quantity
func (r *OrderRepository) UpdateQuantity(ctx context.Context, id string, quantity float64) error {
	query := `UPDATE production_orders SET quantity = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to update quantity", 500)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("production order")
	}
	return nil
}

// UpdateStatus transitions the order's status
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `UPDATE production_orders SET status = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Wrap(err, "DB_ERROR", "failed to update status", 500)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("production order")
	}
	return nil
}
