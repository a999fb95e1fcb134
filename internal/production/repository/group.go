package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/bartarleather/erp-backend/pkg/database"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// OrderGroup binds a set of production orders run together so shared
// raw-material deliveries can be recorded once and divided among them.
type OrderGroup struct {
	ID        string         `db:"id" json:"id"`
	OrderIDs  pq.StringArray `db:"order_ids" json:"order_ids"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Contains reports whether the group binds the given order.
func (g *OrderGroup) Contains(orderID string) bool {
	for _, id := range g.OrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

// GroupRepository handles order group persistence
type GroupRepository struct {
	db *database.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *database.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create persists a new order group. The persisted id is what unlocks every
// later wizard step.
func (r *GroupRepository) Create(ctx context.Context, g *OrderGroup) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}

	query := `
		INSERT INTO order_groups (id, order_ids)
		VALUES ($1, $2)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, g.ID, g.OrderIDs).
		Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Wrap(err, "DB_ERROR", "failed to create order group", 500)
	}
	return nil
}

// GetByID gets an order group by ID
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*OrderGroup, error) {
	var g OrderGroup
	query := `
		SELECT id, order_ids, created_at, updated_at
		FROM order_groups WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &g, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("order group")
		}
		return nil, errors.Wrap(err, "DB_ERROR", "failed to get order group", 500)
	}
	return &g, nil
}
