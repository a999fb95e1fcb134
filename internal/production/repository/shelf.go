package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/bartarleather/erp-backend/pkg/database"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/google/uuid"
)

// Shelf represents a warehouse shelf
type Shelf struct {
	ID          string    `db:"id" json:"id"`
	WarehouseID string    `db:"warehouse_id" json:"warehouse_id"`
	Label       string    `db:"label" json:"label"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ShelfRepository handles shelf persistence
type ShelfRepository struct {
	db *database.DB
}

// NewShelfRepository creates a new shelf repository
func NewShelfRepository(db *database.DB) *ShelfRepository {
	return &ShelfRepository{db: db}
}

// Create creates a new shelf
func (r *ShelfRepository) Create(ctx context.Context, s *Shelf) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	query := `
		INSERT INTO shelves (id, warehouse_id, label)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, s.ID, s.WarehouseID, s.Label).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Wrap(err, "DB_ERROR", "failed to create shelf", 500)
	}
	return nil
}

// GetByID gets a shelf by ID
func (r *ShelfRepository) GetByID(ctx context.Context, id string) (*Shelf, error) {
	var s Shelf
	query := `
		SELECT id, warehouse_id, label, created_at, updated_at
		FROM shelves WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("shelf")
		}
		return nil, errors.Wrap(err, "DB_ERROR", "failed to get shelf", 500)
	}
	return &s, nil
}

// ListByWarehouse lists shelves belonging to a warehouse
func (r *ShelfRepository) ListByWarehouse(ctx context.Context, warehouseID string) ([]*Shelf, error) {
	var shelves []*Shelf
	query := `
		SELECT id, warehouse_id, label, created_at, updated_at
		FROM shelves WHERE warehouse_id = $1 ORDER BY label
	`
	if err := r.db.SelectContext(ctx, &shelves, query, warehouseID); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list shelves", 500)
	}
	return shelves, nil
}
