package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/bartarleather/erp-backend/pkg/database"
	"github.com/bartarleather/erp-backend/pkg/errors"
)

// InventoryRecord is the stock figure for one (product, shelf) pair,
// expressed in the product's main unit. Records are created on first credit
// and never deleted, only zeroed.
type InventoryRecord struct {
	ProductID   string    `db:"product_id" json:"product_id"`
	ShelfID     string    `db:"shelf_id" json:"shelf_id"`
	Stock       float64   `db:"stock" json:"stock"`
	WarehouseID string    `db:"warehouse_id" json:"warehouse_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// InventoryRepository handles inventory record persistence
type InventoryRepository struct {
	db *database.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *database.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Get gets the record for a (product, shelf) pair
func (r *InventoryRepository) Get(ctx context.Context, productID, shelfID string) (*InventoryRecord, error) {
	var rec InventoryRecord
	query := `
		SELECT product_id, shelf_id, stock, warehouse_id, created_at, updated_at
		FROM inventory_records WHERE product_id = $1 AND shelf_id = $2
	`
	if err := r.db.GetContext(ctx, &rec, query, productID, shelfID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("inventory record")
		}
		return nil, errors.Wrap(err, "DB_ERROR", "failed to get inventory record", 500)
	}
	return &rec, nil
}

// Upsert writes the stock value for a (product, shelf) pair, creating the
// record on first write. The stored warehouse id is preserved on update.
func (r *InventoryRepository) Upsert(ctx context.Context, rec *InventoryRecord) error {
	query := `
		INSERT INTO inventory_records (product_id, shelf_id, stock, warehouse_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, shelf_id)
		DO UPDATE SET stock = EXCLUDED.stock, updated_at = NOW()
		RETURNING warehouse_id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		rec.ProductID, rec.ShelfID, rec.Stock, rec.WarehouseID,
	).Scan(&rec.WarehouseID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Wrap(err, "DB_ERROR", "failed to upsert inventory record", 500)
	}
	return nil
}

// ListByProduct lists all shelf records for a product
func (r *InventoryRepository) ListByProduct(ctx context.Context, productID string) ([]*InventoryRecord, error) {
	var records []*InventoryRecord
	query := `
		SELECT product_id, shelf_id, stock, warehouse_id, created_at, updated_at
		FROM inventory_records WHERE product_id = $1 ORDER BY shelf_id
	`
	if err := r.db.SelectContext(ctx, &records, query, productID); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list inventory records", 500)
	}
	return records, nil
}

// ListByShelf lists all product records on a shelf
func (r *InventoryRepository) ListByShelf(ctx context.Context, shelfID string) ([]*InventoryRecord, error) {
	var records []*InventoryRecord
	query := `
		SELECT product_id, shelf_id, stock, warehouse_id, created_at, updated_at
		FROM inventory_records WHERE shelf_id = $1 ORDER BY product_id
	`
	if err := r.db.SelectContext(ctx, &records, query, shelfID); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list inventory records", 500)
	}
	return records, nil
}
