package repository

import (
	"context"
	"time"

	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/database"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/google/uuid"
)

// Transfer kinds
const (
	TransferKindMove     = "move"
	TransferKindConsume  = "consume"
	TransferKindProduce  = "produce"
	TransferKindRollback = "rollback"
)

// TransferEntry is one append-only row of the transfer log. A nil shelf id
// marks the side of the movement that has no shelf (pure credit or debit).
type TransferEntry struct {
	ID          string    `db:"id" json:"id"`
	ProductID   string    `db:"product_id" json:"product_id"`
	FromShelfID *string   `db:"from_shelf_id" json:"from_shelf_id,omitempty"`
	ToShelfID   *string   `db:"to_shelf_id" json:"to_shelf_id,omitempty"`
	Quantity    float64   `db:"quantity" json:"quantity"`
	Unit        unit.Unit `db:"unit" json:"unit"`
	Kind        string    `db:"kind" json:"kind"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TransferRepository handles the append-only transfer log
type TransferRepository struct {
	db *database.DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *database.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Append appends entries to the transfer log
func (r *TransferRepository) Append(ctx context.Context, entries []*TransferEntry) error {
	query := `
		INSERT INTO transfer_log (id, product_id, from_shelf_id, to_shelf_id, quantity, unit, kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		err := r.db.QueryRowxContext(ctx, query,
			e.ID, e.ProductID, e.FromShelfID, e.ToShelfID, e.Quantity, e.Unit, e.Kind,
		).Scan(&e.CreatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return errors.Wrap(err, "DB_ERROR", "failed to append transfer log", 500)
		}
	}
	return nil
}

// ListByProduct lists a product's transfer history, newest first
func (r *TransferRepository) ListByProduct(ctx context.Context, productID string, limit int) ([]*TransferEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	var entries []*TransferEntry
	query := `
		SELECT id, product_id, from_shelf_id, to_shelf_id, quantity, unit, kind, created_at
		FROM transfer_log WHERE product_id = $1 ORDER BY created_at DESC LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &entries, query, productID, limit); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list transfer log", 500)
	}
	return entries, nil
}

// ListRecent lists the newest transfer log entries
func (r *TransferRepository) ListRecent(ctx context.Context, limit int) ([]*TransferEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	var entries []*TransferEntry
	query := `
		SELECT id, product_id, from_shelf_id, to_shelf_id, quantity, unit, kind, created_at
		FROM transfer_log ORDER BY created_at DESC LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list transfer log", 500)
	}
	return entries, nil
}
