package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/database"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/google/uuid"
)

// Product represents a raw material or finished good. Units are configured
// elsewhere; this engine only reads them and maintains the denormalized
// stock totals.
type Product struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	MainUnit      unit.Unit  `db:"main_unit" json:"main_unit"`
	SubUnit       *unit.Unit `db:"sub_unit" json:"sub_unit,omitempty"`
	TotalStock    float64    `db:"total_stock" json:"total_stock"`
	TotalSubStock float64    `db:"total_sub_stock" json:"total_sub_stock"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// ProductRepository handles product persistence
type ProductRepository struct {
	db *database.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO products (id, name, main_unit, sub_unit, total_stock, total_sub_stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		p.ID, p.Name, p.MainUnit, p.SubUnit, p.TotalStock, p.TotalSubStock,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Wrap(err, "DB_ERROR", "failed to create product", 500)
	}
	return nil
}

// GetByID gets a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	query := `
		SELECT id, name, main_unit, sub_unit, total_stock, total_sub_stock, created_at, updated_at
		FROM products WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("product")
		}
		return nil, errors.Wrap(err, "DB_ERROR", "failed to get product", 500)
	}
	return &p, nil
}

// List lists all products
func (r *ProductRepository) List(ctx context.Context) ([]*Product, error) {
	var products []*Product
	query := `
		SELECT id, name, main_unit, sub_unit, total_stock, total_sub_stock, created_at, updated_at
		FROM products ORDER BY name
	`
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list products", 500)
	}
	return products, nil
}

// UpdateStockTotals writes the denormalized main- and sub-unit stock totals
func (r *ProductRepository) UpdateStockTotals(ctx context.Context, id string, totalStock, totalSubStock float64) error {
	query := `
		UPDATE products SET total_stock = $2, total_sub_stock = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, totalStock, totalSubStock)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to update stock totals", 500)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("product")
	}
	return nil
}
