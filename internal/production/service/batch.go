package service

import (
	"context"

	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/internal/production/unit"
)

// ProductCatalog is the read-only product metadata collaborator.
type ProductCatalog interface {
	GetByID(ctx context.Context, id string) (*repository.Product, error)
	UpdateStockTotals(ctx context.Context, id string, totalStock, totalSubStock float64) error
}

// ShelfCatalog is the read-only shelf metadata collaborator, used for
// error messages and defaults.
type ShelfCatalog interface {
	GetByID(ctx context.Context, id string) (*repository.Shelf, error)
}

// StockStore persists (product, shelf) stock records.
type StockStore interface {
	Get(ctx context.Context, productID, shelfID string) (*repository.InventoryRecord, error)
	Upsert(ctx context.Context, rec *repository.InventoryRecord) error
	ListByProduct(ctx context.Context, productID string) ([]*repository.InventoryRecord, error)
	ListByShelf(ctx context.Context, shelfID string) ([]*repository.InventoryRecord, error)
}

// TransferLog appends to the append-only transfer log.
type TransferLog interface {
	Append(ctx context.Context, entries []*repository.TransferEntry) error
}

type confirmKey struct {
	productID string
	from      unit.Unit
	to        unit.Unit
}

// Batch is the explicit per-call context shared across one ledger or move
// operation. It caches confirmation decisions (asked at most once per
// distinct product/unit-pair per batch) and metadata lookups, so concurrent
// batches never share state.
type Batch struct {
	decisions map[confirmKey]bool
	products  map[string]*repository.Product
	shelves   map[string]*repository.Shelf
}

// NewBatch creates an empty batch context.
func NewBatch() *Batch {
	return &Batch{
		decisions: make(map[confirmKey]bool),
		products:  make(map[string]*repository.Product),
		shelves:   make(map[string]*repository.Shelf),
	}
}

// Product returns the product metadata, cached for the batch.
func (b *Batch) Product(ctx context.Context, catalog ProductCatalog, id string) (*repository.Product, error) {
	if p, ok := b.products[id]; ok {
		return p, nil
	}
	p, err := catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b.products[id] = p
	return p, nil
}

// Shelf returns the shelf metadata, cached for the batch.
func (b *Batch) Shelf(ctx context.Context, catalog ShelfCatalog, id string) (*repository.Shelf, error) {
	if s, ok := b.shelves[id]; ok {
		return s, nil
	}
	s, err := catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b.shelves[id] = s
	return s, nil
}

// Decision looks up a cached confirmation decision.
func (b *Batch) Decision(productID string, from, to unit.Unit) (accepted, ok bool) {
	accepted, ok = b.decisions[confirmKey{productID, from, to}]
	return
}

// SetDecision caches a confirmation decision for the rest of the batch.
func (b *Batch) SetDecision(productID string, from, to unit.Unit, accepted bool) {
	b.decisions[confirmKey{productID, from, to}] = accepted
}
