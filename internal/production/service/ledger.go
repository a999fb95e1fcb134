package service

import (
	"context"

	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/bartarleather/erp-backend/pkg/logger"
)

// StockDelta is one signed stock change against a (product, shelf) pair.
type StockDelta struct {
	ProductID string
	ShelfID   string
	Quantity  float64
	Unit      unit.Unit
}

// ApplyOptions controls how a delta batch is applied.
type ApplyOptions struct {
	// AllowNegativeStock suppresses the non-negative invariant. Used by
	// rollback, which must be able to undo a batch regardless of what
	// happened to the shelves since.
	AllowNegativeStock bool
}

type stockKey struct {
	productID string
	shelfID   string
}

// Ledger applies signed stock deltas to (product, shelf) records and keeps
// the denormalized product totals consistent.
//
// A batch is not transactional: keys written before a failing key stay
// written. Compensating writes are the caller's responsibility (see
// MoveEngine.RollbackMoves).
type Ledger struct {
	store      StockStore
	products   ProductCatalog
	shelves    ShelfCatalog
	normalizer *Normalizer
	logger     *logger.Logger
}

// NewLedger creates a new inventory ledger
func NewLedger(store StockStore, products ProductCatalog, shelves ShelfCatalog, normalizer *Normalizer, log *logger.Logger) *Ledger {
	return &Ledger{
		store:      store,
		products:   products,
		shelves:    shelves,
		normalizer: normalizer,
		logger:     log.WithComponent("ledger"),
	}
}

// ApplyDeltas normalizes, aggregates and applies a batch of stock deltas.
// All deltas share one confirmation cache, so the operator is asked at most
// once per distinct (product, source unit, target unit) combination.
func (l *Ledger) ApplyDeltas(ctx context.Context, deltas []StockDelta, opts ApplyOptions) error {
	return l.applyDeltas(ctx, NewBatch(), deltas, opts)
}

func (l *Ledger) applyDeltas(ctx context.Context, b *Batch, deltas []StockDelta, opts ApplyOptions) error {
	sums := make(map[stockKey]float64)
	var order []stockKey

	for _, d := range deltas {
		qty, err := l.normalizer.Normalize(ctx, b, d.ProductID, d.Quantity, d.Unit)
		if err != nil {
			return err
		}
		key := stockKey{d.ProductID, d.ShelfID}
		if _, seen := sums[key]; !seen {
			order = append(order, key)
		}
		sums[key] += qty
	}

	for _, key := range order {
		if err := l.applyToKey(ctx, b, key, sums[key], opts); err != nil {
			return err
		}
	}
	return nil
}

// applyToKey read-modify-writes one (product, shelf) record. There is no
// optimistic versioning: concurrent writers racing on the same key can lose
// updates (single-operator deployment).
func (l *Ledger) applyToKey(ctx context.Context, b *Batch, key stockKey, delta float64, opts ApplyOptions) error {
	var current float64
	rec, err := l.store.Get(ctx, key.productID, key.shelfID)
	switch {
	case err == nil:
		current = rec.Stock
	case errors.Is(err, errors.ErrNotFound):
		rec = nil
	default:
		return err
	}

	next := current + delta
	if next < 0 && !opts.AllowNegativeStock {
		return l.insufficientStock(ctx, b, key, current, -next)
	}

	if rec == nil {
		rec = &repository.InventoryRecord{
			ProductID: key.productID,
			ShelfID:   key.shelfID,
		}
		if shelf, err := b.Shelf(ctx, l.shelves, key.shelfID); err == nil {
			rec.WarehouseID = shelf.WarehouseID
		}
	}
	rec.Stock = next

	if err := l.store.Upsert(ctx, rec); err != nil {
		return err
	}

	l.logger.Debug().
		Str("product_id", key.productID).
		Str("shelf_id", key.shelfID).
		Float64("delta", delta).
		Float64("stock", next).
		Msg("stock updated")
	return nil
}

func (l *Ledger) insufficientStock(ctx context.Context, b *Batch, key stockKey, current, shortfall float64) error {
	productName := key.productID
	if p, err := b.Product(ctx, l.products, key.productID); err == nil {
		productName = p.Name
	}
	shelfLabel := key.shelfID
	if s, err := b.Shelf(ctx, l.shelves, key.shelfID); err == nil {
		shelfLabel = s.Label
	}
	return errors.InsufficientStock(productName, shelfLabel, current, shortfall)
}

// SyncProductStock recomputes a product's aggregate stock as the sum over
// all its shelf records, plus the secondary sub-unit aggregate, and writes
// both denormalized totals. Call it after every structural change.
func (l *Ledger) SyncProductStock(ctx context.Context, productID string) error {
	p, err := l.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	records, err := l.store.ListByProduct(ctx, productID)
	if err != nil {
		return err
	}

	var total float64
	for _, rec := range records {
		total += rec.Stock
	}

	var subTotal float64
	if p.SubUnit != nil {
		subTotal = unit.ConvertArea(total, p.MainUnit, *p.SubUnit)
	}

	return l.products.UpdateStockTotals(ctx, productID, total, subTotal)
}
