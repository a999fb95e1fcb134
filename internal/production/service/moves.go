package service

import (
	"context"

	"github.com/bartarleather/erp-backend/internal/production/events"
	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/logger"
	"github.com/google/uuid"
)

// Move is one shelf-to-shelf transfer instruction. It is ephemeral: its
// effect is persisted as inventory deltas plus a transfer log entry, never
// as a row of its own.
type Move struct {
	ProductID   string
	FromShelfID string
	ToShelfID   string
	Quantity    float64
	Unit        unit.Unit
}

// RowRef points at one material-line row inside an order's grids.
type RowRef struct {
	OrderID  string
	Category string
	RowIndex int
}

// MovePlan is the result of scanning an order's grids for required
// transfers. Rows that cannot produce a move are reported as diagnostics,
// not dropped silently; the caller decides whether they are fatal.
type MovePlan struct {
	Moves          []Move
	MissingProduct []RowRef
	MissingShelf   []RowRef
}

// MoveEngine derives and applies the physical material movements behind an
// order: raw material to a production shelf, consumption out of it, and
// finished goods back onto a shelf.
type MoveEngine struct {
	ledger    *Ledger
	transfers TransferLog
	publisher *events.ProductionEventPublisher
	logger    *logger.Logger
}

// NewMoveEngine creates a new production move engine
func NewMoveEngine(ledger *Ledger, transfers TransferLog, publisher *events.ProductionEventPublisher, log *logger.Logger) *MoveEngine {
	return &MoveEngine{
		ledger:    ledger,
		transfers: transfers,
		publisher: publisher,
		logger:    log.WithComponent("move-engine"),
	}
}

// CollectMoves scans every material-line row of the order and emits one
// move per row with positive usage, scaled by the order's target quantity.
func (e *MoveEngine) CollectMoves(order *repository.ProductionOrder, productionShelfID string) *MovePlan {
	plan := &MovePlan{}

	for _, g := range order.Grids {
		for i, piece := range g.Pieces {
			if piece.TotalUsage <= 0 {
				continue
			}
			ref := RowRef{OrderID: order.ID, Category: g.Category, RowIndex: i}
			if g.SelectedProductID == "" {
				plan.MissingProduct = append(plan.MissingProduct, ref)
				continue
			}
			if g.SourceShelfID == "" {
				plan.MissingShelf = append(plan.MissingShelf, ref)
				continue
			}
			plan.Moves = append(plan.Moves, Move{
				ProductID:   g.SelectedProductID,
				FromShelfID: g.SourceShelfID,
				ToShelfID:   productionShelfID,
				Quantity:    piece.TotalUsage * order.Quantity,
				Unit:        g.Unit,
			})
		}
	}
	return plan
}

// ApplyMoves normalizes, groups and applies a batch of moves. For each
// grouped (product, from, to) move the source debit runs before the
// destination credit, so stock is never created mid-batch. Not idempotent:
// re-submitting an applied batch double-applies it.
func (e *MoveEngine) ApplyMoves(ctx context.Context, moves []Move) error {
	return e.apply(ctx, moves, repository.TransferKindMove, ApplyOptions{})
}

// RollbackMoves reverses an applied move list by swapping source and
// destination. The non-negative invariant is suppressed: a rollback must
// land even when the shelves changed underneath it.
func (e *MoveEngine) RollbackMoves(ctx context.Context, moves []Move) error {
	reversed := make([]Move, len(moves))
	for i, m := range moves {
		reversed[i] = Move{
			ProductID:   m.ProductID,
			FromShelfID: m.ToShelfID,
			ToShelfID:   m.FromShelfID,
			Quantity:    m.Quantity,
			Unit:        m.Unit,
		}
	}
	return e.apply(ctx, reversed, repository.TransferKindRollback, ApplyOptions{AllowNegativeStock: true})
}

// ConsumeMaterials applies debit-only moves against the production shelf.
// The material left that shelf physically; there is no destination credit.
func (e *MoveEngine) ConsumeMaterials(ctx context.Context, moves []Move, productionShelfID string) error {
	debits := make([]Move, len(moves))
	for i, m := range moves {
		debits[i] = Move{
			ProductID:   m.ProductID,
			FromShelfID: productionShelfID,
			Quantity:    m.Quantity,
			Unit:        m.Unit,
		}
	}
	return e.apply(ctx, debits, repository.TransferKindConsume, ApplyOptions{})
}

// AddFinishedGoods credits produced quantity onto a shelf and refreshes the
// product's aggregate totals.
func (e *MoveEngine) AddFinishedGoods(ctx context.Context, productID, shelfID string, quantity float64, u unit.Unit) error {
	move := Move{
		ProductID: productID,
		ToShelfID: shelfID,
		Quantity:  quantity,
		Unit:      u,
	}
	return e.apply(ctx, []Move{move}, repository.TransferKindProduce, ApplyOptions{})
}

type groupedMove struct {
	productID string
	from      string
	to        string
	quantity  float64
}

type moveKey struct {
	productID string
	from      string
	to        string
}

// apply normalizes every move once up front, groups by (product, from, to)
// and applies each group as debit then credit through the ledger. Quantities
// re-enter the ledger already normalized, so the deltas carry no unit.
func (e *MoveEngine) apply(ctx context.Context, moves []Move, kind string, opts ApplyOptions) error {
	b := NewBatch()

	sums := make(map[moveKey]float64)
	var order []moveKey
	for _, m := range moves {
		qty, err := e.ledger.normalizer.Normalize(ctx, b, m.ProductID, m.Quantity, m.Unit)
		if err != nil {
			return err
		}
		if qty == 0 {
			continue
		}
		key := moveKey{m.ProductID, m.FromShelfID, m.ToShelfID}
		if _, seen := sums[key]; !seen {
			order = append(order, key)
		}
		sums[key] += qty
	}

	grouped := make([]groupedMove, 0, len(order))
	for _, key := range order {
		grouped = append(grouped, groupedMove{key.productID, key.from, key.to, sums[key]})
	}

	touched := make(map[string]bool)
	for _, g := range grouped {
		var deltas []StockDelta
		if g.from != "" {
			deltas = append(deltas, StockDelta{ProductID: g.productID, ShelfID: g.from, Quantity: -g.quantity})
		}
		if g.to != "" {
			deltas = append(deltas, StockDelta{ProductID: g.productID, ShelfID: g.to, Quantity: g.quantity})
		}
		if err := e.ledger.applyDeltas(ctx, b, deltas, opts); err != nil {
			return err
		}
		touched[g.productID] = true

		entry := e.logEntry(ctx, b, g, kind)
		if err := e.transfers.Append(ctx, []*repository.TransferEntry{entry}); err != nil {
			e.logger.Error().Err(err).Str("product_id", g.productID).Msg("failed to append transfer log")
		} else {
			e.publisher.PublishTransfer(ctx, entry)
		}
	}

	for productID := range touched {
		if err := e.ledger.SyncProductStock(ctx, productID); err != nil {
			e.logger.Error().Err(err).Str("product_id", productID).Msg("failed to sync product totals")
		}
	}
	return nil
}

func (e *MoveEngine) logEntry(ctx context.Context, b *Batch, g groupedMove, kind string) *repository.TransferEntry {
	entry := &repository.TransferEntry{
		ID:        uuid.New().String(),
		ProductID: g.productID,
		Quantity:  g.quantity,
		Kind:      kind,
	}
	if g.from != "" {
		from := g.from
		entry.FromShelfID = &from
	}
	if g.to != "" {
		to := g.to
		entry.ToShelfID = &to
	}
	if p, err := b.Product(ctx, e.ledger.products, g.productID); err == nil {
		entry.Unit = p.MainUnit
	}
	return entry
}
