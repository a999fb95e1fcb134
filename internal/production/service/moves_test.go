package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/errors"
)

type engineFixture struct {
	*ledgerFixture
	transfers *memTransfers
	engine    *MoveEngine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	lf := newLedgerFixture(t, AutoAccept{})
	transfers := &memTransfers{}
	return &engineFixture{
		ledgerFixture: lf,
		transfers:     transfers,
		engine:        NewMoveEngine(lf.ledger, transfers, nil, testLogger()),
	}
}

func (f *engineFixture) addProduct(p *repository.Product) {
	f.products.byID[p.ID] = p
}

func (f *engineFixture) addShelf(s *repository.Shelf) {
	f.shelves.byID[s.ID] = s
}

func TestCollectMoves(t *testing.T) {
	p := testProduct("چرم گاوی", unit.SquareMeter)
	s := testShelf("A1")

	order := testOrder("کیف چرمی", 3,
		testGrid("رویه", p.ID, s.ID, testPiece(0.5, 0.4, 2)),
		testGrid("آستر", "", s.ID, testPiece(0.3, 0.3, 1)),
		testGrid("بند", p.ID, "", testPiece(0.1, 1, 4)),
	)

	plan := NewMoveEngine(nil, nil, nil, testLogger()).CollectMoves(order, "prod-shelf")

	require.Len(t, plan.Moves, 1)
	m := plan.Moves[0]
	assert.Equal(t, p.ID, m.ProductID)
	assert.Equal(t, s.ID, m.FromShelfID)
	assert.Equal(t, "prod-shelf", m.ToShelfID)
	// 0.5*0.4*2 usage per unit, times order quantity 3
	assert.InDelta(t, 1.2, m.Quantity, 1e-9)

	require.Len(t, plan.MissingProduct, 1)
	assert.Equal(t, "آستر", plan.MissingProduct[0].Category)
	require.Len(t, plan.MissingShelf, 1)
	assert.Equal(t, "بند", plan.MissingShelf[0].Category)
}

func TestCollectMovesSkipsZeroUsage(t *testing.T) {
	p := testProduct("چرم گاوی", unit.SquareMeter)
	order := testOrder("کیف", 2, repository.GridGroup{
		Category:          "رویه",
		SelectedProductID: p.ID,
		SourceShelfID:     "shelf",
		Pieces:            []repository.Piece{{Length: 0, Width: 0, Quantity: 1}},
	})

	plan := NewMoveEngine(nil, nil, nil, testLogger()).CollectMoves(order, "prod-shelf")
	assert.Empty(t, plan.Moves)
	assert.Empty(t, plan.MissingProduct)
	assert.Empty(t, plan.MissingShelf)
}

func TestApplyMovesDebitsBeforeCredit(t *testing.T) {
	f := newEngineFixture(t)
	p := testProduct("چرم گاوی", unit.SquareMeter)
	src := testShelf("A1")
	dst := testShelf("تولید")
	f.addProduct(p)
	f.addShelf(src)
	f.addShelf(dst)
	f.stocks.set(p.ID, src.ID, 10)

	err := f.engine.ApplyMoves(context.Background(), []Move{
		{ProductID: p.ID, FromShelfID: src.ID, ToShelfID: dst.ID, Quantity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 6.0, f.stocks.get(p.ID, src.ID))
	assert.Equal(t, 4.0, f.stocks.get(p.ID, dst.ID))

	require.Len(t, f.transfers.entries, 1)
	entry := f.transfers.entries[0]
	assert.Equal(t, repository.TransferKindMove, entry.Kind)
	assert.Equal(t, src.ID, *entry.FromShelfID)
	assert.Equal(t, dst.ID, *entry.ToShelfID)
	assert.Equal(t, 4.0, entry.Quantity)

	assert.Equal(t, 10.0, p.TotalStock, "totals resynced after the move")
}

func TestApplyMovesGroupsByKey(t *testing.T) {
	f := newEngineFixture(t)
	p := testProduct("چرم گاوی", unit.SquareMeter)
	src := testShelf("A1")
	dst := testShelf("تولید")
	f.addProduct(p)
	f.addShelf(src)
	f.addShelf(dst)
	f.stocks.set(p.ID, src.ID, 10)

	err := f.engine.ApplyMoves(context.Background(), []Move{
		{ProductID: p.ID, FromShelfID: src.ID, ToShelfID: dst.ID, Quantity: 2},
		{ProductID: p.ID, FromShelfID: src.ID, ToShelfID: dst.ID, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, f.stocks.get(p.ID, src.ID))
	assert.Equal(t, 5.0, f.stocks.get(p.ID, dst.ID))
	assert.Len(t, f.transfers.entries, 1, "same key collapses into one grouped move")
}

func TestApplyMovesInsufficientStock(t *testing.T) {
	f := newEngineFixture(t)
	p := testProduct("چرم گاوی", unit.SquareMeter)
	src := testShelf("A1")
	dst := testShelf("تولید")
	f.addProduct(p)
	f.addShelf(src)
	f.addShelf(dst)
	f.stocks.set(p.ID, src.ID, 3)

	err := f.engine.ApplyMoves(context.Background(), []Move{
		{ProductID: p.ID, FromShelfID: src.ID, ToShelfID: dst.ID, Quantity: 5},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
	assert.Equal(t, 3.0, f.stocks.get(p.ID, src.ID), "debit failed before any credit")
	assert.Equal(t, 0.0, f.stocks.get(p.ID, dst.ID))
	assert.Empty(t, f.transfers.entries)
}

func TestRollbackMoves(t *testing.T) {
	f := newEngineFixture(t)
	p := testProduct("چرم گاوی", unit.SquareMeter)
	src := testShelf("A1")
	dst := testShelf("تولید")
	f.addProduct(p)
	f.addShelf(src)
	f.addShelf(dst)
	f.stocks.set(p.ID, src.ID, 10)

	moves := []Move{{ProductID: p.ID, FromShelfID: src.ID, ToShelfID: dst.ID, Quantity: 4}}
	require.NoError(t, f.engine.ApplyMoves(context.Background(), moves))

	// The destination was drained in the meantime; rollback still lands.
	f.stocks.set(p.ID, dst.ID, 1)
	require.NoError(t, f.engine.RollbackMoves(context.Background(), moves))

	assert.Equal(t, 10.0, f.stocks.get(p.ID, src.ID))
	assert.Equal(t, -3.0, f.stocks.get(p.ID, dst.ID), "rollback overrides the non-negative invariant")

	require.Len(t, f.transfers.entries, 2)
	assert.Equal(t, repository.TransferKindRollback, f.transfers.entries[1].Kind)
}

func TestConsumeMaterials(t *testing.T) {
	f := newEngineFixture(t)
	p := testProduct("چرم گاوی", unit.SquareMeter)
	prod := testShelf("تولید")
	f.addProduct(p)
	f.addShelf(prod)
	f.stocks.set(p.ID, prod.ID, 8)

	err := f.engine.ConsumeMaterials(context.Background(), []Move{
		{ProductID: p.ID, Quantity: 3},
	}, prod.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, f.stocks.get(p.ID, prod.ID))

	require.Len(t, f.transfers.entries, 1)
	entry := f.transfers.entries[0]
	assert.Equal(t, repository.TransferKindConsume, entry.Kind)
	assert.Nil(t, entry.ToShelfID)
}

func TestAddFinishedGoods(t *testing.T) {
	f := newEngineFixture(t)
	p := testProduct("کیف چرمی", unit.Count)
	s := testShelf("محصول")
	f.addProduct(p)
	f.addShelf(s)

	err := f.engine.AddFinishedGoods(context.Background(), p.ID, s.ID, 12, unit.Count)
	require.NoError(t, err)
	assert.Equal(t, 12.0, f.stocks.get(p.ID, s.ID))
	assert.Equal(t, 12.0, p.TotalStock)

	require.Len(t, f.transfers.entries, 1)
	entry := f.transfers.entries[0]
	assert.Equal(t, repository.TransferKindProduce, entry.Kind)
	assert.Nil(t, entry.FromShelfID)
}
