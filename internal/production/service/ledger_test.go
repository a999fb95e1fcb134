package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/errors"
)

type ledgerFixture struct {
	products *memProducts
	shelves  *memShelves
	stocks   *memStocks
	ledger   *Ledger
}

func newLedgerFixture(t *testing.T, confirmer Confirmer) *ledgerFixture {
	t.Helper()
	products := newMemProducts()
	shelves := newMemShelves()
	stocks := newMemStocks()
	normalizer := NewNormalizer(products, confirmer, testLogger())
	return &ledgerFixture{
		products: products,
		shelves:  shelves,
		stocks:   stocks,
		ledger:   NewLedger(stocks, products, shelves, normalizer, testLogger()),
	}
}

func TestApplyDeltasAggregatesPerKey(t *testing.T) {
	f := newLedgerFixture(t, AutoAccept{})
	p := testProduct("چرم گاوی", unit.SquareMeter)
	s := testShelf("A1")
	f.products.byID[p.ID] = p
	f.shelves.byID[s.ID] = s
	f.stocks.set(p.ID, s.ID, 5)

	deltas := []StockDelta{
		{ProductID: p.ID, ShelfID: s.ID, Quantity: 10},
		{ProductID: p.ID, ShelfID: s.ID, Quantity: -3},
		{ProductID: p.ID, ShelfID: s.ID, Quantity: -7},
	}
	require.NoError(t, f.ledger.ApplyDeltas(context.Background(), deltas, ApplyOptions{}))
	assert.Equal(t, 5.0, f.stocks.get(p.ID, s.ID), "zero-sum batch leaves stock unchanged")
}

func TestApplyDeltasAggregationPreventsFalseShortfall(t *testing.T) {
	f := newLedgerFixture(t, AutoAccept{})
	p := testProduct("چرم گاوی", unit.SquareMeter)
	s := testShelf("A1")
	f.products.byID[p.ID] = p
	f.shelves.byID[s.ID] = s

	// Individually the debit would underflow an empty shelf; summed with
	// the credit it must not.
	deltas := []StockDelta{
		{ProductID: p.ID, ShelfID: s.ID, Quantity: -4},
		{ProductID: p.ID, ShelfID: s.ID, Quantity: 4},
	}
	require.NoError(t, f.ledger.ApplyDeltas(context.Background(), deltas, ApplyOptions{}))
	assert.Equal(t, 0.0, f.stocks.get(p.ID, s.ID))
}

func TestApplyDeltasInsufficientStock(t *testing.T) {
	f := newLedgerFixture(t, AutoAccept{})
	p := testProduct("چرم گاوی", unit.SquareMeter)
	s := testShelf("A1")
	f.products.byID[p.ID] = p
	f.shelves.byID[s.ID] = s
	f.stocks.set(p.ID, s.ID, 5)

	err := f.ledger.ApplyDeltas(context.Background(), []StockDelta{
		{ProductID: p.ID, ShelfID: s.ID, Quantity: -8},
	}, ApplyOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "چرم گاوی")
	assert.Contains(t, appErr.Message, "A1")
	assert.Equal(t, "5", appErr.Details["current"])
	assert.Equal(t, "3", appErr.Details["shortfall"])

	assert.Equal(t, 5.0, f.stocks.get(p.ID, s.ID), "failed key must stay unchanged")
}

func TestApplyDeltasAllowNegativeStock(t *testing.T) {
	f := newLedgerFixture(t, AutoAccept{})
	p := testProduct("چرم گاوی", unit.SquareMeter)
	s := testShelf("A1")
	f.products.byID[p.ID] = p
	f.shelves.byID[s.ID] = s
	f.stocks.set(p.ID, s.ID, 5)

	err := f.ledger.ApplyDeltas(context.Background(), []StockDelta{
		{ProductID: p.ID, ShelfID: s.ID, Quantity: -8},
	}, ApplyOptions{AllowNegativeStock: true})
	require.NoError(t, err)
	assert.Equal(t, -3.0, f.stocks.get(p.ID, s.ID))
}

func TestApplyDeltasPartialBatchStays(t *testing.T) {
	f := newLedgerFixture(t, AutoAccept{})
	p := testProduct("چرم گاوی", unit.SquareMeter)
	s1 := testShelf("A1")
	s2 := testShelf("A2")
	f.products.byID[p.ID] = p
	f.shelves.byID[s1.ID] = s1
	f.shelves.byID[s2.ID] = s2
	f.stocks.set(p.ID, s1.ID, 10)

	// First key succeeds, second underflows. The first write stays.
	err := f.ledger.ApplyDeltas(context.Background(), []StockDelta{
		{ProductID: p.ID, ShelfID: s1.ID, Quantity: -4},
		{ProductID: p.ID, ShelfID: s2.ID, Quantity: -1},
	}, ApplyOptions{})
	require.Error(t, err)
	assert.Equal(t, 6.0, f.stocks.get(p.ID, s1.ID))
	assert.Equal(t, 0.0, f.stocks.get(p.ID, s2.ID))
}

func TestApplyDeltasNormalizesUnits(t *testing.T) {
	f := newLedgerFixture(t, AutoAccept{})
	p := testProduct("چرم گاوی", unit.SquareMeter)
	s := testShelf("A1")
	f.products.byID[p.ID] = p
	f.shelves.byID[s.ID] = s

	err := f.ledger.ApplyDeltas(context.Background(), []StockDelta{
		{ProductID: p.ID, ShelfID: s.ID, Quantity: 100, Unit: unit.SquareFoot},
	}, ApplyOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 9.3025, f.stocks.get(p.ID, s.ID), 1e-9)
}

func TestApplyDeltasRejectedConversionAborts(t *testing.T) {
	f := newLedgerFixture(t, RejectAll{})
	p := testProduct("چرم گاوی", unit.SquareMeter)
	s := testShelf("A1")
	f.products.byID[p.ID] = p
	f.shelves.byID[s.ID] = s
	f.stocks.set(p.ID, s.ID, 5)

	err := f.ledger.ApplyDeltas(context.Background(), []StockDelta{
		{ProductID: p.ID, ShelfID: s.ID, Quantity: 100, Unit: unit.SquareFoot},
	}, ApplyOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUserRejected))
	assert.Equal(t, 5.0, f.stocks.get(p.ID, s.ID), "nothing written before the rejection")
}

func TestApplyDeltasNewRecordGetsWarehouse(t *testing.T) {
	f := newLedgerFixture(t, AutoAccept{})
	p := testProduct("چرم گاوی", unit.SquareMeter)
	s := testShelf("A1")
	f.products.byID[p.ID] = p
	f.shelves.byID[s.ID] = s

	err := f.ledger.ApplyDeltas(context.Background(), []StockDelta{
		{ProductID: p.ID, ShelfID: s.ID, Quantity: 2},
	}, ApplyOptions{})
	require.NoError(t, err)

	rec, err := f.stocks.Get(context.Background(), p.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.WarehouseID, rec.WarehouseID)
}

func TestSyncProductStock(t *testing.T) {
	f := newLedgerFixture(t, AutoAccept{})
	p := testProduct("چرم گاوی", unit.SquareMeter)
	sub := unit.SquareFoot
	p.SubUnit = &sub
	s1 := testShelf("A1")
	s2 := testShelf("A2")
	f.products.byID[p.ID] = p
	f.shelves.byID[s1.ID] = s1
	f.shelves.byID[s2.ID] = s2
	f.stocks.set(p.ID, s1.ID, 4)
	f.stocks.set(p.ID, s2.ID, 5.3025)

	require.NoError(t, f.ledger.SyncProductStock(context.Background(), p.ID))
	assert.InDelta(t, 9.3025, p.TotalStock, 1e-9)
	assert.InDelta(t, 100, p.TotalSubStock, 1e-9)
}
