package testutil

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/internal/production/unit"
)

// FixtureFactory creates domain fixtures with unique names
type FixtureFactory struct {
	counter atomic.Int64
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{}
}

func (f *FixtureFactory) next() int64 {
	return f.counter.Add(1)
}

// Product creates a product measured in the given main unit
func (f *FixtureFactory) Product(mainUnit unit.Unit) *repository.Product {
	n := f.next()
	return &repository.Product{
		ID:       uuid.New().String(),
		Name:     fmt.Sprintf("چرم %d", n),
		MainUnit: mainUnit,
	}
}

// AreaProduct creates a square-metre product with a square-foot sub unit
func (f *FixtureFactory) AreaProduct() *repository.Product {
	p := f.Product(unit.SquareMeter)
	sub := unit.SquareFoot
	p.SubUnit = &sub
	return p
}

// DiscreteProduct creates a counted product
func (f *FixtureFactory) DiscreteProduct() *repository.Product {
	return f.Product(unit.Count)
}

// Shelf creates a shelf in a fresh warehouse
func (f *FixtureFactory) Shelf() *repository.Shelf {
	n := f.next()
	return &repository.Shelf{
		ID:          uuid.New().String(),
		WarehouseID: uuid.New().String(),
		Label:       fmt.Sprintf("قفسه %d", n),
	}
}

// ShelfIn creates a shelf in an existing warehouse
func (f *FixtureFactory) ShelfIn(warehouseID string) *repository.Shelf {
	s := f.Shelf()
	s.WarehouseID = warehouseID
	return s
}

// InventoryRecord creates a stock record
func (f *FixtureFactory) InventoryRecord(productID, shelfID string, stock float64) *repository.InventoryRecord {
	return &repository.InventoryRecord{
		ProductID: productID,
		ShelfID:   shelfID,
		Stock:     stock,
	}
}

// Order creates a pending production order with no grids
func (f *FixtureFactory) Order(quantity float64) *repository.ProductionOrder {
	n := f.next()
	return &repository.ProductionOrder{
		ID:       uuid.New().String(),
		Title:    fmt.Sprintf("سفارش %d", n),
		Quantity: quantity,
		Status:   repository.OrderStatusPending,
		Grids:    repository.GridGroups{},
	}
}

// Grid creates a recalculated material grid for a product
func (f *FixtureFactory) Grid(category, productID, sourceShelfID string, pieces ...repository.Piece) repository.GridGroup {
	g := repository.GridGroup{
		Category:          category,
		SelectedProductID: productID,
		SourceShelfID:     sourceShelfID,
		Pieces:            pieces,
	}
	g.Recalculate(false)
	return g
}

// Piece creates a material-line row
func (f *FixtureFactory) Piece(length, width, quantity, wasteRate float64) repository.Piece {
	p := repository.Piece{
		Length:    length,
		Width:     width,
		Quantity:  quantity,
		WasteRate: wasteRate,
	}
	p.Recalculate()
	return p
}

// StageTask creates a stage task for an order
func (f *FixtureFactory) StageTask(orderID string, position int, shelfID string) *repository.StageTask {
	n := f.next()
	return &repository.StageTask{
		ID:       uuid.New().String(),
		OrderID:  orderID,
		Title:    fmt.Sprintf("مرحله %d", n),
		Position: position,
		ShelfID:  shelfID,
	}
}

// HandoverForm creates a draft incoming form with one group
func (f *FixtureFactory) HandoverForm(productID string, qty float64) *repository.HandoverForm {
	return &repository.HandoverForm{
		ID:        uuid.New().String(),
		Direction: repository.DirectionIncoming,
		Giver:     "شروع تولید",
		Receiver:  "برش",
		Groups: []repository.HandoverGroup{
			{
				ProductID:        productID,
				TotalHandoverQty: qty,
			},
		},
	}
}
