package service

import (
	"context"

	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/bartarleather/erp-backend/pkg/logger"
	"github.com/google/uuid"
)

// In-memory collaborators. They implement the service interfaces directly,
// so service behavior is tested without a database.

type memProducts struct {
	byID map[string]*repository.Product
}

func newMemProducts(products ...*repository.Product) *memProducts {
	m := &memProducts{byID: make(map[string]*repository.Product)}
	for _, p := range products {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProducts) GetByID(_ context.Context, id string) (*repository.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, errors.NotFound("product")
	}
	return p, nil
}

func (m *memProducts) UpdateStockTotals(_ context.Context, id string, totalStock, totalSubStock float64) error {
	p, ok := m.byID[id]
	if !ok {
		return errors.NotFound("product")
	}
	p.TotalStock = totalStock
	p.TotalSubStock = totalSubStock
	return nil
}

type memShelves struct {
	byID map[string]*repository.Shelf
}

func newMemShelves(shelves ...*repository.Shelf) *memShelves {
	m := &memShelves{byID: make(map[string]*repository.Shelf)}
	for _, s := range shelves {
		m.byID[s.ID] = s
	}
	return m
}

func (m *memShelves) GetByID(_ context.Context, id string) (*repository.Shelf, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, errors.NotFound("shelf")
	}
	return s, nil
}

type memStocks struct {
	records map[string]*repository.InventoryRecord
}

func newMemStocks() *memStocks {
	return &memStocks{records: make(map[string]*repository.InventoryRecord)}
}

func stockMapKey(productID, shelfID string) string {
	return productID + "/" + shelfID
}

func (m *memStocks) set(productID, shelfID string, stock float64) {
	m.records[stockMapKey(productID, shelfID)] = &repository.InventoryRecord{
		ProductID: productID,
		ShelfID:   shelfID,
		Stock:     stock,
	}
}

func (m *memStocks) get(productID, shelfID string) float64 {
	rec, ok := m.records[stockMapKey(productID, shelfID)]
	if !ok {
		return 0
	}
	return rec.Stock
}

func (m *memStocks) Get(_ context.Context, productID, shelfID string) (*repository.InventoryRecord, error) {
	rec, ok := m.records[stockMapKey(productID, shelfID)]
	if !ok {
		return nil, errors.NotFound("inventory record")
	}
	copied := *rec
	return &copied, nil
}

func (m *memStocks) Upsert(_ context.Context, rec *repository.InventoryRecord) error {
	copied := *rec
	m.records[stockMapKey(rec.ProductID, rec.ShelfID)] = &copied
	return nil
}

func (m *memStocks) ListByProduct(_ context.Context, productID string) ([]*repository.InventoryRecord, error) {
	var out []*repository.InventoryRecord
	for _, rec := range m.records {
		if rec.ProductID == productID {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memStocks) ListByShelf(_ context.Context, shelfID string) ([]*repository.InventoryRecord, error) {
	var out []*repository.InventoryRecord
	for _, rec := range m.records {
		if rec.ShelfID == shelfID {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memTransfers struct {
	entries []*repository.TransferEntry
}

func (m *memTransfers) Append(_ context.Context, entries []*repository.TransferEntry) error {
	m.entries = append(m.entries, entries...)
	return nil
}

type memStages struct {
	byID map[string]*repository.StageTask
}

func newMemStages() *memStages {
	return &memStages{byID: make(map[string]*repository.StageTask)}
}

func (m *memStages) Create(_ context.Context, t *repository.StageTask) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	copied := *t
	m.byID[t.ID] = &copied
	return nil
}

func (m *memStages) GetByID(_ context.Context, id string) (*repository.StageTask, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, errors.NotFound("stage task")
	}
	copied := *t
	return &copied, nil
}

func (m *memStages) ListByOrder(_ context.Context, orderID string) ([]*repository.StageTask, error) {
	var out []*repository.StageTask
	for _, t := range m.byID {
		if t.OrderID == orderID {
			copied := *t
			out = append(out, &copied)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Position < out[i].Position {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *memStages) FirstForOrder(ctx context.Context, orderID string) (*repository.StageTask, error) {
	tasks, _ := m.ListByOrder(ctx, orderID)
	if len(tasks) == 0 {
		return nil, errors.NotFound("stage task")
	}
	return tasks[0], nil
}

func (m *memStages) SaveHandoverState(_ context.Context, id string, state repository.HandoverState) error {
	t, ok := m.byID[id]
	if !ok {
		return errors.NotFound("stage task")
	}
	t.HandoverState = state
	return nil
}

func (m *memStages) SetCompleted(_ context.Context, id string, completed bool) error {
	t, ok := m.byID[id]
	if !ok {
		return errors.NotFound("stage task")
	}
	t.Completed = completed
	return nil
}

type memGroups struct {
	byID map[string]*repository.OrderGroup
}

func newMemGroups() *memGroups {
	return &memGroups{byID: make(map[string]*repository.OrderGroup)}
}

func (m *memGroups) Create(_ context.Context, g *repository.OrderGroup) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	copied := *g
	m.byID[g.ID] = &copied
	return nil
}

func (m *memGroups) GetByID(_ context.Context, id string) (*repository.OrderGroup, error) {
	g, ok := m.byID[id]
	if !ok {
		return nil, errors.NotFound("order group")
	}
	copied := *g
	return &copied, nil
}

type memOrders struct {
	byID map[string]*repository.ProductionOrder
}

func newMemOrders(orders ...*repository.ProductionOrder) *memOrders {
	m := &memOrders{byID: make(map[string]*repository.ProductionOrder)}
	for _, o := range orders {
		m.byID[o.ID] = o
	}
	return m
}

func (m *memOrders) GetByID(_ context.Context, id string) (*repository.ProductionOrder, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, errors.NotFound("production order")
	}
	copied := *o
	return &copied, nil
}

func (m *memOrders) ListByIDs(ctx context.Context, ids []string) ([]*repository.ProductionOrder, error) {
	out := make([]*repository.ProductionOrder, 0, len(ids))
	for _, id := range ids {
		o, err := m.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *memOrders) SaveGrids(_ context.Context, id string, grids repository.GridGroups) error {
	o, ok := m.byID[id]
	if !ok {
		return errors.NotFound("production order")
	}
	o.Grids = grids
	return nil
}

func (m *memOrders) UpdateQuantity(_ context.Context, id string, quantity float64) error {
	o, ok := m.byID[id]
	if !ok {
		return errors.NotFound("production order")
	}
	o.Quantity = quantity
	return nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, status string) error {
	o, ok := m.byID[id]
	if !ok {
		return errors.NotFound("production order")
	}
	o.Status = status
	return nil
}

func testLogger() *logger.Logger {
	return logger.New("test", "test")
}

func testProduct(name string, mainUnit unit.Unit) *repository.Product {
	return &repository.Product{
		ID:       uuid.New().String(),
		Name:     name,
		MainUnit: mainUnit,
	}
}

func testShelf(label string) *repository.Shelf {
	return &repository.Shelf{
		ID:          uuid.New().String(),
		WarehouseID: uuid.New().String(),
		Label:       label,
	}
}

func testOrder(title string, quantity float64, grids ...repository.GridGroup) *repository.ProductionOrder {
	return &repository.ProductionOrder{
		ID:       uuid.New().String(),
		Title:    title,
		Quantity: quantity,
		Status:   repository.OrderStatusPending,
		Grids:    grids,
	}
}

func testPiece(length, width, quantity float64) repository.Piece {
	p := repository.Piece{Length: length, Width: width, Quantity: quantity}
	p.Recalculate()
	return p
}

func testGrid(category, productID, shelfID string, pieces ...repository.Piece) repository.GridGroup {
	g := repository.GridGroup{
		Category:          category,
		SelectedProductID: productID,
		SourceShelfID:     shelfID,
		Pieces:            pieces,
	}
	g.Recalculate(false)
	return g
}

// countingConfirmer accepts everything and records how often it was asked.
type countingConfirmer struct {
	calls int
}

func (c *countingConfirmer) Confirm(context.Context, ConfirmRequest) (bool, error) {
	c.calls++
	return true, nil
}
