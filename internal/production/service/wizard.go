package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/bartarleather/erp-backend/internal/production/events"
	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/config"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/bartarleather/erp-backend/pkg/logger"
)

// GroupStore persists order groups.
type GroupStore interface {
	Create(ctx context.Context, g *repository.OrderGroup) error
	GetByID(ctx context.Context, id string) (*repository.OrderGroup, error)
}

// OrderStore persists production orders.
type OrderStore interface {
	GetByID(ctx context.Context, id string) (*repository.ProductionOrder, error)
	ListByIDs(ctx context.Context, ids []string) ([]*repository.ProductionOrder, error)
	SaveGrids(ctx context.Context, id string, grids repository.GridGroups) error
	UpdateQuantity(ctx context.Context, id string, quantity float64) error
	UpdateStatus(ctx context.Context, id string, status string) error
}

// StageDef defines one stage of an order's production line.
type StageDef struct {
	Title   string `json:"title" validate:"required"`
	ShelfID string `json:"shelf_id" validate:"required"`
}

// OrderLine carries one order's target quantity and stage definitions.
type OrderLine struct {
	OrderID  string     `json:"order_id" validate:"required"`
	Quantity float64    `json:"quantity" validate:"gt=0"`
	Stages   []StageDef `json:"stages" validate:"min=1,dive"`
}

// StartGroup is one (category, product) slice of a group start: the pooled
// demand of every bound order for that product, with routing defaults the
// operator can override before committing.
type StartGroup struct {
	Category          string                        `json:"category"`
	ProductID         string                        `json:"product_id"`
	ProductName       string                        `json:"product_name,omitempty"`
	Unit              unit.Unit                     `json:"unit,omitempty"`
	SourceShelfID     string                        `json:"source_shelf_id,omitempty"`
	TargetStageTaskID string                        `json:"target_stage_task_id,omitempty"`
	TotalSourceQty    float64                       `json:"total_source_qty"`
	TotalOrderQty     float64                       `json:"total_order_qty"`
	TotalHandoverQty  float64                       `json:"total_handover_qty"`
	Requirements      []repository.OrderRequirement `json:"requirements"`
}

// StartPlan is the prepared Start step for operator review.
type StartPlan struct {
	GroupID string       `json:"group_id"`
	Groups  []StartGroup `json:"groups"`
}

// StageProgress is one stage's slice of an order's progress report.
type StageProgress struct {
	StageTaskID string `json:"stage_task_id"`
	Title       string `json:"title"`
	Position    int    `json:"position"`
	Completed   bool   `json:"completed"`
	FormCount   int    `json:"form_count"`
}

// OrderProgress is one order's slice of a group progress report.
type OrderProgress struct {
	OrderID string          `json:"order_id"`
	Title   string          `json:"title"`
	Status  string          `json:"status"`
	Stages  []StageProgress `json:"stages"`
}

// GroupProgress is the read-only Progress step.
type GroupProgress struct {
	GroupID string          `json:"group_id"`
	Status  string          `json:"status"`
	Orders  []OrderProgress `json:"orders"`
}

// Wizard drives the group-order flow through its five ordered steps:
// Setup, Materials, Lines, Start and Progress. Every step past Setup
// requires the persisted group id, so there is never orphaned in-memory
// state to lose.
type Wizard struct {
	groups    GroupStore
	orders    OrderStore
	stages    StageTaskStore
	products  ProductCatalog
	stocks    StockStore
	engine    *MoveEngine
	handovers *HandoverService
	publisher *events.ProductionEventPublisher
	cfg       config.ProductionConfig
	logger    *logger.Logger
}

// NewWizard creates a new group order wizard
func NewWizard(
	groups GroupStore,
	orders OrderStore,
	stages StageTaskStore,
	products ProductCatalog,
	stocks StockStore,
	engine *MoveEngine,
	handovers *HandoverService,
	publisher *events.ProductionEventPublisher,
	cfg config.ProductionConfig,
	log *logger.Logger,
) *Wizard {
	return &Wizard{
		groups:    groups,
		orders:    orders,
		stages:    stages,
		products:  products,
		stocks:    stocks,
		engine:    engine,
		handovers: handovers,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithComponent("wizard"),
	}
}

// CreateGroup is the Setup step: it binds a set of pending orders into a
// persisted group.
func (w *Wizard) CreateGroup(ctx context.Context, orderIDs []string) (*repository.OrderGroup, error) {
	if len(orderIDs) == 0 {
		return nil, errors.BadRequest("at least one order is required")
	}

	orders, err := w.orders.ListByIDs(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.Status != repository.OrderStatusPending {
			return nil, errors.Conflict(fmt.Sprintf("order %q is %s, only pending orders can be grouped", o.Title, o.Status))
		}
	}

	group := &repository.OrderGroup{OrderIDs: orderIDs}
	if err := w.groups.Create(ctx, group); err != nil {
		return nil, err
	}

	w.logger.Info().Str("group_id", group.ID).Int("orders", len(orderIDs)).Msg("order group created")
	return group, nil
}

// SaveMaterials is the Materials step: it recalculates and saves one
// order's material grids. Orders are edited independently.
func (w *Wizard) SaveMaterials(ctx context.Context, groupID, orderID string, grids repository.GridGroups) (repository.GridGroups, error) {
	if _, err := w.memberOrder(ctx, groupID, orderID); err != nil {
		return nil, err
	}

	b := NewBatch()
	for i := range grids {
		discrete := false
		if grids[i].SelectedProductID != "" {
			p, err := b.Product(ctx, w.products, grids[i].SelectedProductID)
			if err != nil {
				return nil, err
			}
			discrete = unit.IsDiscrete(p.MainUnit)
			if grids[i].Unit == "" {
				grids[i].Unit = p.MainUnit
			}
		}
		grids[i].Recalculate(discrete)
	}

	if err := w.orders.SaveGrids(ctx, orderID, grids); err != nil {
		return nil, err
	}
	return grids, nil
}

// SaveLines is the Lines step: it sets each order's target quantity and
// creates its stage tasks. Stage definitions are write-once per order.
func (w *Wizard) SaveLines(ctx context.Context, groupID string, lines []OrderLine) error {
	group, err := w.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}

	for _, line := range lines {
		if !group.Contains(line.OrderID) {
			return errors.BadRequest(fmt.Sprintf("order %s is not part of this group", line.OrderID))
		}

		existing, err := w.stages.ListByOrder(ctx, line.OrderID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errors.Conflict("stages are already defined for this order")
		}

		if err := w.orders.UpdateQuantity(ctx, line.OrderID, line.Quantity); err != nil {
			return err
		}
		for pos, def := range line.Stages {
			task := &repository.StageTask{
				OrderID:  line.OrderID,
				Title:    def.Title,
				Position: pos,
				ShelfID:  def.ShelfID,
			}
			if err := w.stages.Create(ctx, task); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrepareStart builds the Start step: one StartGroup per distinct
// (category, product) across all bound orders, with pooled requirements and
// resolved routing defaults.
func (w *Wizard) PrepareStart(ctx context.Context, groupID string) (*StartPlan, error) {
	group, err := w.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	orders, err := w.orders.ListByIDs(ctx, group.OrderIDs)
	if err != nil {
		return nil, err
	}

	type startKey struct {
		category  string
		productID string
	}
	byKey := make(map[startKey]*StartGroup)
	var keys []startKey
	targetOrders := make(map[startKey]map[string]bool)

	b := NewBatch()
	for _, o := range orders {
		for gi, g := range o.Grids {
			if g.SelectedProductID == "" || g.TotalUsage <= 0 {
				continue
			}
			key := startKey{g.Category, g.SelectedProductID}
			sg, ok := byKey[key]
			if !ok {
				p, err := b.Product(ctx, w.products, g.SelectedProductID)
				if err != nil {
					return nil, err
				}
				u := g.Unit
				if u == "" {
					u = p.MainUnit
				}
				sg = &StartGroup{
					Category:    g.Category,
					ProductID:   g.SelectedProductID,
					ProductName: p.Name,
					Unit:        u,
				}
				byKey[key] = sg
				keys = append(keys, key)
				targetOrders[key] = make(map[string]bool)
			}

			pieceUsage := make([]float64, len(g.Pieces))
			for pi, piece := range g.Pieces {
				pieceUsage[pi] = piece.TotalUsage * o.Quantity
			}
			req := repository.OrderRequirement{
				OrderID:    o.ID,
				RowIndex:   gi,
				PieceUsage: pieceUsage,
				TotalUsage: g.TotalUsage * o.Quantity,
			}
			sg.Requirements = append(sg.Requirements, req)
			sg.TotalOrderQty += req.TotalUsage
			targetOrders[key][o.ID] = true

			if sg.SourceShelfID == "" && g.SourceShelfID != "" {
				sg.SourceShelfID = g.SourceShelfID
			}
		}
	}

	plan := &StartPlan{GroupID: group.ID}
	for _, key := range keys {
		sg := byKey[key]

		if sg.SourceShelfID == "" {
			sg.SourceShelfID = w.highestStockShelf(ctx, sg.ProductID)
		}
		if sg.SourceShelfID != "" {
			if rec, err := w.stocks.Get(ctx, sg.ProductID, sg.SourceShelfID); err == nil {
				sg.TotalSourceQty = rec.Stock
			}
		}
		if len(targetOrders[key]) == 1 {
			sg.TargetStageTaskID = w.defaultTargetStage(ctx, orders, sg.Requirements[0].OrderID, key.category, sg.ProductID)
		}
		sg.TotalHandoverQty = sg.TotalOrderQty

		plan.Groups = append(plan.Groups, *sg)
	}
	return plan, nil
}

// StartProduction commits the Start step: it moves the confirmed deliveries
// onto the stage shelves, divides each delivered total back across the
// orders' grid rows, drafts the first incoming handover form per target
// stage and flips every bound order to in progress.
func (w *Wizard) StartProduction(ctx context.Context, groupID string, groups []StartGroup) error {
	group, err := w.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	orders, err := w.orders.ListByIDs(ctx, group.OrderIDs)
	if err != nil {
		return err
	}
	ordersByID := make(map[string]*repository.ProductionOrder, len(orders))
	for _, o := range orders {
		ordersByID[o.ID] = o
	}

	var moves []Move
	formGroups := make(map[string][]repository.HandoverGroup)
	var formOrder []string
	stageShelves := make(map[string]string)

	for _, sg := range groups {
		if sg.TotalHandoverQty <= 0 {
			continue
		}
		if sg.ProductID == "" || sg.SourceShelfID == "" {
			return errors.BadRequest(fmt.Sprintf("category %q is missing a product or source shelf", sg.Category))
		}
		if sg.TargetStageTaskID == "" {
			return errors.BadRequest(fmt.Sprintf("category %q is missing a target stage", sg.Category))
		}

		stage, err := w.stages.GetByID(ctx, sg.TargetStageTaskID)
		if err != nil {
			return err
		}
		if !group.Contains(stage.OrderID) {
			return errors.BadRequest("target stage does not belong to this group")
		}
		stageShelves[stage.ID] = stage.ShelfID

		moves = append(moves, Move{
			ProductID:   sg.ProductID,
			FromShelfID: sg.SourceShelfID,
			ToShelfID:   stage.ShelfID,
			Quantity:    sg.TotalHandoverQty,
			Unit:        sg.Unit,
		})

		allocations, err := SplitAcrossRequirements(sg.TotalHandoverQty, sg.Requirements)
		if err != nil {
			return err
		}
		for _, alloc := range allocations {
			order, ok := ordersByID[alloc.OrderID]
			if !ok {
				return errors.BadRequest(fmt.Sprintf("requirement references order %s outside the group", alloc.OrderID))
			}
			if alloc.RowIndex < 0 || alloc.RowIndex >= len(order.Grids) {
				return errors.BadRequest(fmt.Sprintf("requirement references a missing grid row on order %q", order.Title))
			}
			grid := &order.Grids[alloc.RowIndex]
			grid.Deliveries = append(grid.Deliveries, repository.DeliveryRow{
				Name:         sg.ProductName,
				DeliveredQty: alloc.Quantity,
			})
			grid.TotalDelivered += alloc.Quantity
		}

		if _, ok := formGroups[stage.ID]; !ok {
			formOrder = append(formOrder, stage.ID)
		}
		formGroups[stage.ID] = append(formGroups[stage.ID], repository.HandoverGroup{
			ProductID:        sg.ProductID,
			ProductName:      sg.ProductName,
			Unit:             sg.Unit,
			Category:         sg.Category,
			TotalSourceQty:   sg.TotalSourceQty,
			TotalOrderQty:    sg.TotalOrderQty,
			TotalHandoverQty: sg.TotalHandoverQty,
			Requirements:     sg.Requirements,
		})
	}

	if len(moves) == 0 {
		return errors.BadRequest("nothing to hand over")
	}

	if err := w.engine.ApplyMoves(ctx, moves); err != nil {
		return err
	}

	for _, stageID := range formOrder {
		form := &repository.HandoverForm{
			Direction:     repository.DirectionIncoming,
			Giver:         w.cfg.StartGiverName,
			Receiver:      stageTitle(ctx, w.stages, stageID),
			TargetShelfID: stageShelves[stageID],
			Groups:        formGroups[stageID],
		}
		if _, err := w.handovers.AppendForm(ctx, stageID, form); err != nil {
			return err
		}
	}

	for _, o := range orders {
		if err := w.orders.SaveGrids(ctx, o.ID, o.Grids); err != nil {
			return err
		}
		if o.Status == repository.OrderStatusPending {
			if err := w.orders.UpdateStatus(ctx, o.ID, repository.OrderStatusInProgress); err != nil {
				return err
			}
			w.publisher.PublishOrderStatusChanged(ctx, o.ID, o.Status, repository.OrderStatusInProgress)
		}
	}

	w.publisher.PublishGroupStarted(ctx, group.ID, group.OrderIDs)
	w.logger.Info().Str("group_id", group.ID).Int("moves", len(moves)).Msg("production started")
	return nil
}

// AdvanceStage hands the current stage's shelf contents over to the next
// stage: an outgoing form on the current stage, a matching incoming form on
// the next, and the physical move between their shelves. The last stage
// advances into order completion instead.
func (w *Wizard) AdvanceStage(ctx context.Context, orderID, stageTaskID, actor string) error {
	tasks, err := w.stages.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	var current, next *repository.StageTask
	for i, t := range tasks {
		if t.ID == stageTaskID {
			current = t
			if i+1 < len(tasks) {
				next = tasks[i+1]
			}
			break
		}
	}
	if current == nil {
		return errors.NotFound("stage task")
	}
	if current.Completed {
		return errors.Conflict("stage is already completed")
	}

	if next == nil {
		return w.CompleteStage(ctx, orderID, stageTaskID)
	}

	records, err := w.stocks.ListByShelf(ctx, current.ShelfID)
	if err != nil {
		return err
	}

	var moves []Move
	groups := make([]repository.HandoverGroup, 0, len(records))
	b := NewBatch()
	for _, rec := range records {
		if rec.Stock <= 0 {
			continue
		}
		moves = append(moves, Move{
			ProductID:   rec.ProductID,
			FromShelfID: current.ShelfID,
			ToShelfID:   next.ShelfID,
			Quantity:    rec.Stock,
		})
		hg := repository.HandoverGroup{
			ProductID:        rec.ProductID,
			TotalSourceQty:   rec.Stock,
			TotalHandoverQty: rec.Stock,
		}
		if p, err := b.Product(ctx, w.products, rec.ProductID); err == nil {
			hg.ProductName = p.Name
			hg.Unit = p.MainUnit
		}
		groups = append(groups, hg)
	}

	if len(moves) > 0 {
		if err := w.engine.ApplyMoves(ctx, moves); err != nil {
			return err
		}
	}

	outgoing := &repository.HandoverForm{
		Direction:     repository.DirectionOutgoing,
		Giver:         current.Title,
		Receiver:      next.Title,
		SourceShelfID: current.ShelfID,
		TargetShelfID: next.ShelfID,
		Groups:        groups,
	}
	if _, err := w.handovers.AppendForm(ctx, current.ID, outgoing); err != nil {
		return err
	}
	incoming := &repository.HandoverForm{
		Direction:         repository.DirectionIncoming,
		Giver:             current.Title,
		Receiver:          next.Title,
		SourceStageTaskID: current.ID,
		SourceShelfID:     current.ShelfID,
		TargetShelfID:     next.ShelfID,
		Groups:            groups,
	}
	if _, err := w.handovers.AppendForm(ctx, next.ID, incoming); err != nil {
		return err
	}

	return w.CompleteStage(ctx, orderID, stageTaskID)
}

// CompleteStage marks a stage done and completes the order once every
// stage is done.
func (w *Wizard) CompleteStage(ctx context.Context, orderID, stageTaskID string) error {
	if err := w.stages.SetCompleted(ctx, stageTaskID, true); err != nil {
		return err
	}

	tasks, err := w.stages.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if !t.Completed {
			return nil
		}
	}

	order, err := w.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == repository.OrderStatusCompleted {
		return nil
	}
	if err := w.orders.UpdateStatus(ctx, orderID, repository.OrderStatusCompleted); err != nil {
		return err
	}
	w.publisher.PublishOrderStatusChanged(ctx, orderID, order.Status, repository.OrderStatusCompleted)
	return nil
}

// Progress is the read-only Progress step.
func (w *Wizard) Progress(ctx context.Context, groupID string) (*GroupProgress, error) {
	group, err := w.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	orders, err := w.orders.ListByIDs(ctx, group.OrderIDs)
	if err != nil {
		return nil, err
	}

	progress := &GroupProgress{GroupID: group.ID}
	for _, o := range orders {
		tasks, err := w.stages.ListByOrder(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		op := OrderProgress{OrderID: o.ID, Title: o.Title, Status: o.Status}
		for _, t := range tasks {
			op.Stages = append(op.Stages, StageProgress{
				StageTaskID: t.ID,
				Title:       t.Title,
				Position:    t.Position,
				Completed:   t.Completed,
				FormCount:   len(t.HandoverState.Forms),
			})
		}
		progress.Orders = append(progress.Orders, op)
	}
	progress.Status = deriveGroupStatus(orders)
	return progress, nil
}

// deriveGroupStatus is the coarsest aggregate of the bound orders'
// statuses.
func deriveGroupStatus(orders []*repository.ProductionOrder) string {
	if len(orders) == 0 {
		return repository.OrderStatusPending
	}
	all := true
	any := false
	for _, o := range orders {
		switch o.Status {
		case repository.OrderStatusCompleted:
			any = true
		case repository.OrderStatusInProgress:
			any = true
			all = false
		default:
			all = false
		}
	}
	if all {
		return repository.OrderStatusCompleted
	}
	if any {
		return repository.OrderStatusInProgress
	}
	return repository.OrderStatusPending
}

func (w *Wizard) memberOrder(ctx context.Context, groupID, orderID string) (*repository.OrderGroup, error) {
	group, err := w.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.Contains(orderID) {
		return nil, errors.BadRequest("order is not part of this group")
	}
	return group, nil
}

// highestStockShelf picks the shelf holding the most of the product. Used
// as the source default when no requirement names a shelf.
func (w *Wizard) highestStockShelf(ctx context.Context, productID string) string {
	records, err := w.stocks.ListByProduct(ctx, productID)
	if err != nil || len(records) == 0 {
		return ""
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Stock > records[j].Stock
	})
	return records[0].ShelfID
}

// defaultTargetStage resolves where a single-order requirement should land:
// the grid row's explicit target if set, else the order's first stage.
func (w *Wizard) defaultTargetStage(ctx context.Context, orders []*repository.ProductionOrder, orderID, category, productID string) string {
	for _, o := range orders {
		if o.ID != orderID {
			continue
		}
		for _, g := range o.Grids {
			if g.Category == category && g.SelectedProductID == productID && g.TargetStageTaskID != "" {
				return g.TargetStageTaskID
			}
		}
	}
	if first, err := w.stages.FirstForOrder(ctx, orderID); err == nil {
		return first.ID
	}
	return ""
}

func stageTitle(ctx context.Context, stages StageTaskStore, stageTaskID string) string {
	if t, err := stages.GetByID(ctx, stageTaskID); err == nil {
		return t.Title
	}
	return ""
}
