package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/internal/production/service"
	"github.com/bartarleather/erp-backend/pkg/httputil"
	"github.com/bartarleather/erp-backend/pkg/logger"
)

// GroupHandler handles the group order wizard endpoints
type GroupHandler struct {
	wizard *service.Wizard
	logger *logger.Logger
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(wizard *service.Wizard, log *logger.Logger) *GroupHandler {
	return &GroupHandler{
		wizard: wizard,
		logger: log,
	}
}

// CreateGroupRequest binds a set of pending orders into a group
type CreateGroupRequest struct {
	OrderIDs []string `json:"order_ids" validate:"min=1,dive,required"`
}

// Create creates a new order group
// POST /groups
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	group, err := h.wizard.CreateGroup(r.Context(), req.OrderIDs)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, group)
}

// SaveMaterialsRequest replaces one order's material grids
type SaveMaterialsRequest struct {
	Grids repository.GridGroups `json:"grids"`
}

// SaveMaterials saves one order's material grids
// PUT /groups/{id}/materials/{orderID}
func (h *GroupHandler) SaveMaterials(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	orderID := chi.URLParam(r, "orderID")

	var req SaveMaterialsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	grids, err := h.wizard.SaveMaterials(r.Context(), groupID, orderID, req.Grids)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, grids)
}

// SaveLinesRequest assigns target quantities and stage definitions
type SaveLinesRequest struct {
	Lines []service.OrderLine `json:"lines" validate:"min=1,dive"`
}

// SaveLines saves the group's production lines
// PUT /groups/{id}/lines
func (h *GroupHandler) SaveLines(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	var req SaveLinesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	if err := h.wizard.SaveLines(r.Context(), groupID, req.Lines); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.NoContent(w)
}

// PrepareStart returns the prepared start plan for operator review
// GET /groups/{id}/start
func (h *GroupHandler) PrepareStart(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	plan, err := h.wizard.PrepareStart(r.Context(), groupID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, plan)
}

// StartRequest commits the reviewed start plan
type StartRequest struct {
	Groups []service.StartGroup `json:"groups" validate:"min=1"`
	// AcceptConversions pre-approves any cross-unit quantity
	// reinterpretation this start requires.
	AcceptConversions *bool `json:"accept_conversions,omitempty"`
}

// Start commits the start plan and begins production
// POST /groups/{id}/start
func (h *GroupHandler) Start(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	var req StartRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	ctx := r.Context()
	if req.AcceptConversions != nil {
		ctx = service.WithConversionApproval(ctx, *req.AcceptConversions)
	}

	if err := h.wizard.StartProduction(ctx, groupID, req.Groups); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.NoContent(w)
}

// Progress returns the group's read-only progress report
// GET /groups/{id}/progress
func (h *GroupHandler) Progress(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")

	progress, err := h.wizard.Progress(r.Context(), groupID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, progress)
}

// AdvanceStage hands a stage's shelf contents over to the next stage
// POST /orders/{orderID}/stages/{stageID}/advance
func (h *GroupHandler) AdvanceStage(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	stageID := chi.URLParam(r, "stageID")
	actor := httputil.GetActor(r.Context())

	if err := h.wizard.AdvanceStage(r.Context(), orderID, stageID, actor); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.NoContent(w)
}

// CompleteStage marks a stage done without a downstream handover
// POST /orders/{orderID}/stages/{stageID}/complete
func (h *GroupHandler) CompleteStage(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	stageID := chi.URLParam(r, "stageID")

	if err := h.wizard.CompleteStage(r.Context(), orderID, stageID); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.NoContent(w)
}
