package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/internal/production/service"
	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/httputil"
	"github.com/bartarleather/erp-backend/pkg/logger"
)

// InventoryHandler handles stock query and adjustment endpoints
type InventoryHandler struct {
	records *repository.InventoryRepository
	ledger  *service.Ledger
	logger  *logger.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(records *repository.InventoryRepository, ledger *service.Ledger, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{
		records: records,
		ledger:  ledger,
		logger:  log,
	}
}

// ListByProduct lists a product's stock across shelves
// GET /inventory/products/{productID}
func (h *InventoryHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	records, err := h.records.ListByProduct(r.Context(), productID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, records)
}

// ListByShelf lists a shelf's contents
// GET /inventory/shelves/{shelfID}
func (h *InventoryHandler) ListByShelf(w http.ResponseWriter, r *http.Request) {
	shelfID := chi.URLParam(r, "shelfID")

	records, err := h.records.ListByShelf(r.Context(), shelfID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, records)
}

// DeltaRequest is one signed stock change
type DeltaRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	ShelfID   string  `json:"shelf_id" validate:"required"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit,omitempty"`
}

// ApplyDeltasRequest applies a batch of stock deltas
type ApplyDeltasRequest struct {
	Deltas             []DeltaRequest `json:"deltas" validate:"min=1,dive"`
	AllowNegativeStock bool           `json:"allow_negative_stock,omitempty"`
	AcceptConversions  *bool          `json:"accept_conversions,omitempty"`
}

// ApplyDeltas applies a manual stock adjustment batch
// POST /inventory/deltas
func (h *InventoryHandler) ApplyDeltas(w http.ResponseWriter, r *http.Request) {
	var req ApplyDeltasRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	deltas := make([]service.StockDelta, len(req.Deltas))
	touched := make(map[string]bool)
	for i, d := range req.Deltas {
		deltas[i] = service.StockDelta{
			ProductID: d.ProductID,
			ShelfID:   d.ShelfID,
			Quantity:  d.Quantity,
			Unit:      unit.Unit(d.Unit),
		}
		touched[d.ProductID] = true
	}

	ctx := r.Context()
	if req.AcceptConversions != nil {
		ctx = service.WithConversionApproval(ctx, *req.AcceptConversions)
	}

	opts := service.ApplyOptions{AllowNegativeStock: req.AllowNegativeStock}
	if err := h.ledger.ApplyDeltas(ctx, deltas, opts); err != nil {
		httputil.Error(w, r, err)
		return
	}

	for productID := range touched {
		if err := h.ledger.SyncProductStock(ctx, productID); err != nil {
			h.logger.Error().Err(err).Str("product_id", productID).Msg("failed to sync product totals")
		}
	}

	httputil.NoContent(w)
}
