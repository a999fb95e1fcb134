package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/pkg/httputil"
	"github.com/bartarleather/erp-backend/pkg/logger"
)

// TransferHandler handles transfer log endpoints
type TransferHandler struct {
	transfers *repository.TransferRepository
	logger    *logger.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(transfers *repository.TransferRepository, log *logger.Logger) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		logger:    log,
	}
}

// ListRecent lists the newest transfer log entries
// GET /transfers
func (h *TransferHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.transfers.ListRecent(r.Context(), limit)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// ListByProduct lists a product's transfer history
// GET /transfers/products/{productID}
func (h *TransferHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.transfers.ListByProduct(r.Context(), productID, limit)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}
