package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/internal/production/unit"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/bartarleather/erp-backend/pkg/httputil"
	"github.com/bartarleather/erp-backend/pkg/logger"
)

// CatalogHandler handles product and shelf catalog endpoints
type CatalogHandler struct {
	products *repository.ProductRepository
	shelves  *repository.ShelfRepository
	orders   *repository.OrderRepository
	logger   *logger.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(products *repository.ProductRepository, shelves *repository.ShelfRepository, orders *repository.OrderRepository, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		products: products,
		shelves:  shelves,
		orders:   orders,
		logger:   log,
	}
}

// CreateProductRequest creates a product
type CreateProductRequest struct {
	Name     string `json:"name" validate:"required"`
	MainUnit string `json:"main_unit" validate:"required"`
	SubUnit  string `json:"sub_unit,omitempty"`
}

// CreateProduct creates a new product
// POST /products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	mainUnit := unit.Unit(req.MainUnit)
	if !unit.Known(mainUnit) {
		httputil.Error(w, r, errors.BadRequest("unknown main unit"))
		return
	}

	p := &repository.Product{
		Name:     req.Name,
		MainUnit: mainUnit,
	}
	if req.SubUnit != "" {
		subUnit := unit.Unit(req.SubUnit)
		if !unit.Known(subUnit) {
			httputil.Error(w, r, errors.BadRequest("unknown sub unit"))
			return
		}
		p.SubUnit = &subUnit
	}

	if err := h.products.Create(r.Context(), p); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, p)
}

// GetProduct gets a product
// GET /products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, p)
}

// ListProducts lists all products
// GET /products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, products)
}

// CreateShelfRequest creates a shelf
type CreateShelfRequest struct {
	WarehouseID string `json:"warehouse_id" validate:"required"`
	Label       string `json:"label" validate:"required"`
}

// CreateShelf creates a new shelf
// POST /shelves
func (h *CatalogHandler) CreateShelf(w http.ResponseWriter, r *http.Request) {
	var req CreateShelfRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	s := &repository.Shelf{
		WarehouseID: req.WarehouseID,
		Label:       req.Label,
	}
	if err := h.shelves.Create(r.Context(), s); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, s)
}

// ListShelves lists a warehouse's shelves
// GET /warehouses/{warehouseID}/shelves
func (h *CatalogHandler) ListShelves(w http.ResponseWriter, r *http.Request) {
	warehouseID := chi.URLParam(r, "warehouseID")

	shelves, err := h.shelves.ListByWarehouse(r.Context(), warehouseID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, shelves)
}

// CreateOrderRequest creates a production order
type CreateOrderRequest struct {
	Title    string  `json:"title" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
}

// CreateOrder creates a new production order
// POST /orders
func (h *CatalogHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	o := &repository.ProductionOrder{
		Title:    req.Title,
		Quantity: req.Quantity,
	}
	if err := h.orders.Create(r.Context(), o); err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.Created(w, o)
}

// GetOrder gets a production order
// GET /orders/{id}
func (h *CatalogHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, o)
}
