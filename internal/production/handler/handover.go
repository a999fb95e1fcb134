package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bartarleather/erp-backend/internal/production/service"
	"github.com/bartarleather/erp-backend/pkg/httputil"
	"github.com/bartarleather/erp-backend/pkg/logger"
)

// HandoverHandler handles stage task handover endpoints
type HandoverHandler struct {
	handovers *service.HandoverService
	logger    *logger.Logger
}

// NewHandoverHandler creates a new handover handler
func NewHandoverHandler(handovers *service.HandoverService, log *logger.Logger) *HandoverHandler {
	return &HandoverHandler{
		handovers: handovers,
		logger:    log,
	}
}

// List lists a stage task's handover forms
// GET /stage-tasks/{id}/handovers?direction=incoming|outgoing
func (h *HandoverHandler) List(w http.ResponseWriter, r *http.Request) {
	stageTaskID := chi.URLParam(r, "id")
	direction := r.URL.Query().Get("direction")

	forms, err := h.handovers.ListForms(r.Context(), stageTaskID, direction)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, forms)
}

// ConfirmRequest records one side's sign-off
type ConfirmRequest struct {
	Side  string `json:"side" validate:"required,oneof=giver receiver"`
	Actor string `json:"actor,omitempty"`
}

// Confirm confirms one side of a handover form
// POST /stage-tasks/{id}/handovers/{formID}/confirm
func (h *HandoverHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	stageTaskID := chi.URLParam(r, "id")
	formID := chi.URLParam(r, "formID")

	var req ConfirmRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = httputil.GetActor(r.Context())
	}

	form, settled, err := h.handovers.Confirm(r.Context(), stageTaskID, formID, req.Side, actor)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"form":    form,
		"settled": settled,
	})
}
