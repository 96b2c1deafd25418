package handlers

import (
	"github.com/gin-gonic/gin"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/domain/registers/stock"
	"cashpoint/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for the stock ledger.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock ledger handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// ApplyChange handles POST /stock/changes
func (h *StockHandler) ApplyChange(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.StockChangeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	change, err := req.ToChange()
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}

	m, err := h.service.ApplyStockChange(c.Request.Context(), actor, change)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m)
}

// BulkAdjust handles POST /stock/changes/bulk
func (h *StockHandler) BulkAdjust(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.BulkAdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}
	changes, err := req.ToChanges()
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}

	movements, err := h.service.BulkAdjust(c.Request.Context(), actor, changes)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, gin.H{"items": movements})
}

// Movements handles GET /stock/movements
func (h *StockHandler) Movements(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var q dto.MovementListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.History(c.Request.Context(), actor, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// LowStock handles GET /stock/low
func (h *StockHandler) LowStock(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	products, err := h.service.LowStock(c.Request.Context(), actor)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": products})
}
