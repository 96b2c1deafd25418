package handlers

import (
	"github.com/gin-gonic/gin"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/domain/documents/sale"
	"cashpoint/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles HTTP requests for sales.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Create handles POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}

	s, err := h.service.CreateSale(c.Request.Context(), actor, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, s)
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.ListSales(c.Request.Context(), actor, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	s, err := h.service.FindSale(c.Request.Context(), actor, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// Cancel handles POST /sales/:id/cancel
func (h *SaleHandler) Cancel(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	s, err := h.service.CancelSale(c.Request.Context(), actor, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}
