package handlers

import (
	"github.com/gin-gonic/gin"

	"cashpoint/internal/domain/documents/cash_session"
	"cashpoint/internal/infrastructure/http/v1/dto"
)

// CashSessionHandler handles HTTP requests for cash drawer sessions.
type CashSessionHandler struct {
	*BaseHandler
	service *cash_session.Service
}

// NewCashSessionHandler creates a new cash session handler.
func NewCashSessionHandler(base *BaseHandler, service *cash_session.Service) *CashSessionHandler {
	return &CashSessionHandler{BaseHandler: base, service: service}
}

// Open handles POST /cash-sessions
func (h *CashSessionHandler) Open(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.OpenSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.service.Open(c.Request.Context(), actor, req.OpeningAmount)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, s)
}

// List handles GET /cash-sessions
func (h *CashSessionHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var q dto.SessionListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.ListSessions(c.Request.Context(), actor, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// Active handles GET /cash-sessions/active
func (h *CashSessionHandler) Active(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	s, err := h.service.FindActiveSession(c.Request.Context(), actor)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// Get handles GET /cash-sessions/:id
func (h *CashSessionHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	sessionID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	s, err := h.service.FindSession(c.Request.Context(), actor, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// Totals handles GET /cash-sessions/:id/totals
func (h *CashSessionHandler) Totals(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	sessionID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	totals, err := h.service.LiveTotals(c.Request.Context(), actor, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.LiveTotalsResponse{SessionID: sessionID.String(), Totals: totals})
}

// AddMovement handles POST /cash-sessions/:id/movements
func (h *CashSessionHandler) AddMovement(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	sessionID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.CashMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.service.AddMovement(c.Request.Context(), actor, sessionID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m)
}

// Movements handles GET /cash-sessions/:id/movements
func (h *CashSessionHandler) Movements(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	sessionID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	movements, err := h.service.FindSessionMovements(c.Request.Context(), actor, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": movements})
}

// Close handles POST /cash-sessions/:id/close
func (h *CashSessionHandler) Close(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	sessionID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.CloseSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.service.Close(c.Request.Context(), actor, sessionID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}
