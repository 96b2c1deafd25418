package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/domain/audit"
)

// AuditHandler serves the audit trail of sales and cash sessions.
type AuditHandler struct {
	*BaseHandler
	history audit.History
}

func NewAuditHandler(base *BaseHandler, history audit.History) *AuditHandler {
	return &AuditHandler{BaseHandler: base, history: history}
}

var auditEntityTypes = map[string]bool{
	"sale":         true,
	"cash_session": true,
	"product":      true,
}

// History handles GET /audit/:entityType/:id
func (h *AuditHandler) History(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	entityType := c.Param("entityType")
	if !auditEntityTypes[entityType] {
		h.Error(c, apperror.NewValidation("unknown entity type").WithDetail("entity_type", entityType))
		return
	}
	entityID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			h.Error(c, apperror.NewValidation("limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	records, err := h.history.EntityHistory(c.Request.Context(), actor.TenantID, entityType, entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": records})
}
