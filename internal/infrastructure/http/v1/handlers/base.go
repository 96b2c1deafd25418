// Package handlers adapts HTTP requests to the POS services.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"cashpoint/internal/core/apperror"
	appctx "cashpoint/internal/core/context"
	"cashpoint/internal/core/id"
	"cashpoint/internal/infrastructure/http/v1/middleware"
)

// BaseHandler is embedded by every resource handler.
type BaseHandler struct{}

func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON decodes and validates the body. On failure the 400 lists the
// offending fields by JSON path, e.g. {"items[0].quantity": "gt"}.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, bindError("invalid request body", err))
		return false
	}
	return true
}

func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, bindError("invalid query parameters", err))
		return false
	}
	return true
}

func bindError(message string, err error) *apperror.AppError {
	appErr := apperror.NewValidation(message)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErr.WithDetail("error", err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// Namespace is "Type.field.sub"; the root type name is noise.
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		fields[path] = fe.Tag()
	}
	return appErr.WithDetail("fields", fields)
}

// Error hands err to middleware.ErrorHandler, which renders it.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Actor returns the caller resolved by the auth middleware.
func (h *BaseHandler) Actor(c *gin.Context) (appctx.Actor, bool) {
	actor, err := appctx.GetActor(c.Request.Context())
	if err != nil {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return appctx.Actor{}, false
	}
	return actor, true
}

func (h *BaseHandler) ParamID(c *gin.Context, name string) (id.ID, bool) {
	parsed, err := id.Parse(c.Param(name))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+name+" format"))
		return id.ID{}, false
	}
	return parsed, true
}

// Created and OK also store the response for an idempotent replay.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	h.respond(c, http.StatusCreated, data)
}

func (h *BaseHandler) OK(c *gin.Context, data any) {
	h.respond(c, http.StatusOK, data)
}

func (h *BaseHandler) respond(c *gin.Context, status int, data any) {
	middleware.CompleteIdempotency(c, status, data)
	c.JSON(status, data)
}
