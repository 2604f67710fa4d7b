// Package handler exposes the title ledger over HTTP.
package handler

import (
	"errors"
	"net/http"

	appfinance "github.com/freteflow/backend/internal/application/finance"
	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/freteflow/backend/internal/interfaces/http/dto"
	"github.com/freteflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common response helpers for all handlers
type BaseHandler struct {
	logger *zap.Logger
}

// NewBaseHandler creates a new BaseHandler
func NewBaseHandler(logger *zap.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// scope builds the request scope from the identifiers set by the scope
// middleware
func (h *BaseHandler) scope(c *gin.Context) appfinance.Scope {
	return appfinance.Scope{
		OrganizationID: middleware.GetOrganizationID(c),
		BranchID:       middleware.GetBranchID(c),
		ActorID:        middleware.GetActorID(c),
	}
}

// Success sends a 200 response with data
func (h *BaseHandler) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with data and pagination metadata
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data interface{}, meta dto.Meta) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, meta))
}

// Created sends a 201 response with data
func (h *BaseHandler) Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponse(code, message))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError maps an error to an HTTP response. Domain errors carry their
// own code and kind; anything else is an internal fault whose details stay
// in the log.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr)
		if status >= http.StatusInternalServerError {
			h.logger.Error("domain integrity failure",
				zap.String("code", domainErr.Code),
				zap.String("message", domainErr.Message),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", middleware.GetRequestID(c)))
		}
		h.Error(c, status, domainErr.Code, domainErr.Message)
		return
	}

	h.logger.Error("unhandled error",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", middleware.GetRequestID(c)))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An internal error occurred")
}
