package handler

import (
	"errors"
	"net/http"

	"github.com/erp/bridge/internal/application/syncer"
	"github.com/erp/bridge/internal/domain/shared"
	"github.com/erp/bridge/internal/infrastructure/logger"
	"github.com/erp/bridge/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := logger.GetRequestID(c.Request.Context()); id != "" {
		return id
	}
	return c.GetHeader(logger.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the status code of code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeNotFound, message)
}

// HandleError converts sync and domain errors to HTTP responses. Errors
// without a mapping are logged and answered with 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var domainErr *shared.DomainError
	switch {
	case errors.Is(err, syncer.ErrRunInProgress):
		h.Error(c, dto.ErrCodeRunInProgress, err.Error())
	case errors.Is(err, syncer.ErrUnknownKind):
		h.Error(c, dto.ErrCodeUnknownKind, err.Error())
	case errors.Is(err, syncer.ErrInvalidDirection):
		h.Error(c, dto.ErrCodeDirection, err.Error())
	case errors.Is(err, syncer.ErrNotPurgeable):
		h.Error(c, dto.ErrCodeNotPurgeable, err.Error())
	case errors.As(err, &domainErr):
		h.Error(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
	default:
		_ = c.Error(err)
		logger.FromContext(c.Request.Context()).Error("Request failed", zap.Error(err))
		h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
	}
}
