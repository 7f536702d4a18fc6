package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/service"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

type APIResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
	OutOfStock bool   `json:"out_of_stock,omitempty"`
	Available  *int   `json:"available,omitempty"`
	Requested  *int   `json:"requested,omitempty"`
}

func writeData(c *gin.Context, status int, message string, data any) {
	c.JSON(status, APIResponse{Success: true, Message: message, Data: data})
}

func writeFailure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, APIResponse{Success: false, Message: message})
}

// writeError maps a service error onto a status code. Anything unrecognized
// is logged and reported as a bare 500.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		available, requested := stockErr.Available, stockErr.Requested
		c.AbortWithStatusJSON(http.StatusBadRequest, APIResponse{
			Success:    false,
			Message:    "insufficient stock",
			OutOfStock: true,
			Available:  &available,
			Requested:  &requested,
		})
		return
	}

	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		writeFailure(c, status, "internal error")
		return
	}
	writeFailure(c, status, err.Error())
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrDuplicatePayment):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidSignature), errors.Is(err, service.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, port.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
