package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/session-engine/internal/engine"
	"github.com/SAP-F-2025/session-engine/internal/services"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER =====

type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

// studentID returns the authenticated student, set by the auth middleware.
func (h *BaseHandler) studentID(c *gin.Context) (string, bool) {
	id, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return id.(string), true
}

// handleServiceError translates service and engine errors to HTTP statuses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	var status int
	switch {
	case services.IsNotFound(err) || errors.Is(err, engine.ErrQuestionNotFound):
		status = http.StatusNotFound
	case services.IsValidation(err),
		errors.Is(err, services.ErrUnknownAction),
		errors.Is(err, services.ErrActionMismatch),
		errors.Is(err, services.ErrMissingArgument),
		errors.Is(err, engine.ErrUnknownSlot),
		errors.Is(err, engine.ErrItemUnavailable),
		errors.Is(err, engine.ErrSequenceMismatch),
		errors.Is(err, services.ErrMediaEmpty),
		errors.Is(err, services.ErrMediaUnsupported):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrMediaTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, engine.ErrSessionViewOnly),
		errors.Is(err, engine.ErrSessionSubmitted),
		errors.Is(err, engine.ErrSessionClosed),
		errors.Is(err, engine.ErrCaptureActive),
		errors.Is(err, engine.ErrNoCaptureActive):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		h.logger.Error("request failed",
			"path", c.Request.URL.Path,
			"error", err)
	}
	c.JSON(status, ErrorResponse{Message: err.Error()})
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
