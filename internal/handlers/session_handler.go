package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/SAP-F-2025/session-engine/internal/services"
	"github.com/SAP-F-2025/session-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	BaseHandler
	sessions  services.SessionManager
	validator *utils.Validator
}

func NewSessionHandler(sessions services.SessionManager, validator *utils.Validator, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
		validator:   validator,
	}
}

// Start creates or resumes the caller's session against a challenge.
func (h *SessionHandler) Start(c *gin.Context) {
	challengeID := h.parseIDParam(c, "id")
	if challengeID == 0 {
		return
	}
	studentID, ok := h.studentID(c)
	if !ok {
		return
	}

	view, err := h.sessions.Start(c.Request.Context(), challengeID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// State returns the current session view.
func (h *SessionHandler) State(c *gin.Context) {
	challengeID := h.parseIDParam(c, "id")
	if challengeID == 0 {
		return
	}
	studentID, ok := h.studentID(c)
	if !ok {
		return
	}

	view, err := h.sessions.State(c.Request.Context(), challengeID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Mutate applies one widget interaction.
func (h *SessionHandler) Mutate(c *gin.Context) {
	challengeID := h.parseIDParam(c, "id")
	if challengeID == 0 {
		return
	}
	studentID, ok := h.studentID(c)
	if !ok {
		return
	}

	var req services.MutateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.sessions.Mutate(c.Request.Context(), challengeID, studentID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Mutation applied"})
}

// SaveDraft forces an immediate draft save.
func (h *SessionHandler) SaveDraft(c *gin.Context) {
	challengeID := h.parseIDParam(c, "id")
	if challengeID == 0 {
		return
	}
	studentID, ok := h.studentID(c)
	if !ok {
		return
	}

	view, err := h.sessions.SaveDraft(c.Request.Context(), challengeID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Draft saved", Data: view})
}

// Submit finalizes the attempt.
func (h *SessionHandler) Submit(c *gin.Context) {
	challengeID := h.parseIDParam(c, "id")
	if challengeID == 0 {
		return
	}
	studentID, ok := h.studentID(c)
	if !ok {
		return
	}

	view, err := h.sessions.Submit(c.Request.Context(), challengeID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Submission completed", Data: view})
}

// ReportViolation feeds a detected proctoring event into the session.
func (h *SessionHandler) ReportViolation(c *gin.Context) {
	challengeID := h.parseIDParam(c, "id")
	if challengeID == 0 {
		return
	}
	studentID, ok := h.studentID(c)
	if !ok {
		return
	}

	var ev models.ViolationEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	outcome, err := h.sessions.ReportViolation(c.Request.Context(), challengeID, studentID, ev)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Remaining returns the countdown state.
func (h *SessionHandler) Remaining(c *gin.Context) {
	challengeID := h.parseIDParam(c, "id")
	if challengeID == 0 {
		return
	}
	studentID, ok := h.studentID(c)
	if !ok {
		return
	}

	view, err := h.sessions.Remaining(c.Request.Context(), challengeID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Teardown destroys the caller's session after a final flush.
func (h *SessionHandler) Teardown(c *gin.Context) {
	challengeID := h.parseIDParam(c, "id")
	if challengeID == 0 {
		return
	}
	studentID, ok := h.studentID(c)
	if !ok {
		return
	}

	if err := h.sessions.Teardown(c.Request.Context(), challengeID, studentID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Session torn down"})
}
