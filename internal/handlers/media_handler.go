package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/SAP-F-2025/session-engine/internal/services"
	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	BaseHandler
	sessions services.SessionManager
}

func NewMediaHandler(sessions services.SessionManager, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
	}
}

// Attach receives a multipart media blob for one question: the finished
// audio capture for audio questions, an attached file for writing questions.
func (h *MediaHandler) Attach(c *gin.Context) {
	challengeID := h.parseIDParam(c, "id")
	if challengeID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}
	studentID, ok := h.studentID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	ref, err := h.sessions.AttachMedia(c.Request.Context(), challengeID, studentID, questionID, fileHeader.Filename, mimeType, data)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Media attached",
		Data:    gin.H{"ref": ref},
	})
}
