package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SAP-F-2025/session-engine/internal/services"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReviewHandler serves the after-the-fact surfaces: persisted violation
// history and spreadsheet exports.
type ReviewHandler struct {
	BaseHandler
	proctoring services.ProctoringService
	exports    services.ExportService
}

func NewReviewHandler(proctoring services.ProctoringService, exports services.ExportService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		BaseHandler: NewBaseHandler(logger),
		proctoring:  proctoring,
		exports:     exports,
	}
}

// GetViolations lists the persisted violation records of a submission.
func (h *ReviewHandler) GetViolations(c *gin.Context) {
	submissionID := h.parseIDParam(c, "id")
	if submissionID == 0 {
		return
	}
	requesterID, ok := h.studentID(c)
	if !ok {
		return
	}

	records, err := h.proctoring.GetViolations(c.Request.Context(), submissionID, requesterID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Violations retrieved", Data: records})
}

// ExportSubmissions streams the submissions of a challenge as a spreadsheet.
func (h *ReviewHandler) ExportSubmissions(c *gin.Context) {
	challengeID := h.parseIDParam(c, "id")
	if challengeID == 0 {
		return
	}

	data, err := h.exports.ExportSubmissions(c.Request.Context(), challengeID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("challenge_%d_submissions.xlsx", challengeID)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportViolations streams a submission's violation history as a spreadsheet.
func (h *ReviewHandler) ExportViolations(c *gin.Context) {
	submissionID := h.parseIDParam(c, "id")
	if submissionID == 0 {
		return
	}

	data, err := h.exports.ExportViolations(c.Request.Context(), submissionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("submission_%d_violations.xlsx", submissionID)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
}
