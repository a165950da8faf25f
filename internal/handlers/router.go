package handlers

import (
	"log/slog"

	"github.com/SAP-F-2025/session-engine/internal/services"
	"github.com/SAP-F-2025/session-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	mediaHandler   *MediaHandler
	reviewHandler  *ReviewHandler
	auth           gin.HandlerFunc
	mediaDir       string
}

func NewHandlerManager(
	sessions services.SessionManager,
	proctoring services.ProctoringService,
	exports services.ExportService,
	validator *utils.Validator,
	auth gin.HandlerFunc,
	mediaDir string,
	logger *slog.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(sessions, validator, logger),
		mediaHandler:   NewMediaHandler(sessions, logger),
		reviewHandler:  NewReviewHandler(proctoring, exports, logger),
		auth:           auth,
		mediaDir:       mediaDir,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// Stored media evidence
	router.Static("/media", hm.mediaDir)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(hm.auth)
	{
		// Session routes
		challenges := v1.Group("/challenges")
		{
			challenges.POST("/:id/session", hm.sessionHandler.Start)
			challenges.GET("/:id/session", hm.sessionHandler.State)
			challenges.DELETE("/:id/session", hm.sessionHandler.Teardown)
			challenges.POST("/:id/session/mutations", hm.sessionHandler.Mutate)
			challenges.POST("/:id/session/draft", hm.sessionHandler.SaveDraft)
			challenges.POST("/:id/session/submit", hm.sessionHandler.Submit)
			challenges.POST("/:id/session/violations", hm.sessionHandler.ReportViolation)
			challenges.GET("/:id/session/remaining", hm.sessionHandler.Remaining)
			challenges.POST("/:id/session/questions/:question_id/media", hm.mediaHandler.Attach)

			challenges.GET("/:id/export/submissions", hm.reviewHandler.ExportSubmissions)
		}

		// Review routes
		submissions := v1.Group("/submissions")
		{
			submissions.GET("/:id/violations", hm.reviewHandler.GetViolations)
			submissions.GET("/:id/export/violations", hm.reviewHandler.ExportViolations)
		}
	}
}
