package handler

import (
	"fmt"
	"net/http"

	"narravox-server/internal/export"
	"narravox-server/internal/models"
	"narravox-server/internal/service"
	"narravox-server/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionHeader carries the caller's session identifier. The handler
// creates a session when the header is absent or malformed and always
// echoes the effective id back on the response.
const SessionHeader = "X-Session-ID"

const sessionContextKey = "storySession"

// StoryHandler exposes the story orchestration over HTTP.
type StoryHandler struct {
	service       service.StoryService
	sessions      *session.Store
	publicBaseURL string
	logger        *zap.Logger
}

func NewStoryHandler(svc service.StoryService, sessions *session.Store, publicBaseURL string, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		service:       svc,
		sessions:      sessions,
		publicBaseURL: publicBaseURL,
		logger:        logger.Named("StoryHandler"),
	}
}

// RegisterRoutes attaches all story routes to the router.
func (h *StoryHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/story", h.sessionMiddleware())
	{
		api.POST("/start", h.startStory)
		api.POST("/continue", h.continueStory)
		api.POST("/options", h.generateOptions)
		api.POST("/enhance", h.enhanceCulture)
		api.POST("/profile", h.buildProfile)
		api.POST("/surprise", h.surpriseStory)
		api.POST("/reset", h.resetStory)
		api.GET("", h.getStory)
		api.GET("/stats", h.getStats)
		api.GET("/export/text", h.exportText)
		api.GET("/export/pdf", h.exportPDF)
	}
}

// sessionMiddleware resolves the session for the request and echoes its
// id so first-time callers learn the identifier to reuse.
func (h *StoryHandler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *session.Session
		if id, err := uuid.Parse(c.GetHeader(SessionHeader)); err == nil {
			sess = h.sessions.GetOrCreate(id)
		} else {
			sess = h.sessions.Create()
		}
		c.Header(SessionHeader, sess.ID().String())
		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

func (h *StoryHandler) session(c *gin.Context) *session.Session {
	return c.MustGet(sessionContextKey).(*session.Session)
}

func (h *StoryHandler) startStory(c *gin.Context) {
	var req startStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: errCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	sess := h.session(c)
	entry, err := h.service.StartStory(c.Request.Context(), sess, req.Prompt)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.turnResponse(sess, *entry))
}

func (h *StoryHandler) continueStory(c *gin.Context) {
	var req continueStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: errCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	sess := h.session(c)
	entry, err := h.service.ContinueStory(c.Request.Context(), sess, req.Input, req.IsBranchChoice)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.turnResponse(sess, *entry))
}

func (h *StoryHandler) generateOptions(c *gin.Context) {
	sess := h.session(c)
	options, err := h.service.GenerateBranchingOptions(c.Request.Context(), sess)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, optionsResponse{Options: options})
}

func (h *StoryHandler) enhanceCulture(c *gin.Context) {
	sess := h.session(c)
	newContext, discovered, err := h.service.EnhanceCulture(c.Request.Context(), sess)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, enhanceResponse{
		Discovered:      discovered,
		NewContext:      newContext,
		CulturalContext: sess.CulturalContext(),
	})
}

func (h *StoryHandler) buildProfile(c *gin.Context) {
	var req buildProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: errCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	sess := h.session(c)
	profile, err := h.service.BuildTasteProfile(c.Request.Context(), sess, req.Preferences)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		Preferences: profile.Preferences,
		Suggestions: profile.Suggestions,
		Source:      string(profile.Source),
	})
}

func (h *StoryHandler) surpriseStory(c *gin.Context) {
	sess := h.session(c)
	entry, err := h.service.SurpriseStory(c.Request.Context(), sess)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.turnResponse(sess, *entry))
}

func (h *StoryHandler) resetStory(c *gin.Context) {
	sess := h.session(c)
	sess.BeginOp()
	sess.Reset()
	sess.EndOp()
	h.logger.Info("Session reset", zap.String("session_id", sess.ID().String()))
	c.JSON(http.StatusOK, gin.H{"session_id": sess.ID().String(), "reset": true})
}

func (h *StoryHandler) getStory(c *gin.Context) {
	sess := h.session(c)

	entries := sess.Entries()
	resp := storyResponse{
		SessionID:            sess.ID().String(),
		Started:              sess.Started(),
		Entries:              make([]entryResponse, 0, len(entries)),
		TurnCount:            sess.TurnCount(),
		MaxTurns:             models.MaxTurns,
		IsComplete:           sess.IsComplete(),
		CulturalContext:      sess.CulturalContext(),
		CulturalExplanations: sess.CulturalExplanations(),
		BranchingOptions:     sess.BranchingOptions(),
		Suggestions:          sess.Suggestions(),
		LastError:            sess.LastError(),
	}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, toEntryResponse(entry))
	}
	if sess.Started() && h.publicBaseURL != "" {
		resp.ShareLink = export.ShareableLink(h.publicBaseURL, sess.ID().String())
		resp.SocialExcerpt = export.SocialExcerpt(sess.ExportData())
	}

	c.JSON(http.StatusOK, resp)
}

func (h *StoryHandler) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.session(c).Stats())
}

func (h *StoryHandler) exportText(c *gin.Context) {
	sess := h.session(c)
	text := export.CreateStoryText(sess.ExportData())

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=narravox_story_%s.txt", sess.ID().String()))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (h *StoryHandler) exportPDF(c *gin.Context) {
	sess := h.session(c)
	pdfBytes, err := export.CreateStoryPDF(sess.ExportData())
	if err != nil {
		h.logger.Error("PDF export failed", zap.Error(err), zap.String("session_id", sess.ID().String()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Code: errCodeInternal, Message: "PDF generation failed"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=narravox_story_%s.pdf", sess.ID().String()))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func (h *StoryHandler) turnResponse(sess *session.Session, entry models.StoryEntry) turnResponse {
	return turnResponse{
		Entry:           toEntryResponse(entry),
		TurnCount:       sess.TurnCount(),
		MaxTurns:        models.MaxTurns,
		IsComplete:      sess.IsComplete(),
		CulturalContext: sess.CulturalContext(),
	}
}
