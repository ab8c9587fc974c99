package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/s2010/story-twister/internal/model"
	"github.com/s2010/story-twister/internal/service"
)

// StoryHandler handles the participant story endpoints.
type StoryHandler struct {
	stories  *service.StoryService
	analyses *service.AnalysisService
	reports  *service.ReportService
}

// NewStoryHandler creates a story handler.
func NewStoryHandler(stories *service.StoryService, analyses *service.AnalysisService, reports *service.ReportService) *StoryHandler {
	return &StoryHandler{stories: stories, analyses: analyses, reports: reports}
}

// Create godoc
// POST /api/v1/stories
func (h *StoryHandler) Create(c *gin.Context) {
	var req model.CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	story, err := h.stories.CreateStory(teamCodeFrom(c), req.Title, req.InitialPrompt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.StoryFromEntity(story))
}

// List godoc
// GET /api/v1/stories
func (h *StoryHandler) List(c *gin.Context) {
	stories, err := h.stories.Stories(teamCodeFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]model.StoryView, 0, len(stories))
	for i := range stories {
		views = append(views, model.StoryFromEntity(&stories[i]))
	}
	c.JSON(http.StatusOK, gin.H{"stories": views})
}

// Active godoc
// GET /api/v1/stories/active
func (h *StoryHandler) Active(c *gin.Context) {
	story, err := h.stories.ActiveStory(teamCodeFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StoryFromEntity(story))
}

// Turns godoc
// GET /api/v1/stories/:id/turns
func (h *StoryHandler) Turns(c *gin.Context) {
	turns, err := h.stories.Turns(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]model.TurnView, 0, len(turns))
	for i := range turns {
		views = append(views, model.TurnFromEntity(&turns[i]))
	}
	c.JSON(http.StatusOK, gin.H{"turns": views})
}

// AddSentence godoc
// POST /api/v1/stories/add-sentence
func (h *StoryHandler) AddSentence(c *gin.Context) {
	var req model.AddSentenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	turn, twist, err := h.stories.AppendTurn(c.Request.Context(), req.StoryID, nicknameFrom(c), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.AddSentenceResponse{
		Message:    "Sentence added to the story!",
		TurnNumber: turn.TurnNumber,
		TwistAdded: twist != nil,
	})
}

// Twist godoc
// POST /api/v1/stories/twist
func (h *StoryHandler) Twist(c *gin.Context) {
	var req model.TwistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	twist, err := h.stories.InjectTwist(c.Request.Context(), req.StoryID, nicknameFrom(c)+" (Twist)")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.TurnFromEntity(twist))
}

// Status godoc
// GET /api/v1/stories/:id/status
func (h *StoryHandler) Status(c *gin.Context) {
	status, err := h.stories.Status(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Analysis godoc
// GET /api/v1/stories/:id/analysis
func (h *StoryHandler) Analysis(c *gin.Context) {
	analysis, err := h.analyses.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.AnalysisFromEntity(analysis))
}

// Leaderboard godoc
// GET /api/v1/leaderboard/teams
func (h *StoryHandler) Leaderboard(c *gin.Context) {
	board, err := h.reports.Leaderboard()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}
