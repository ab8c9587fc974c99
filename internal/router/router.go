package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/s2010/story-twister/internal/handler"
	"github.com/s2010/story-twister/pkg/constants"
)

// New builds the HTTP router.
func New(
	sessionHandler *handler.SessionHandler,
	storyHandler *handler.StoryHandler,
	adminHandler *handler.AdminHandler,
	feedWS *handler.FeedWSHandler,
	health *handler.HealthHandler,
	adminToken string,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	// Participant API: identity comes from the event headers.
	api := r.Group("/api/v1")
	api.Use(handler.RequireEventHeaders())
	{
		api.POST("/sessions/join", sessionHandler.Join)
		api.POST("/sessions/:id/complete", sessionHandler.Complete)

		api.POST("/stories", storyHandler.Create)
		api.GET("/stories", storyHandler.List)
		api.GET("/stories/active", storyHandler.Active)
		api.POST("/stories/add-sentence", storyHandler.AddSentence)
		api.POST("/stories/twist", storyHandler.Twist)
		api.GET("/stories/:id/turns", storyHandler.Turns)
		api.GET("/stories/:id/status", storyHandler.Status)
		api.GET("/stories/:id/analysis", storyHandler.Analysis)

		api.GET("/leaderboard/teams", storyHandler.Leaderboard)
	}

	// Operator API: static bearer token.
	admin := r.Group("/api/v1/admin")
	admin.Use(handler.RequireAdminToken(adminToken))
	{
		admin.POST("/bootstrap", adminHandler.Bootstrap)
		admin.POST("/rooms", adminHandler.CreateRoom)
		admin.POST("/rooms/start", adminHandler.StartRoom)
		admin.GET("/snapshot", adminHandler.Snapshot)
		admin.POST("/twist", adminHandler.Twist)
		admin.POST("/timer", adminHandler.Timer)
		admin.POST("/end", adminHandler.End)
		admin.GET("/export/csv", adminHandler.ExportCSV)
		admin.GET("/export/json", adminHandler.ExportJSON)
		admin.GET("/sessions", adminHandler.Sessions)
		admin.POST("/sessions", adminHandler.CreateSession)
		admin.POST("/sessions/:id/start", adminHandler.StartSession)
		admin.DELETE("/sessions/:id", adminHandler.DeleteSession)
	}

	// WebSocket: /ws/feed/:team_code
	r.GET("/ws/feed/:team_code", feedWS.ServeWS)

	return r
}
