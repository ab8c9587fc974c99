package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/s2010/story-twister/internal/errs"
)

// respondError maps service errors onto HTTP responses. Unknown errors are
// reported as 500 without leaking detail.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
	case errors.Is(err, errs.ErrSessionNotStarted):
		c.JSON(http.StatusForbidden, gin.H{"error": "session_not_started", "message": "waiting for the operator to start the session"})
	case errors.Is(err, errs.ErrSessionExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_expired", "message": "time is up for this story"})
	case errors.Is(err, errs.ErrStoryNotActive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "story_not_active", "message": "this story is no longer accepting turns"})
	case errors.Is(err, errs.ErrSessionNotWaiting):
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_not_waiting", "message": "only a waiting session can be started"})
	case errors.Is(err, errs.ErrTeamExists):
		c.JSON(http.StatusConflict, gin.H{"error": "team_exists", "message": "a team with this code already exists"})
	case errors.Is(err, errs.ErrTeamNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "team_not_found"})
	case errors.Is(err, errs.ErrStoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "story_not_found"})
	case errors.Is(err, errs.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
