package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/s2010/story-twister/internal/model"
	"github.com/s2010/story-twister/internal/service"
)

// SessionHandler handles the participant session endpoints.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Join godoc
// POST /api/v1/sessions/join
func (h *SessionHandler) Join(c *gin.Context) {
	team, session, members, err := h.sessions.Join(teamCodeFrom(c), nicknameFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.JoinResponse{
		Team:         model.TeamFromEntity(team),
		Session:      model.SessionFromEntity(session),
		MembersCount: members,
	})
}

// Complete godoc
// POST /api/v1/sessions/:id/complete
func (h *SessionHandler) Complete(c *gin.Context) {
	session, err := h.sessions.CompleteSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SessionFromEntity(session))
}
