package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/s2010/story-twister/internal/service"
)

// FeedWSHandler handles WebSocket connections for /ws/feed/:team_code.
type FeedWSHandler struct {
	hub      *service.FeedHub
	sessions *service.SessionService
	logger   *zap.Logger
}

// NewFeedWSHandler creates the feed WebSocket handler.
func NewFeedWSHandler(hub *service.FeedHub, sessions *service.SessionService, logger *zap.Logger) *FeedWSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedWSHandler{hub: hub, sessions: sessions, logger: logger}
}

// ServeWS upgrades the request and streams the team's story feed.
// Path: /ws/feed/:team_code
func (h *FeedWSHandler) ServeWS(c *gin.Context) {
	teamCode := c.Param("team_code")
	if teamCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "team_code required"})
		return
	}
	team, err := h.sessions.TeamByCode(teamCode)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.hub.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	watcher, cleanup := h.hub.Register(team.ID, conn)
	defer cleanup()

	go h.writePump(watcher)
	h.readPump(watcher)
}

// readPump drains incoming frames; watchers don't send, but reading is how
// the close is detected.
func (h *FeedWSHandler) readPump(w *service.Watcher) {
	defer func() {
		_ = w.Conn.Close()
	}()
	for {
		if _, _, err := w.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("read error", zap.Error(err))
			}
			break
		}
	}
}

func (h *FeedWSHandler) writePump(w *service.Watcher) {
	defer func() {
		_ = w.Conn.Close()
	}()
	for data := range w.Send {
		if err := w.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
}
