package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Feed event types.
const (
	EventStoryStarted     = "story_started"
	EventTurnAppended     = "turn_appended"
	EventTwistInjected    = "twist_injected"
	EventStoryCompleted   = "story_completed"
	EventSessionStarted   = "session_started"
	EventSessionCompleted = "session_completed"
	EventAnalysisComputed = "analysis_computed"
)

// FeedEvent is one structured story/session event broadcast to team watchers.
type FeedEvent struct {
	Type       string    `json:"type"`
	TeamID     string    `json:"team_id"`
	StoryID    string    `json:"story_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	TurnNumber int       `json:"turn_number,omitempty"`
	Author     string    `json:"author,omitempty"`
	Content    string    `json:"content,omitempty"`
	At         time.Time `json:"at"`
}

// Watcher is one WebSocket subscriber to a team's feed.
type Watcher struct {
	TeamID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// FeedHub fans story/session events out to WebSocket watchers, keyed by
// team. Delivery is best effort: slow watchers are skipped, and the core
// never blocks on the feed.
type FeedHub struct {
	mu       sync.RWMutex
	watchers map[string]map[*Watcher]struct{} // teamID -> set of watchers
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewFeedHub creates a feed hub.
func NewFeedHub(log *zap.Logger) *FeedHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedHub{
		watchers: make(map[string]map[*Watcher]struct{}),
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Allow all origins for dev; in prod set CheckOrigin.
		},
	}
}

// Upgrader returns the WebSocket upgrader for HTTP handlers.
func (h *FeedHub) Upgrader() *websocket.Upgrader { return &h.upgrader }

// Register adds a watcher for a team and returns a cleanup function.
func (h *FeedHub) Register(teamID string, conn *websocket.Conn) (*Watcher, func()) {
	w := &Watcher{
		TeamID: teamID,
		Conn:   conn,
		Send:   make(chan []byte, 64),
	}
	h.mu.Lock()
	if h.watchers[teamID] == nil {
		h.watchers[teamID] = make(map[*Watcher]struct{})
	}
	h.watchers[teamID][w] = struct{}{}
	h.mu.Unlock()

	h.log.Info("feed watcher registered", zap.String("team_id", teamID))

	cleanup := func() {
		h.unregister(teamID, w)
	}
	return w, cleanup
}

func (h *FeedHub) unregister(teamID string, w *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.watchers[teamID]; ok {
		if _, present := m[w]; !present {
			return
		}
		delete(m, w)
		if len(m) == 0 {
			delete(h.watchers, teamID)
		}
	}
	close(w.Send)
	h.log.Info("feed watcher unregistered", zap.String("team_id", teamID))
}

// Publish sends an event to every watcher of the event's team. Non-blocking.
func (h *FeedHub) Publish(ev FeedEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	m, ok := h.watchers[ev.TeamID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	watchers := make([]*Watcher, 0, len(m))
	for w := range m {
		watchers = append(watchers, w)
	}
	h.mu.RUnlock()

	for _, w := range watchers {
		select {
		case w.Send <- raw:
		default:
			h.log.Warn("feed watcher buffer full, dropping event",
				zap.String("team_id", ev.TeamID),
				zap.String("type", ev.Type))
		}
	}
}

// WatcherCount returns the number of watchers for a team (for debugging).
func (h *FeedHub) WatcherCount(teamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[teamID])
}
