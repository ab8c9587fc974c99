package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/s2010/story-twister/internal/audit"
	"github.com/s2010/story-twister/internal/model"
	"github.com/s2010/story-twister/internal/service"
	"github.com/s2010/story-twister/pkg/constants"
)

// AdminHandler handles the operator endpoints. Every mutation is recorded
// in the audit log.
type AdminHandler struct {
	sessions    *service.SessionService
	stories     *service.StoryService
	reports     *service.ReportService
	audit       *audit.Recorder
	frontendURL string
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(sessions *service.SessionService, stories *service.StoryService, reports *service.ReportService, rec *audit.Recorder, frontendURL string) *AdminHandler {
	return &AdminHandler{
		sessions:    sessions,
		stories:     stories,
		reports:     reports,
		audit:       rec,
		frontendURL: frontendURL,
	}
}

func (h *AdminHandler) record(c *gin.Context, action, teamCode string, payload any) {
	h.audit.Record(action, teamCode, payload, c.ClientIP(), c.Request.UserAgent())
}

func (h *AdminHandler) joinURL(teamCode string) string {
	return fmt.Sprintf("%s/?team=%s&mode=event",
		strings.TrimRight(h.frontendURL, "/"), url.QueryEscape(teamCode))
}

func qrCodeURL(joinURL string) string {
	return "https://api.qrserver.com/v1/create-qr-code/?size=200x200&data=" + url.QueryEscape(joinURL)
}

// Bootstrap godoc
// POST /api/v1/admin/bootstrap
func (h *AdminHandler) Bootstrap(c *gin.Context) {
	var req model.BootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	teams, err := h.sessions.Bootstrap(req.TeamCodes)
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range teams {
		teams[i].JoinURL = h.joinURL(teams[i].TeamCode)
		teams[i].QRCodeURL = qrCodeURL(teams[i].JoinURL)
	}
	h.record(c, "bootstrap", "", req)
	c.JSON(http.StatusOK, model.BootstrapResponse{Teams: teams, Total: len(teams)})
}

// CreateRoom godoc
// POST /api/v1/admin/rooms
func (h *AdminHandler) CreateRoom(c *gin.Context) {
	var req model.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	team, session, err := h.sessions.OpenRoom(req.TeamCode, req.TeamName)
	if err != nil {
		respondError(c, err)
		return
	}
	join := h.joinURL(team.Code)
	h.record(c, "create_room", team.Code, req)
	c.JSON(http.StatusCreated, model.RoomView{
		Team:      model.TeamFromEntity(team),
		Session:   model.SessionFromEntity(session),
		JoinURL:   join,
		QRCodeURL: qrCodeURL(join),
	})
}

// StartRoom godoc
// POST /api/v1/admin/rooms/start
func (h *AdminHandler) StartRoom(c *gin.Context) {
	var req model.StartRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	session, story, err := h.sessions.StartRoom(req.TeamCode, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	h.record(c, "start_room", req.TeamCode, req)
	c.JSON(http.StatusOK, gin.H{
		"session": model.SessionFromEntity(session),
		"story":   model.StoryFromEntity(story),
	})
}

// Snapshot godoc
// GET /api/v1/admin/snapshot
func (h *AdminHandler) Snapshot(c *gin.Context) {
	snap, err := h.reports.Snapshot()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Twist godoc
// POST /api/v1/admin/twist
func (h *AdminHandler) Twist(c *gin.Context) {
	var req model.EndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	story, err := h.stories.ActiveStory(req.TeamCode)
	if err != nil {
		respondError(c, err)
		return
	}
	twist, err := h.stories.InjectTwist(c.Request.Context(), story.ID, constants.TwistPersona)
	if err != nil {
		respondError(c, err)
		return
	}
	h.record(c, "inject_twist", req.TeamCode, gin.H{"story_id": story.ID})
	c.JSON(http.StatusCreated, model.TurnFromEntity(twist))
}

// Timer godoc
// POST /api/v1/admin/timer
func (h *AdminHandler) Timer(c *gin.Context) {
	var req model.TimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	story, err := h.sessions.SetTimer(req.TeamCode, req.Minutes)
	if err != nil {
		respondError(c, err)
		return
	}
	h.record(c, "set_timer", req.TeamCode, req)
	c.JSON(http.StatusOK, gin.H{
		"story_id":         story.ID,
		"started_at":       story.StartedAt,
		"duration_seconds": story.DurationSeconds,
	})
}

// End godoc
// POST /api/v1/admin/end
func (h *AdminHandler) End(c *gin.Context) {
	var req model.EndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	if err := h.sessions.ForceEnd(req.TeamCode); err != nil {
		respondError(c, err)
		return
	}
	h.record(c, "force_end", req.TeamCode, req)
	c.JSON(http.StatusOK, gin.H{"message": "team session ended"})
}

// CreateSession godoc
// POST /api/v1/admin/sessions
func (h *AdminHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	team, session, err := h.sessions.CreateWaiting(req.TeamCode, req.TeamName)
	if err != nil {
		respondError(c, err)
		return
	}
	join := h.joinURL(team.Code)
	h.record(c, "create_session", team.Code, req)
	c.JSON(http.StatusCreated, model.RoomView{
		Team:      model.TeamFromEntity(team),
		Session:   model.SessionFromEntity(session),
		JoinURL:   join,
		QRCodeURL: qrCodeURL(join),
	})
}

// Sessions godoc
// GET /api/v1/admin/sessions
func (h *AdminHandler) Sessions(c *gin.Context) {
	sessions, err := h.sessions.Sessions()
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]model.SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, model.SessionFromEntity(&sessions[i]))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

// StartSession godoc
// POST /api/v1/admin/sessions/:id/start
func (h *AdminHandler) StartSession(c *gin.Context) {
	session, err := h.sessions.StartSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.record(c, "start_session", "", gin.H{"session_id": session.ID})
	c.JSON(http.StatusOK, model.SessionFromEntity(session))
}

// DeleteSession godoc
// DELETE /api/v1/admin/sessions/:id
func (h *AdminHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": "malformed session id"})
		return
	}
	if err := h.sessions.DeleteSession(id); err != nil {
		respondError(c, err)
		return
	}
	h.record(c, "delete_session", "", gin.H{"session_id": id})
	c.Status(http.StatusNoContent)
}

// ExportJSON godoc
// GET /api/v1/admin/export/json
func (h *AdminHandler) ExportJSON(c *gin.Context) {
	export, err := h.reports.Export()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="story-twister-export.json"`)
	c.JSON(http.StatusOK, export)
}

// ExportCSV godoc
// GET /api/v1/admin/export/csv
func (h *AdminHandler) ExportCSV(c *gin.Context) {
	export, err := h.reports.Export()
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"team_code", "team_name", "story_title", "story_status", "turn_number", "author", "is_twist", "content", "created_at"})
	for _, st := range export.Stories {
		for _, turn := range st.Turns {
			_ = w.Write([]string{
				st.TeamCode,
				st.TeamName,
				st.Story.Title,
				st.Story.Status,
				strconv.Itoa(turn.TurnNumber),
				turn.AuthorName,
				strconv.FormatBool(turn.IsTwist),
				turn.Content,
				turn.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
	}
	w.Flush()

	c.Header("Content-Disposition", `attachment; filename="story-twister-export.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
