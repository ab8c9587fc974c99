package model

import "time"

// Operator-surface DTOs.

// BootstrapRequest provisions teams and sessions ahead of an event.
type BootstrapRequest struct {
	TeamCodes []string `json:"team_codes" binding:"required"`
}

// BootstrapTeam is one provisioned team in a bootstrap response.
type BootstrapTeam struct {
	TeamCode  string `json:"team_code"`
	TeamName  string `json:"team_name"`
	SessionID string `json:"session_id"`
	JoinURL   string `json:"join_url"`
	QRCodeURL string `json:"qr_code_url"`
	Created   bool   `json:"created"`
}

// BootstrapResponse is the response for POST /admin/bootstrap.
type BootstrapResponse struct {
	Teams []BootstrapTeam `json:"teams"`
	Total int             `json:"total"`
}

// CreateRoomRequest is the request body for POST /admin/rooms.
type CreateRoomRequest struct {
	TeamCode string `json:"team_code" binding:"required"`
	TeamName string `json:"team_name"`
}

// RoomView is the response for room creation.
type RoomView struct {
	Team      TeamView    `json:"team"`
	Session   SessionView `json:"session"`
	JoinURL   string      `json:"join_url"`
	QRCodeURL string      `json:"qr_code_url"`
}

// SnapshotTeam is one team's live state in the operator snapshot.
type SnapshotTeam struct {
	TeamCode             string     `json:"team_code"`
	TeamName             string     `json:"team_name"`
	SessionID            string     `json:"session_id,omitempty"`
	SessionStatus        string     `json:"session_status"`
	StoryID              string     `json:"story_id,omitempty"`
	StoryTitle           string     `json:"story_title,omitempty"`
	StoryStatus          string     `json:"story_status,omitempty"`
	CurrentTurn          int        `json:"current_turn"`
	TwistCount           int        `json:"twist_count"`
	Participants         int        `json:"participants"`
	TimeRemainingSeconds int        `json:"time_remaining_seconds"`
	LastActivity         *time.Time `json:"last_activity,omitempty"`
	LastMessages         []TurnView `json:"last_messages"`
}

// SnapshotResponse is the response for GET /admin/snapshot.
type SnapshotResponse struct {
	Teams          []SnapshotTeam `json:"teams"`
	ActiveSessions int            `json:"active_sessions"`
	TotalTeams     int            `json:"total_teams"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// TimerRequest rewinds a team's story clock.
type TimerRequest struct {
	TeamCode string `json:"team_code" binding:"required"`
	Minutes  int    `json:"minutes" binding:"required"`
}

// EndRequest force-ends a team's run.
type EndRequest struct {
	TeamCode string `json:"team_code" binding:"required"`
}

// StartRoomRequest starts (or resumes) a team's story.
type StartRoomRequest struct {
	TeamCode string `json:"team_code" binding:"required"`
	Title    string `json:"title"`
}

// CreateSessionRequest creates a team with a waiting session.
type CreateSessionRequest struct {
	TeamCode string `json:"team_code" binding:"required"`
	TeamName string `json:"team_name"`
}

// ExportStory is one story with its full turn log and scorecard, if any.
type ExportStory struct {
	TeamCode string        `json:"team_code"`
	TeamName string        `json:"team_name"`
	Story    StoryView     `json:"story"`
	Turns    []TurnView    `json:"turns"`
	Analysis *AnalysisView `json:"analysis,omitempty"`
}

// ExportResponse is the full-event export for GET /admin/export/json.
type ExportResponse struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Stories     []ExportStory `json:"stories"`
}

// AnalysisFromEntity maps a SessionAnalysis entity to its API view.
func AnalysisFromEntity(a *SessionAnalysis) AnalysisView {
	return AnalysisView{
		CreativityScore:        a.CreativityScore,
		EngagementScore:        a.EngagementScore,
		CollaborationScore:     a.CollaborationScore,
		CreativityFeedback:     a.CreativityFeedback,
		EngagementFeedback:     a.EngagementFeedback,
		CollaborationFeedback:  a.CollaborationFeedback,
		TotalTurns:             a.TotalTurns,
		UniqueParticipants:     a.UniqueParticipants,
		SessionDurationMinutes: a.SessionDurationMinutes,
	}
}
