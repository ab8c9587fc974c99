package model

import "time"

// API request/response DTOs (not GORM entities).

// TeamView is the API view of a team.
type TeamView struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionView is the API view of a game session.
type SessionView struct {
	ID        string     `json:"id"`
	TeamID    string     `json:"team_id"`
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// JoinResponse is the response for POST /sessions/join.
type JoinResponse struct {
	Team         TeamView    `json:"team"`
	Session      SessionView `json:"session"`
	MembersCount int         `json:"members_count"`
}

// CreateStoryRequest is the request body for POST /stories.
type CreateStoryRequest struct {
	Title         string `json:"title" binding:"required"`
	InitialPrompt string `json:"initial_prompt"`
}

// StoryView is the API view of a story.
type StoryView struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	InitialPrompt string    `json:"initial_prompt"`
	CurrentTurn   int       `json:"current_turn"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// TurnView is the API view of a turn.
type TurnView struct {
	ID         string    `json:"id"`
	StoryID    string    `json:"story_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	IsTwist    bool      `json:"is_twist"`
	TurnNumber int       `json:"turn_number"`
	CreatedAt  time.Time `json:"created_at"`
}

// AddSentenceRequest is the request body for POST /stories/add-sentence.
type AddSentenceRequest struct {
	StoryID string `json:"story_id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// AddSentenceResponse reports the appended turn and whether the append also
// triggered an automatic twist.
type AddSentenceResponse struct {
	Message    string `json:"message"`
	TurnNumber int    `json:"turn_number"`
	TwistAdded bool   `json:"twist_added"`
}

// TwistRequest is the request body for POST /stories/twist.
type TwistRequest struct {
	StoryID string `json:"story_id" binding:"required"`
}

// StoryStatusView is the response for GET /stories/:id/status.
type StoryStatusView struct {
	ID                   string `json:"id"`
	Status               string `json:"status"`
	CurrentTurn          int    `json:"current_turn"`
	TotalTurns           int    `json:"total_turns"`
	TimeRemainingSeconds int    `json:"time_remaining_seconds"`
	IsCompleted          bool   `json:"is_completed"`
}

// AnalysisView is the response for GET /stories/:id/analysis.
type AnalysisView struct {
	CreativityScore        int    `json:"creativity_score"`
	EngagementScore        int    `json:"engagement_score"`
	CollaborationScore     int    `json:"collaboration_score"`
	CreativityFeedback     string `json:"creativity_feedback"`
	EngagementFeedback     string `json:"engagement_feedback"`
	CollaborationFeedback  string `json:"collaboration_feedback"`
	TotalTurns             int    `json:"total_turns"`
	UniqueParticipants     int    `json:"unique_participants"`
	SessionDurationMinutes int    `json:"session_duration_minutes"`
}

// LeaderboardTeam is one row of the team leaderboard.
type LeaderboardTeam struct {
	TeamCode             string     `json:"team_code"`
	TeamName             string     `json:"team_name"`
	Participants         int        `json:"participants"`
	StoriesCompleted     int        `json:"stories_completed"`
	TotalTurns           int        `json:"total_turns"`
	TwistCount           int        `json:"twist_count"`
	UserTurns            int        `json:"user_turns"`
	AvgCreativityScore   *float64   `json:"avg_creativity_score,omitempty"`
	AvgEngagementScore   *float64   `json:"avg_engagement_score,omitempty"`
	AvgCollabScore       *float64   `json:"avg_collaboration_score,omitempty"`
	LastActive           *time.Time `json:"last_active,omitempty"`
	SessionStatus        string     `json:"session_status"`
	SessionEndedAt       *time.Time `json:"session_ended_at,omitempty"`
}

// LeaderboardResponse is the response for GET /leaderboard/teams.
type LeaderboardResponse struct {
	Teams      []LeaderboardTeam `json:"teams"`
	TotalTeams int               `json:"total_teams"`
}

// TeamFromEntity maps a Team entity to its API view.
func TeamFromEntity(t *Team) TeamView {
	return TeamView{ID: t.ID, Code: t.Code, Name: t.Name, CreatedAt: t.CreatedAt}
}

// SessionFromEntity maps a GameSession entity to its API view.
func SessionFromEntity(s *GameSession) SessionView {
	return SessionView{ID: s.ID, TeamID: s.TeamID, Status: s.Status, StartedAt: s.StartedAt, EndedAt: s.EndedAt}
}

// StoryFromEntity maps a Story entity to its API view.
func StoryFromEntity(st *Story) StoryView {
	return StoryView{
		ID:            st.ID,
		Title:         st.Title,
		InitialPrompt: st.InitialPrompt,
		CurrentTurn:   st.CurrentTurn,
		Status:        st.Status,
		CreatedAt:     st.CreatedAt,
	}
}

// TurnFromEntity maps a Turn entity to its API view.
func TurnFromEntity(t *Turn) TurnView {
	return TurnView{
		ID:         t.ID,
		StoryID:    t.StoryID,
		AuthorName: t.AuthorName,
		Content:    t.Content,
		IsTwist:    t.IsTwist,
		TurnNumber: t.TurnNumber,
		CreatedAt:  t.CreatedAt,
	}
}
