package model

import "time"

// SessionStatus represents a play session's lifecycle state.
type SessionStatus string

const (
	SessionStatusWaiting   SessionStatus = "waiting"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// StoryStatus represents a story's lifecycle state.
type StoryStatus string

const (
	StoryStatusActive    StoryStatus = "active"
	StoryStatusCompleted StoryStatus = "completed"
)

// Team is a participant group addressed by a human-readable code (GORM).
type Team struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Code      string    `gorm:"size:50;not null;uniqueIndex"`
	Name      string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Sessions []GameSession `gorm:"foreignKey:TeamID"`
	Stories  []Story       `gorm:"foreignKey:TeamID"`
}

func (Team) TableName() string { return "teams" }

// GameSession is one time-bounded play window for a team (GORM).
// StartedAt is nil while the session is waiting for the operator to start it;
// EndedAt is set exactly once on completion.
type GameSession struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	TeamID    string     `gorm:"type:uuid;not null;index"`
	Status    string     `gorm:"size:20;not null;default:waiting"`
	StartedAt *time.Time `gorm:"column:started_at"`
	EndedAt   *time.Time `gorm:"column:ended_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

func (GameSession) TableName() string { return "game_sessions" }

// Story is the text artifact and session-clock anchor for one play-through.
// CurrentTurn is a denormalized cache of the highest turn number; the turn
// log is the source of truth and the cache is only ever written inside the
// same transaction as the turn that moves it.
type Story struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	TeamID          string    `gorm:"type:uuid;not null;index"`
	Title           string    `gorm:"size:255;not null"`
	InitialPrompt   string    `gorm:"type:text;not null"`
	CurrentTurn     int       `gorm:"not null;default:0"`
	Status          string    `gorm:"size:20;not null;default:active"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	StartedAt       time.Time `gorm:"column:started_at;not null"`
	DurationSeconds int       `gorm:"not null"`

	Turns []Turn `gorm:"foreignKey:StoryID"`
}

func (Story) TableName() string { return "stories" }

// Turn is one immutable contribution. Numbers are 1-based, strictly
// increasing, unique per story (enforced by idx_turns_story_number).
type Turn struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	StoryID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_turns_story_number"`
	AuthorName string    `gorm:"size:255;not null"`
	Content    string    `gorm:"type:text;not null"`
	IsTwist    bool      `gorm:"not null;default:false"`
	TurnNumber int       `gorm:"not null;uniqueIndex:idx_turns_story_number"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (Turn) TableName() string { return "turns" }

// SessionAnalysis is the memoized scorecard, at most one per story. Once written
// it is immutable history; later reads return it verbatim.
type SessionAnalysis struct {
	ID      string `gorm:"type:uuid;primaryKey"`
	StoryID string `gorm:"type:uuid;not null;uniqueIndex"`

	CreativityScore    int `gorm:"not null"`
	EngagementScore    int `gorm:"not null"`
	CollaborationScore int `gorm:"not null"`

	CreativityFeedback    string `gorm:"type:text;not null"`
	EngagementFeedback    string `gorm:"type:text;not null"`
	CollaborationFeedback string `gorm:"type:text;not null"`

	TotalTurns             int `gorm:"not null"`
	UniqueParticipants     int `gorm:"not null"`
	SessionDurationMinutes int `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (SessionAnalysis) TableName() string { return "session_analyses" }

// AdminAction is one audit log row for an operator call.
type AdminAction struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Action      string    `gorm:"size:100;not null;index"`
	TeamCode    string    `gorm:"size:50;index"`
	PayloadJSON string    `gorm:"type:text"`
	IPAddress   string    `gorm:"size:45"`
	UserAgent   string    `gorm:"size:500"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
}

func (AdminAction) TableName() string { return "admin_actions" }
