package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/s2010/story-twister/internal/config"
	"github.com/s2010/story-twister/internal/errs"
	"github.com/s2010/story-twister/internal/model"
	"github.com/s2010/story-twister/pkg/constants"
)

// SessionService owns team membership and the session lifecycle state
// machine (waiting -> active -> completed).
type SessionService struct {
	db      *gorm.DB
	cfg     *config.Config
	stories *StoryService
	feed    *FeedHub
	log     *zap.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(db *gorm.DB, cfg *config.Config, stories *StoryService, feed *FeedHub, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	if feed == nil {
		feed = NewFeedHub(log)
	}
	return &SessionService{db: db, cfg: cfg, stories: stories, feed: feed, log: log}
}

// Join puts a participant into a team's current session. Unknown teams are
// created on the fly. A waiting session blocks joins until the operator
// starts it; otherwise the latest active session is reused or a fresh one
// is opened.
func (s *SessionService) Join(teamCode, nickname string) (*model.Team, *model.GameSession, int, error) {
	teamCode = strings.TrimSpace(teamCode)
	nickname = strings.TrimSpace(nickname)
	if teamCode == "" || nickname == "" {
		return nil, nil, 0, fmt.Errorf("%w: team code and nickname are required", errs.ErrInvalidInput)
	}

	team, err := s.findOrCreateTeam(teamCode, "")
	if err != nil {
		return nil, nil, 0, err
	}

	var latest model.GameSession
	err = s.db.Where("team_id = ?", team.ID).Order("created_at DESC").First(&latest).Error
	switch {
	case err == nil && latest.Status == string(model.SessionStatusWaiting):
		return nil, nil, 0, errs.ErrSessionNotStarted
	case err == nil && latest.Status == string(model.SessionStatusActive):
		members, merr := s.memberCount(team.ID)
		if merr != nil {
			return nil, nil, 0, merr
		}
		return team, &latest, members, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil, 0, fmt.Errorf("find session: %w", err)
	}

	session, err := s.createActiveSession(team.ID)
	if err != nil {
		return nil, nil, 0, err
	}
	members, err := s.memberCount(team.ID)
	if err != nil {
		return nil, nil, 0, err
	}
	s.log.Info("participant joined",
		zap.String("team_code", team.Code),
		zap.String("nickname", nickname),
		zap.String("session_id", session.ID))
	return team, session, members, nil
}

// CreateWaiting creates a team together with a waiting session. The session
// stays unstarted until StartSession. A team that already exists is a
// conflict, not an upsert.
func (s *SessionService) CreateWaiting(teamCode, teamName string) (*model.Team, *model.GameSession, error) {
	teamCode = strings.ToUpper(strings.TrimSpace(teamCode))
	if len(teamCode) < 2 {
		return nil, nil, fmt.Errorf("%w: team code must be at least 2 characters", errs.ErrInvalidInput)
	}

	var existing model.Team
	err := s.db.Where("code = ?", teamCode).First(&existing).Error
	if err == nil {
		return nil, nil, errs.ErrTeamExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("find team: %w", err)
	}

	if strings.TrimSpace(teamName) == "" {
		teamName = "Team " + titleCase(teamCode)
	}
	team := &model.Team{ID: uuid.New().String(), Code: teamCode, Name: teamName}
	session := &model.GameSession{
		ID:     uuid.New().String(),
		TeamID: team.ID,
		Status: string(model.SessionStatusWaiting),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		return tx.Create(session).Error
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create waiting session: %w", err)
	}
	s.log.Info("waiting session created",
		zap.String("team_code", team.Code),
		zap.String("session_id", session.ID))
	return team, session, nil
}

// StartSession moves a waiting session to active and stamps StartedAt. Only
// a waiting session can be started; StartedAt is written exactly once.
func (s *SessionService) StartSession(sessionID string) (*model.GameSession, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != string(model.SessionStatusWaiting) {
		return nil, errs.ErrSessionNotWaiting
	}

	// At most one active session per team: retire any stale ones first.
	var stale []model.GameSession
	err = s.db.Where("team_id = ? AND status = ?", session.TeamID, string(model.SessionStatusActive)).
		Find(&stale).Error
	if err != nil {
		return nil, fmt.Errorf("find active sessions: %w", err)
	}
	for i := range stale {
		if err := s.completeSession(&stale[i]); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	err = s.db.Model(&model.GameSession{}).Where("id = ?", session.ID).
		Updates(map[string]any{"status": string(model.SessionStatusActive), "started_at": now}).Error
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	session.Status = string(model.SessionStatusActive)
	session.StartedAt = &now
	s.log.Info("session started", zap.String("session_id", session.ID))
	s.feed.Publish(FeedEvent{Type: EventSessionStarted, TeamID: session.TeamID, SessionID: session.ID})
	return session, nil
}

// CompleteSession moves a session to completed. Completing an already
// completed session is a no-op that preserves the original EndedAt.
func (s *SessionService) CompleteSession(sessionID string) (*model.GameSession, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == string(model.SessionStatusCompleted) {
		return session, nil
	}
	if err := s.completeSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// StartRoom begins play for a team: it activates the team's session if
// needed and returns the active story, creating one when none exists.
func (s *SessionService) StartRoom(teamCode, title string) (*model.GameSession, *model.Story, error) {
	team, err := s.findOrCreateTeam(teamCode, "")
	if err != nil {
		return nil, nil, err
	}

	var session model.GameSession
	err = s.db.Where("team_id = ?", team.ID).Order("created_at DESC").First(&session).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, cerr := s.createActiveSession(team.ID)
		if cerr != nil {
			return nil, nil, cerr
		}
		session = *created
	case err != nil:
		return nil, nil, fmt.Errorf("find session: %w", err)
	case session.Status == string(model.SessionStatusWaiting):
		started, serr := s.StartSession(session.ID)
		if serr != nil {
			return nil, nil, serr
		}
		session = *started
	case session.Status == string(model.SessionStatusCompleted):
		created, cerr := s.createActiveSession(team.ID)
		if cerr != nil {
			return nil, nil, cerr
		}
		session = *created
	}

	story, err := s.stories.ActiveStory(team.Code)
	if errors.Is(err, errs.ErrStoryNotFound) {
		if strings.TrimSpace(title) == "" {
			title = team.Name + " Adventure"
		}
		story, err = s.stories.CreateStory(team.Code, title, "")
	}
	if err != nil {
		return nil, nil, err
	}
	return &session, story, nil
}

// OpenRoom find-or-creates a team and ensures it has an active session,
// ready for participants to join.
func (s *SessionService) OpenRoom(teamCode, teamName string) (*model.Team, *model.GameSession, error) {
	code := normalizeTeamCode(teamCode)
	if code == "" {
		return nil, nil, fmt.Errorf("%w: team code is required", errs.ErrInvalidInput)
	}
	team, err := s.findOrCreateTeam(code, teamName)
	if err != nil {
		return nil, nil, err
	}

	var session model.GameSession
	err = s.db.Where("team_id = ? AND status = ?", team.ID, string(model.SessionStatusActive)).
		Order("created_at DESC").First(&session).Error
	if err == nil {
		return team, &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("find session: %w", err)
	}
	fresh, err := s.createActiveSession(team.ID)
	if err != nil {
		return nil, nil, err
	}
	return team, fresh, nil
}

// ForceEnd closes out a team's run: its active story and its active or
// waiting session both move to completed. Ending a team with nothing active
// succeeds as a no-op, so the operation is safe to repeat.
func (s *SessionService) ForceEnd(teamCode string) error {
	team, err := s.findTeamByCode(teamCode)
	if err != nil {
		return err
	}

	if story, err := s.stories.ActiveStory(team.Code); err == nil {
		if _, err := s.stories.Complete(story.ID); err != nil {
			return err
		}
	} else if !errors.Is(err, errs.ErrStoryNotFound) {
		return err
	}

	var sessions []model.GameSession
	err = s.db.Where("team_id = ? AND status <> ?", team.ID, string(model.SessionStatusCompleted)).
		Find(&sessions).Error
	if err != nil {
		return fmt.Errorf("find sessions: %w", err)
	}
	for i := range sessions {
		if err := s.completeSession(&sessions[i]); err != nil {
			return err
		}
	}
	s.log.Info("team force-ended", zap.String("team_code", team.Code))
	return nil
}

// SetTimer rewinds the team's active story clock to the given minutes.
func (s *SessionService) SetTimer(teamCode string, minutes int) (*model.Story, error) {
	team, err := s.findTeamByCode(teamCode)
	if err != nil {
		return nil, err
	}
	story, err := s.stories.ActiveStory(team.Code)
	if err != nil {
		return nil, err
	}
	return s.stories.ResetTimer(story.ID, minutes)
}

// Bootstrap provisions teams with active sessions for a list of team codes.
// Codes are normalized (lowercased, spaces to underscores); existing teams
// are reused.
func (s *SessionService) Bootstrap(teamCodes []string) ([]model.BootstrapTeam, error) {
	if len(teamCodes) == 0 {
		return nil, fmt.Errorf("%w: team_codes is empty", errs.ErrInvalidInput)
	}

	out := make([]model.BootstrapTeam, 0, len(teamCodes))
	for _, raw := range teamCodes {
		code := normalizeTeamCode(raw)
		if code == "" {
			continue
		}
		var team model.Team
		created := false
		err := s.db.Where("code = ?", code).First(&team).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			team = model.Team{ID: uuid.New().String(), Code: code, Name: "Team " + titleCase(code)}
			if err := s.db.Create(&team).Error; err != nil {
				return nil, fmt.Errorf("create team: %w", err)
			}
			created = true
		} else if err != nil {
			return nil, fmt.Errorf("find team: %w", err)
		}

		var session model.GameSession
		err = s.db.Where("team_id = ? AND status = ?", team.ID, string(model.SessionStatusActive)).
			Order("created_at DESC").First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fresh, cerr := s.createActiveSession(team.ID)
			if cerr != nil {
				return nil, cerr
			}
			session = *fresh
		} else if err != nil {
			return nil, fmt.Errorf("find session: %w", err)
		}

		out = append(out, model.BootstrapTeam{
			TeamCode:  team.Code,
			TeamName:  team.Name,
			SessionID: session.ID,
			Created:   created,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable team codes", errs.ErrInvalidInput)
	}
	s.log.Info("teams bootstrapped", zap.Int("count", len(out)))
	return out, nil
}

// DeleteSession removes a session and its team's stories, turns and
// scorecards. The team itself survives so its code can be reused.
func (s *SessionService) DeleteSession(sessionID string) error {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var storyIDs []string
		if err := tx.Model(&model.Story{}).Where("team_id = ?", session.TeamID).
			Pluck("id", &storyIDs).Error; err != nil {
			return err
		}
		if len(storyIDs) > 0 {
			if err := tx.Where("story_id IN ?", storyIDs).Delete(&model.SessionAnalysis{}).Error; err != nil {
				return err
			}
			if err := tx.Where("story_id IN ?", storyIDs).Delete(&model.Turn{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", storyIDs).Delete(&model.Story{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", session.ID).Delete(&model.GameSession{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.log.Info("session deleted",
		zap.String("session_id", session.ID),
		zap.String("team_id", session.TeamID))
	return nil
}

// Sessions lists all sessions, newest first.
func (s *SessionService) Sessions() ([]model.GameSession, error) {
	var sessions []model.GameSession
	if err := s.db.Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// TeamByCode resolves a team by its code.
func (s *SessionService) TeamByCode(teamCode string) (*model.Team, error) {
	return s.findTeamByCode(teamCode)
}

// --- internals ---

func (s *SessionService) findTeamByCode(code string) (*model.Team, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: team code is required", errs.ErrInvalidInput)
	}
	var team model.Team
	if err := s.db.Where("code = ?", code).First(&team).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTeamNotFound
		}
		return nil, fmt.Errorf("find team: %w", err)
	}
	return &team, nil
}

func (s *SessionService) findOrCreateTeam(code, name string) (*model.Team, error) {
	team, err := s.findTeamByCode(code)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, errs.ErrTeamNotFound) {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Team " + titleCase(code)
	}
	team = &model.Team{ID: uuid.New().String(), Code: strings.TrimSpace(code), Name: name}
	if err := s.db.Create(team).Error; err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	s.log.Info("team created", zap.String("team_code", team.Code))
	return team, nil
}

func (s *SessionService) createActiveSession(teamID string) (*model.GameSession, error) {
	now := time.Now().UTC()
	session := &model.GameSession{
		ID:        uuid.New().String(),
		TeamID:    teamID,
		Status:    string(model.SessionStatusActive),
		StartedAt: &now,
	}
	if err := s.db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.feed.Publish(FeedEvent{Type: EventSessionStarted, TeamID: teamID, SessionID: session.ID})
	return session, nil
}

func (s *SessionService) loadSession(sessionID string) (*model.GameSession, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("%w: malformed session id", errs.ErrInvalidInput)
	}
	var session model.GameSession
	if err := s.db.Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &session, nil
}

func (s *SessionService) completeSession(session *model.GameSession) error {
	now := time.Now().UTC()
	err := s.db.Model(&model.GameSession{}).Where("id = ?", session.ID).
		Updates(map[string]any{"status": string(model.SessionStatusCompleted), "ended_at": now}).Error
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	session.Status = string(model.SessionStatusCompleted)
	session.EndedAt = &now
	s.log.Info("session completed", zap.String("session_id", session.ID))
	s.feed.Publish(FeedEvent{Type: EventSessionCompleted, TeamID: session.TeamID, SessionID: session.ID})
	return nil
}

// memberCount counts distinct participant authors across the team's stories.
func (s *SessionService) memberCount(teamID string) (int, error) {
	var n int64
	err := s.db.Model(&model.Turn{}).
		Joins("JOIN stories ON stories.id = turns.story_id").
		Where("stories.team_id = ? AND turns.is_twist = ? AND turns.author_name <> ?",
			teamID, false, constants.SeedPersona).
		Distinct("turns.author_name").Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return int(n), nil
}

func normalizeTeamCode(raw string) string {
	code := strings.ToLower(strings.TrimSpace(raw))
	return strings.ReplaceAll(code, " ", "_")
}

func titleCase(code string) string {
	words := strings.FieldsFunc(code, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
