package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/s2010/story-twister/internal/config"
	"github.com/s2010/story-twister/internal/errs"
	"github.com/s2010/story-twister/internal/generator"
	"github.com/s2010/story-twister/internal/model"
	"github.com/s2010/story-twister/pkg/constants"
)

// StoryService owns story creation, the turn sequencer and the auto-twist
// policy. All mutations of one story's turn log run under that story's lock.
type StoryService struct {
	db     *gorm.DB
	cfg    *config.Config
	writer *generator.Writer
	feed   *FeedHub
	log    *zap.Logger
	locks  *storyLocks
}

// NewStoryService creates a StoryService.
func NewStoryService(db *gorm.DB, cfg *config.Config, writer *generator.Writer, feed *FeedHub, log *zap.Logger) *StoryService {
	if log == nil {
		log = zap.NewNop()
	}
	if feed == nil {
		feed = NewFeedHub(log)
	}
	return &StoryService{
		db:     db,
		cfg:    cfg,
		writer: writer,
		feed:   feed,
		log:    log,
		locks:  newStoryLocks(),
	}
}

// CreateStory starts a story for a team. The story and its opening turn
// (authored by the seed persona) are written in one transaction, so a story
// is never observable without its opening line.
func (s *StoryService) CreateStory(teamCode, title, initialPrompt string) (*model.Story, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", errs.ErrInvalidInput)
	}
	team, err := s.findTeam(teamCode)
	if err != nil {
		return nil, err
	}

	opening := strings.TrimSpace(initialPrompt)
	if opening == "" {
		opening = generator.StarterPrompt(title)
	}

	now := time.Now().UTC()
	story := &model.Story{
		ID:              uuid.New().String(),
		TeamID:          team.ID,
		Title:           title,
		InitialPrompt:   opening,
		CurrentTurn:     1,
		Status:          string(model.StoryStatusActive),
		StartedAt:       now,
		DurationSeconds: s.cfg.Game.StoryDurationMinutes * 60,
	}
	seed := &model.Turn{
		ID:         uuid.New().String(),
		StoryID:    story.ID,
		AuthorName: constants.SeedPersona,
		Content:    opening,
		IsTwist:    false,
		TurnNumber: 1,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(story).Error; err != nil {
			return err
		}
		return tx.Create(seed).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create story: %w", err)
	}

	s.log.Info("story started",
		zap.String("story_id", story.ID),
		zap.String("team_code", team.Code),
		zap.String("title", title))
	s.feed.Publish(FeedEvent{
		Type:       EventStoryStarted,
		TeamID:     team.ID,
		StoryID:    story.ID,
		TurnNumber: 1,
		Author:     constants.SeedPersona,
		Content:    opening,
	})
	return story, nil
}

// AppendTurn appends one participant turn and, when the twist cadence is
// due, injects an automatic twist turn right after it. The returned twist is
// nil when no twist fired.
//
// The participant append and the twist injection are separate atomic units:
// a twist generation failure can never lose an already committed turn.
func (s *StoryService) AppendTurn(ctx context.Context, storyID, author, content string) (*model.Turn, *model.Turn, error) {
	author = strings.TrimSpace(author)
	content = strings.TrimSpace(content)
	if author == "" {
		return nil, nil, fmt.Errorf("%w: author is required", errs.ErrInvalidInput)
	}
	if content == "" {
		return nil, nil, fmt.Errorf("%w: content is required", errs.ErrInvalidInput)
	}
	if _, err := uuid.Parse(storyID); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed story id", errs.ErrInvalidInput)
	}

	unlock := s.locks.acquire(storyID)
	defer unlock()

	story, err := s.loadStory(storyID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.ensureActive(story); err != nil {
		return nil, nil, err
	}

	turn, err := s.insertTurn(story, author, content, false)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("turn appended",
		zap.String("story_id", story.ID),
		zap.Int("turn", turn.TurnNumber),
		zap.String("author", author))
	s.feed.Publish(FeedEvent{
		Type:       EventTurnAppended,
		TeamID:     story.TeamID,
		StoryID:    story.ID,
		TurnNumber: turn.TurnNumber,
		Author:     author,
		Content:    content,
	})

	turns, err := s.orderedTurns(story.ID)
	if err != nil {
		return turn, nil, nil // appended turn is committed; cadence check is best effort
	}
	if participantTurnsSinceTwist(turns) < s.cfg.Game.TwistInterval {
		return turn, nil, nil
	}

	// Generation runs outside any transaction, with the story lock held.
	twistText := s.writer.Twist(ctx, storyText(story, turns))
	twist, err := s.insertTurn(story, constants.TwistPersona, twistText, true)
	if err != nil {
		s.log.Warn("auto twist not recorded", zap.String("story_id", story.ID), zap.Error(err))
		return turn, nil, nil
	}
	s.log.Info("twist injected",
		zap.String("story_id", story.ID),
		zap.Int("turn", twist.TurnNumber))
	s.feed.Publish(FeedEvent{
		Type:       EventTwistInjected,
		TeamID:     story.TeamID,
		StoryID:    story.ID,
		TurnNumber: twist.TurnNumber,
		Author:     constants.TwistPersona,
		Content:    twistText,
	})
	return turn, twist, nil
}

// InjectTwist appends a twist turn on demand, bypassing the cadence counter.
// author defaults to the twist persona.
func (s *StoryService) InjectTwist(ctx context.Context, storyID, author string) (*model.Turn, error) {
	if _, err := uuid.Parse(storyID); err != nil {
		return nil, fmt.Errorf("%w: malformed story id", errs.ErrInvalidInput)
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = constants.TwistPersona
	}

	unlock := s.locks.acquire(storyID)
	defer unlock()

	story, err := s.loadStory(storyID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(story); err != nil {
		return nil, err
	}
	turns, err := s.orderedTurns(story.ID)
	if err != nil {
		return nil, err
	}

	twistText := s.writer.Twist(ctx, storyText(story, turns))
	twist, err := s.insertTurn(story, author, twistText, true)
	if err != nil {
		return nil, err
	}
	s.log.Info("twist injected",
		zap.String("story_id", story.ID),
		zap.Int("turn", twist.TurnNumber),
		zap.String("author", author))
	s.feed.Publish(FeedEvent{
		Type:       EventTwistInjected,
		TeamID:     story.TeamID,
		StoryID:    story.ID,
		TurnNumber: twist.TurnNumber,
		Author:     author,
		Content:    twistText,
	})
	return twist, nil
}

// Turns returns the full turn log in order.
func (s *StoryService) Turns(storyID string) ([]model.Turn, error) {
	if _, err := uuid.Parse(storyID); err != nil {
		return nil, fmt.Errorf("%w: malformed story id", errs.ErrInvalidInput)
	}
	if _, err := s.loadStory(storyID); err != nil {
		return nil, err
	}
	return s.orderedTurns(storyID)
}

// Story returns one story by id.
func (s *StoryService) Story(storyID string) (*model.Story, error) {
	if _, err := uuid.Parse(storyID); err != nil {
		return nil, fmt.Errorf("%w: malformed story id", errs.ErrInvalidInput)
	}
	return s.loadStory(storyID)
}

// Stories lists a team's stories, newest first.
func (s *StoryService) Stories(teamCode string) ([]model.Story, error) {
	team, err := s.findTeam(teamCode)
	if err != nil {
		return nil, err
	}
	var stories []model.Story
	if err := s.db.Where("team_id = ?", team.ID).Order("created_at DESC").Find(&stories).Error; err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	return stories, nil
}

// ActiveStory returns the team's current active story.
func (s *StoryService) ActiveStory(teamCode string) (*model.Story, error) {
	team, err := s.findTeam(teamCode)
	if err != nil {
		return nil, err
	}
	var story model.Story
	err = s.db.Where("team_id = ? AND status = ?", team.ID, string(model.StoryStatusActive)).
		Order("created_at DESC").First(&story).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.ErrStoryNotFound
		}
		return nil, fmt.Errorf("find active story: %w", err)
	}
	return &story, nil
}

// Status reports the story clock and progress. A status read is also where
// an expired story's completion becomes durable.
func (s *StoryService) Status(storyID string) (*model.StoryStatusView, error) {
	if _, err := uuid.Parse(storyID); err != nil {
		return nil, fmt.Errorf("%w: malformed story id", errs.ErrInvalidInput)
	}

	unlock := s.locks.acquire(storyID)
	defer unlock()

	story, err := s.loadStory(storyID)
	if err != nil {
		return nil, err
	}
	if err := s.expireIfDue(story); err != nil {
		return nil, err
	}

	var total int64
	if err := s.db.Model(&model.Turn{}).Where("story_id = ?", story.ID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count turns: %w", err)
	}

	remaining := 0
	if story.Status == string(model.StoryStatusActive) {
		remaining = int(s.timeRemaining(story, time.Now().UTC()).Seconds())
	}
	return &model.StoryStatusView{
		ID:                   story.ID,
		Status:               story.Status,
		CurrentTurn:          story.CurrentTurn,
		TotalTurns:           int(total),
		TimeRemainingSeconds: remaining,
		IsCompleted:          story.Status == string(model.StoryStatusCompleted),
	}, nil
}

// Complete marks a story completed. Idempotent.
func (s *StoryService) Complete(storyID string) (*model.Story, error) {
	if _, err := uuid.Parse(storyID); err != nil {
		return nil, fmt.Errorf("%w: malformed story id", errs.ErrInvalidInput)
	}

	unlock := s.locks.acquire(storyID)
	defer unlock()

	story, err := s.loadStory(storyID)
	if err != nil {
		return nil, err
	}
	if story.Status == string(model.StoryStatusCompleted) {
		return story, nil
	}
	if err := s.markCompleted(story); err != nil {
		return nil, err
	}
	return story, nil
}

// ResetTimer restarts the story clock: the window begins now and runs for
// the given number of minutes. One atomic update, so the clock never mixes
// an old start with a new duration.
func (s *StoryService) ResetTimer(storyID string, minutes int) (*model.Story, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: minutes must be positive", errs.ErrInvalidInput)
	}
	if _, err := uuid.Parse(storyID); err != nil {
		return nil, fmt.Errorf("%w: malformed story id", errs.ErrInvalidInput)
	}

	unlock := s.locks.acquire(storyID)
	defer unlock()

	story, err := s.loadStory(storyID)
	if err != nil {
		return nil, err
	}
	if story.Status != string(model.StoryStatusActive) {
		return nil, errs.ErrStoryNotActive
	}

	now := time.Now().UTC()
	seconds := minutes * 60
	err = s.db.Model(&model.Story{}).Where("id = ?", story.ID).
		Updates(map[string]any{"started_at": now, "duration_seconds": seconds}).Error
	if err != nil {
		return nil, fmt.Errorf("reset timer: %w", err)
	}
	story.StartedAt = now
	story.DurationSeconds = seconds
	s.log.Info("story timer reset",
		zap.String("story_id", story.ID),
		zap.Int("minutes", minutes))
	return story, nil
}

// --- internals ---

func (s *StoryService) findTeam(code string) (*model.Team, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: team code is required", errs.ErrInvalidInput)
	}
	var team model.Team
	if err := s.db.Where("code = ?", code).First(&team).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.ErrTeamNotFound
		}
		return nil, fmt.Errorf("find team: %w", err)
	}
	return &team, nil
}

func (s *StoryService) loadStory(storyID string) (*model.Story, error) {
	var story model.Story
	if err := s.db.Where("id = ?", storyID).First(&story).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.ErrStoryNotFound
		}
		return nil, fmt.Errorf("load story: %w", err)
	}
	return &story, nil
}

func (s *StoryService) orderedTurns(storyID string) ([]model.Turn, error) {
	var turns []model.Turn
	if err := s.db.Where("story_id = ?", storyID).Order("turn_number ASC").Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	return turns, nil
}

func (s *StoryService) timeRemaining(story *model.Story, now time.Time) time.Duration {
	end := story.StartedAt.Add(time.Duration(story.DurationSeconds) * time.Second)
	if rem := end.Sub(now); rem > 0 {
		return rem
	}
	return 0
}

// expireIfDue makes an elapsed story durably completed. It mutates the row
// outside any caller transaction, so the flip survives a later rollback.
func (s *StoryService) expireIfDue(story *model.Story) error {
	if story.Status != string(model.StoryStatusActive) {
		return nil
	}
	if s.timeRemaining(story, time.Now().UTC()) > 0 {
		return nil
	}
	return s.markCompleted(story)
}

// ensureActive is the single write-path guard: rejects writes to completed
// stories and flips expired ones before rejecting the write.
func (s *StoryService) ensureActive(story *model.Story) error {
	if story.Status != string(model.StoryStatusActive) {
		return errs.ErrStoryNotActive
	}
	if s.timeRemaining(story, time.Now().UTC()) > 0 {
		return nil
	}
	if err := s.markCompleted(story); err != nil {
		return err
	}
	return errs.ErrSessionExpired
}

func (s *StoryService) markCompleted(story *model.Story) error {
	err := s.db.Model(&model.Story{}).Where("id = ?", story.ID).
		Update("status", string(model.StoryStatusCompleted)).Error
	if err != nil {
		return fmt.Errorf("complete story: %w", err)
	}
	story.Status = string(model.StoryStatusCompleted)
	s.log.Info("story completed", zap.String("story_id", story.ID))
	s.feed.Publish(FeedEvent{
		Type:    EventStoryCompleted,
		TeamID:  story.TeamID,
		StoryID: story.ID,
	})
	return nil
}

// insertTurn writes one turn and moves the cached turn counter in the same
// transaction. The next number is derived from the log itself, not the
// cache; the unique index backstops any race this misses.
func (s *StoryService) insertTurn(story *model.Story, author, content string, isTwist bool) (*model.Turn, error) {
	turn := &model.Turn{
		ID:         uuid.New().String(),
		StoryID:    story.ID,
		AuthorName: author,
		Content:    content,
		IsTwist:    isTwist,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var max int
		row := tx.Model(&model.Turn{}).Where("story_id = ?", story.ID).
			Select("COALESCE(MAX(turn_number), 0)").Row()
		if err := row.Scan(&max); err != nil {
			return err
		}
		turn.TurnNumber = max + 1
		if err := tx.Create(turn).Error; err != nil {
			return err
		}
		return tx.Model(&model.Story{}).Where("id = ?", story.ID).
			Update("current_turn", turn.TurnNumber).Error
	})
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}
	story.CurrentTurn = turn.TurnNumber
	return turn, nil
}

// participantTurnsSinceTwist counts participant turns (not the opening line,
// not twists) after the most recent twist. The opening line never advances
// the twist cadence.
func participantTurnsSinceTwist(turns []model.Turn) int {
	start := 0
	for i, t := range turns {
		if t.IsTwist {
			start = i + 1
		}
	}
	n := 0
	for _, t := range turns[start:] {
		if !t.IsTwist && t.AuthorName != constants.SeedPersona {
			n++
		}
	}
	return n
}

// storyText concatenates the full story for the generator.
func storyText(story *model.Story, turns []model.Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.Content)
	}
	if len(parts) == 0 {
		return story.InitialPrompt
	}
	return strings.Join(parts, " ")
}
