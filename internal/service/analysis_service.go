package service

import (
	"context"
	"errors"
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

// AnalysisService computes and memoizes the per-story scorecard. The first
// analysis runs under the story lock; every later request returns the stored
// row verbatim, including after a restart.
type AnalysisService struct {
	db      *gorm.DB
	cfg     *config.Config
	writer  *generator.Writer
	stories *StoryService
	feed    *FeedHub
	log     *zap.Logger
}

// NewAnalysisService creates an AnalysisService. It shares the story locks
// of the given StoryService.
func NewAnalysisService(db *gorm.DB, cfg *config.Config, writer *generator.Writer, stories *StoryService, feed *FeedHub, log *zap.Logger) *AnalysisService {
	if log == nil {
		log = zap.NewNop()
	}
	if feed == nil {
		feed = NewFeedHub(log)
	}
	return &AnalysisService{db: db, cfg: cfg, writer: writer, stories: stories, feed: feed, log: log}
}

// Analyze returns the story's scorecard, computing and persisting it on
// first request.
func (s *AnalysisService) Analyze(ctx context.Context, storyID string) (*model.SessionAnalysis, error) {
	if _, err := uuid.Parse(storyID); err != nil {
		return nil, fmt.Errorf("%w: malformed story id", errs.ErrInvalidInput)
	}

	if existing, err := s.stored(storyID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	unlock := s.stories.locks.acquire(storyID)
	defer unlock()

	// A concurrent request may have computed it while we waited on the lock.
	if existing, err := s.stored(storyID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	story, err := s.stories.loadStory(storyID)
	if err != nil {
		return nil, err
	}
	if err := s.stories.expireIfDue(story); err != nil {
		return nil, err
	}
	turns, err := s.stories.orderedTurns(storyID)
	if err != nil {
		return nil, err
	}

	analysis := s.compute(ctx, story, turns)
	if err := s.db.Create(analysis).Error; err != nil {
		return nil, fmt.Errorf("store analysis: %w", err)
	}
	s.log.Info("analysis computed",
		zap.String("story_id", story.ID),
		zap.Int("creativity", analysis.CreativityScore),
		zap.Int("engagement", analysis.EngagementScore),
		zap.Int("collaboration", analysis.CollaborationScore))
	s.feed.Publish(FeedEvent{
		Type:    EventAnalysisComputed,
		TeamID:  story.TeamID,
		StoryID: story.ID,
	})
	return analysis, nil
}

func (s *AnalysisService) stored(storyID string) (*model.SessionAnalysis, error) {
	var a model.SessionAnalysis
	err := s.db.Where("story_id = ?", storyID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis: %w", err)
	}
	return &a, nil
}

func (s *AnalysisService) compute(ctx context.Context, story *model.Story, turns []model.Turn) *model.SessionAnalysis {
	sc := s.cfg.Scoring

	var (
		userTurns  int
		twistCount int
		authors    = map[string]struct{}{}
	)
	parts := []string{story.InitialPrompt}
	for _, t := range turns {
		if t.TurnNumber > 1 || t.AuthorName != constants.SeedPersona {
			parts = append(parts, t.Content)
		}
		if t.IsTwist {
			twistCount++
			continue
		}
		if t.AuthorName == constants.SeedPersona {
			continue
		}
		userTurns++
		authors[t.AuthorName] = struct{}{}
	}
	participants := len(authors)
	text := strings.Join(parts, " ")
	words := strings.Fields(text)
	unique := map[string]struct{}{}
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	uniqueWords := len(unique)

	elapsed := time.Since(story.StartedAt)
	if limit := time.Duration(story.DurationSeconds) * time.Second; elapsed > limit {
		elapsed = limit
	}
	minutes := int(elapsed.Minutes())

	analysis := &model.SessionAnalysis{
		ID:                     uuid.New().String(),
		StoryID:                story.ID,
		TotalTurns:             userTurns,
		UniqueParticipants:     participants,
		SessionDurationMinutes: minutes,
	}

	if userTurns == 0 || participants == 0 {
		analysis.CreativityFeedback = "No user contributions to analyze."
		analysis.EngagementFeedback = "No user engagement recorded."
		analysis.CollaborationFeedback = "No collaboration occurred."
		return analysis
	}

	allTurns := len(turns)
	creativity := uniqueWords*sc.UniqueWordWeight +
		twistCount*sc.TwistWeight +
		minInt(sc.LengthBonusCap, allTurns*sc.LengthBonusWeight)

	avgTurns := float64(userTurns) / float64(participants)
	engagement := int(avgTurns*float64(sc.ParticipationRate)) +
		minInt(sc.ActivityCap, userTurns*sc.ActivityWeight) +
		minInt(sc.TimeCap, minutes)

	handoffs := countHandoffs(turns)
	collaboration := handoffs*sc.HandoffWeight +
		(participants-1)*sc.DiversityWeight +
		minInt(sc.CoherenceCap, len(words)/sc.CoherenceDivisor)

	analysis.CreativityScore = clamp(creativity, sc.CreativityFloor, 100)
	analysis.EngagementScore = clamp(engagement, sc.EngagementFloor, 100)
	analysis.CollaborationScore = clamp(collaboration, sc.CollaborationFloor, 100)

	fb := s.writer.Feedback(ctx, generator.AnalysisSummary{
		StoryText:          text,
		CreativityScore:    analysis.CreativityScore,
		EngagementScore:    analysis.EngagementScore,
		CollaborationScore: analysis.CollaborationScore,
		TotalTurns:         userTurns,
		UniqueParticipants: participants,
		DurationMinutes:    minutes,
		UniqueWords:        uniqueWords,
		AvgTurnsPerAuthor:  avgTurns,
		Handoffs:           handoffs,
	})
	analysis.CreativityFeedback = fb.Creativity
	analysis.EngagementFeedback = fb.Engagement
	analysis.CollaborationFeedback = fb.Collaboration
	return analysis
}

// countHandoffs counts author changes between consecutive participant turns.
// Twists and the opening line do not take part.
func countHandoffs(turns []model.Turn) int {
	prev := ""
	n := 0
	for _, t := range turns {
		if t.IsTwist || t.AuthorName == constants.SeedPersona {
			continue
		}
		if prev != "" && t.AuthorName != prev {
			n++
		}
		prev = t.AuthorName
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
