package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/s2010/story-twister/internal/errs"
	"github.com/s2010/story-twister/internal/generator"
	"github.com/s2010/story-twister/internal/model"
)

func TestAnalyzeSeedOnlyStoryScoresZero(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")
	story, err := f.stories.CreateStory("dragons", "Title", "Once upon a time")
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}

	a, err := f.analyses.Analyze(context.Background(), story.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.CreativityScore != 0 || a.EngagementScore != 0 || a.CollaborationScore != 0 {
		t.Errorf("scores = %d/%d/%d, want all zero", a.CreativityScore, a.EngagementScore, a.CollaborationScore)
	}
	if a.TotalTurns != 0 || a.UniqueParticipants != 0 {
		t.Errorf("counters = %d turns, %d participants, want zero", a.TotalTurns, a.UniqueParticipants)
	}
	if a.CreativityFeedback != "No user contributions to analyze." {
		t.Errorf("creativity feedback = %q", a.CreativityFeedback)
	}
	if a.EngagementFeedback != "No user engagement recorded." {
		t.Errorf("engagement feedback = %q", a.EngagementFeedback)
	}
	if a.CollaborationFeedback != "No collaboration occurred." {
		t.Errorf("collaboration feedback = %q", a.CollaborationFeedback)
	}
}

func TestAnalyzeAlternatingAuthors(t *testing.T) {
	cfg := testConfig()
	cfg.Game.TwistInterval = 100 // keep twists out of the arithmetic
	f := newFixture(t, cfg)
	seedTeam(t, f.db, "dragons")
	story, err := f.stories.CreateStory("dragons", "Title", "Once upon a time")
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	ctx := context.Background()
	if _, _, err := f.stories.AppendTurn(ctx, story.ID, "alice", "the dragon woke"); err != nil {
		t.Fatalf("append alice: %v", err)
	}
	if _, _, err := f.stories.AppendTurn(ctx, story.ID, "bob", "and flew away"); err != nil {
		t.Fatalf("append bob: %v", err)
	}

	a, err := f.analyses.Analyze(ctx, story.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.TotalTurns != 2 || a.UniqueParticipants != 2 {
		t.Errorf("counters = %d turns, %d participants, want 2 and 2", a.TotalTurns, a.UniqueParticipants)
	}

	// Story text: "Once upon a time the dragon woke and flew away".
	// 10 unique words, 3 turns in the log, 1 handoff, avg 1.0 turns each.
	if want := 10*2 + 0 + 9; a.CreativityScore != want {
		t.Errorf("CreativityScore = %d, want %d", a.CreativityScore, want)
	}
	if want := 20 + 2*4 + 0; a.EngagementScore != want {
		t.Errorf("EngagementScore = %d, want %d", a.EngagementScore, want)
	}
	if want := 1*15 + 1*20 + 1; a.CollaborationScore != want {
		t.Errorf("CollaborationScore = %d, want %d", a.CollaborationScore, want)
	}
	if !strings.Contains(a.CreativityFeedback, "unique words") {
		t.Errorf("creativity feedback = %q", a.CreativityFeedback)
	}
}

func TestAnalyzeClampsScoresAt100(t *testing.T) {
	cfg := testConfig()
	cfg.Game.TwistInterval = 100
	f := newFixture(t, cfg)
	seedTeam(t, f.db, "dragons")
	story, err := f.stories.CreateStory("dragons", "Title", "Once upon a time")
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	ctx := context.Background()
	authors := []string{"alice", "bob", "carol"}
	for i := 0; i < 12; i++ {
		content := fmt.Sprintf("chapter%d brings word%da word%db word%dc word%dd", i, i, i, i, i)
		if _, _, err := f.stories.AppendTurn(ctx, story.ID, authors[i%len(authors)], content); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	a, err := f.analyses.Analyze(ctx, story.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for name, score := range map[string]int{
		"creativity":    a.CreativityScore,
		"engagement":    a.EngagementScore,
		"collaboration": a.CollaborationScore,
	} {
		if score != 100 {
			t.Errorf("%s score = %d, want clamped to 100", name, score)
		}
	}
}

func TestAnalyzeIsMemoized(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")
	story, err := f.stories.CreateStory("dragons", "Title", "Once upon a time")
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	ctx := context.Background()
	if _, _, err := f.stories.AppendTurn(ctx, story.ID, "alice", "the first line"); err != nil {
		t.Fatalf("append: %v", err)
	}

	first, err := f.analyses.Analyze(ctx, story.ID)
	if err != nil {
		t.Fatalf("first Analyze: %v", err)
	}

	// More activity after the first analysis must not change the scorecard.
	if _, _, err := f.stories.AppendTurn(ctx, story.ID, "bob", "a later line"); err != nil {
		t.Fatalf("append after analysis: %v", err)
	}
	second, err := f.analyses.Analyze(ctx, story.ID)
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("analysis recomputed: %s vs %s", second.ID, first.ID)
	}
	if !sameScorecard(first, second) {
		t.Errorf("analysis rows differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func sameScorecard(a, b *model.SessionAnalysis) bool {
	return a.ID == b.ID &&
		a.CreativityScore == b.CreativityScore &&
		a.EngagementScore == b.EngagementScore &&
		a.CollaborationScore == b.CollaborationScore &&
		a.CreativityFeedback == b.CreativityFeedback &&
		a.EngagementFeedback == b.EngagementFeedback &&
		a.CollaborationFeedback == b.CollaborationFeedback &&
		a.TotalTurns == b.TotalTurns &&
		a.UniqueParticipants == b.UniqueParticipants &&
		a.SessionDurationMinutes == b.SessionDurationMinutes
}

func TestAnalyzeSurvivesRestart(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")
	story, err := f.stories.CreateStory("dragons", "Title", "Once upon a time")
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	ctx := context.Background()
	if _, _, err := f.stories.AppendTurn(ctx, story.ID, "alice", "the first line"); err != nil {
		t.Fatalf("append: %v", err)
	}
	first, err := f.analyses.Analyze(ctx, story.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// A fresh service over the same database stands in for a restart.
	writer := generator.NewWriter(nil, f.cfg.Generator, nil)
	stories := NewStoryService(f.db, f.cfg, writer, nil, nil)
	analyses := NewAnalysisService(f.db, f.cfg, writer, stories, nil, nil)

	again, err := analyses.Analyze(ctx, story.ID)
	if err != nil {
		t.Fatalf("Analyze after restart: %v", err)
	}
	if !sameScorecard(first, again) {
		t.Errorf("scorecard changed across restart:\nfirst: %+v\nagain: %+v", first, again)
	}
}

func TestAnalyzeUnknownStory(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.analyses.Analyze(context.Background(), "1f1e9f3c-0000-4000-8000-000000000000"); !errors.Is(err, errs.ErrStoryNotFound) {
		t.Errorf("want ErrStoryNotFound, got %v", err)
	}
	if _, err := f.analyses.Analyze(context.Background(), "nope"); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("want ErrInvalidInput, got %v", err)
	}
}
