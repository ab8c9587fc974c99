package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/s2010/story-twister/internal/errs"
	"github.com/s2010/story-twister/internal/generator"
	"github.com/s2010/story-twister/internal/model"
	"github.com/s2010/story-twister/pkg/constants"
)

func TestCreateStorySeedsOpeningTurn(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")

	story, err := f.stories.CreateStory("dragons", "The Lost Kingdom", "")
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	if story.CurrentTurn != 1 {
		t.Errorf("CurrentTurn = %d, want 1", story.CurrentTurn)
	}
	if story.Status != string(model.StoryStatusActive) {
		t.Errorf("Status = %q, want active", story.Status)
	}
	if story.DurationSeconds != 600 {
		t.Errorf("DurationSeconds = %d, want 600", story.DurationSeconds)
	}
	if story.InitialPrompt == "" {
		t.Error("InitialPrompt is empty, want a starter sentence")
	}

	turns, err := f.stories.Turns(story.ID)
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("len(turns) = %d, want 1", len(turns))
	}
	seed := turns[0]
	if seed.TurnNumber != 1 || seed.AuthorName != constants.SeedPersona || seed.IsTwist {
		t.Errorf("seed turn = #%d by %q twist=%v", seed.TurnNumber, seed.AuthorName, seed.IsTwist)
	}
	if seed.Content != story.InitialPrompt {
		t.Errorf("seed content %q != initial prompt %q", seed.Content, story.InitialPrompt)
	}
}

func TestCreateStoryValidation(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")

	if _, err := f.stories.CreateStory("dragons", "   ", ""); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("blank title: want ErrInvalidInput, got %v", err)
	}
	if _, err := f.stories.CreateStory("ghosts", "Title", ""); !errors.Is(err, errs.ErrTeamNotFound) {
		t.Errorf("unknown team: want ErrTeamNotFound, got %v", err)
	}
}

func TestAppendTurnSequencesAndAutoTwists(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")
	story, err := f.stories.CreateStory("dragons", "The Lost Kingdom", "Once upon a time")
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	ctx := context.Background()

	turn, twist, err := f.stories.AppendTurn(ctx, story.ID, "alice", "the gate creaked open")
	if err != nil {
		t.Fatalf("append alice: %v", err)
	}
	if turn.TurnNumber != 2 || twist != nil {
		t.Fatalf("alice: turn #%d twist=%v, want #2 and no twist", turn.TurnNumber, twist)
	}

	turn, twist, err = f.stories.AppendTurn(ctx, story.ID, "bob", "and a shadow slipped out")
	if err != nil {
		t.Fatalf("append bob: %v", err)
	}
	if turn.TurnNumber != 3 {
		t.Errorf("bob: turn #%d, want #3", turn.TurnNumber)
	}
	if twist == nil {
		t.Fatal("bob's append should trigger the auto twist")
	}
	if twist.TurnNumber != 4 || !twist.IsTwist || twist.AuthorName != constants.TwistPersona {
		t.Errorf("twist = #%d by %q twist=%v", twist.TurnNumber, twist.AuthorName, twist.IsTwist)
	}
	if !strings.HasPrefix(twist.Content, generator.TwistMarker) {
		t.Errorf("twist content missing marker: %q", twist.Content)
	}

	// A twist resets the cadence.
	turn, twist, err = f.stories.AppendTurn(ctx, story.ID, "carol", "nobody noticed at first")
	if err != nil {
		t.Fatalf("append carol: %v", err)
	}
	if turn.TurnNumber != 5 || twist != nil {
		t.Errorf("carol: turn #%d twist=%v, want #5 and no twist", turn.TurnNumber, twist)
	}
	_, twist, err = f.stories.AppendTurn(ctx, story.ID, "dana", "until the bells rang")
	if err != nil {
		t.Fatalf("append dana: %v", err)
	}
	if twist == nil || twist.TurnNumber != 7 {
		t.Errorf("dana's append should trigger twist #7, got %+v", twist)
	}
}

func TestAppendTurnValidation(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")
	story, err := f.stories.CreateStory("dragons", "Title", "Once upon a time")
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}

	tests := []struct {
		name    string
		storyID string
		author  string
		content string
	}{
		{"empty content", story.ID, "alice", "   "},
		{"empty author", story.ID, "", "a line"},
		{"malformed id", "not-a-uuid", "alice", "a line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.stories.AppendTurn(context.Background(), tt.storyID, tt.author, tt.content)
			if !errors.Is(err, errs.ErrInvalidInput) {
				t.Errorf("want ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAppendTurnCompletedStory(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")
	story, _ := f.stories.CreateStory("dragons", "Title", "Once upon a time")
	if _, err := f.stories.Complete(story.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	_, _, err := f.stories.AppendTurn(context.Background(), story.ID, "alice", "too late")
	if !errors.Is(err, errs.ErrStoryNotActive) {
		t.Fatalf("want ErrStoryNotActive, got %v", err)
	}
}

func TestAppendTurnExpiredStoryFlipsDurably(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")
	story, _ := f.stories.CreateStory("dragons", "Title", "Once upon a time")

	past := time.Now().UTC().Add(-11 * time.Minute)
	if err := f.db.Model(&model.Story{}).Where("id = ?", story.ID).
		Update("started_at", past).Error; err != nil {
		t.Fatalf("age story: %v", err)
	}

	_, _, err := f.stories.AppendTurn(context.Background(), story.ID, "alice", "too late")
	if !errors.Is(err, errs.ErrSessionExpired) {
		t.Fatalf("want ErrSessionExpired, got %v", err)
	}

	// The expiry flip must survive the rejected append.
	reloaded, err := f.stories.Story(story.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != string(model.StoryStatusCompleted) {
		t.Errorf("status after expiry = %q, want completed", reloaded.Status)
	}

	// Once flipped, later writes see a completed story.
	_, _, err = f.stories.AppendTurn(context.Background(), story.ID, "alice", "still too late")
	if !errors.Is(err, errs.ErrStoryNotActive) {
		t.Errorf("second append: want ErrStoryNotActive, got %v", err)
	}
}

func TestConcurrentAppendsAreGapless(t *testing.T) {
	cfg := testConfig()
	cfg.Game.TwistInterval = 100 // keep the log to participant turns only
	f := newFixture(t, cfg)
	seedTeam(t, f.db, "dragons")
	story, _ := f.stories.CreateStory("dragons", "Title", "Once upon a time")

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			author := fmt.Sprintf("writer-%d", n)
			if _, _, err := f.stories.AppendTurn(context.Background(), story.ID, author, "a line"); err != nil {
				t.Errorf("append %s: %v", author, err)
			}
		}(i)
	}
	wg.Wait()

	turns, err := f.stories.Turns(story.ID)
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != writers+1 {
		t.Fatalf("len(turns) = %d, want %d", len(turns), writers+1)
	}
	for i, turn := range turns {
		if turn.TurnNumber != i+1 {
			t.Errorf("turns[%d].TurnNumber = %d, want %d", i, turn.TurnNumber, i+1)
		}
	}
}

func TestStatusReportsClockAndCompletion(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")
	story, _ := f.stories.CreateStory("dragons", "Title", "Once upon a time")

	status, err := f.stories.Status(story.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.IsCompleted {
		t.Error("fresh story reported completed")
	}
	if status.TotalTurns != 1 || status.CurrentTurn != 1 {
		t.Errorf("TotalTurns=%d CurrentTurn=%d, want 1 and 1", status.TotalTurns, status.CurrentTurn)
	}
	if status.TimeRemainingSeconds <= 0 || status.TimeRemainingSeconds > 600 {
		t.Errorf("TimeRemainingSeconds = %d, want (0, 600]", status.TimeRemainingSeconds)
	}

	past := time.Now().UTC().Add(-11 * time.Minute)
	f.db.Model(&model.Story{}).Where("id = ?", story.ID).Update("started_at", past)

	status, err = f.stories.Status(story.ID)
	if err != nil {
		t.Fatalf("Status after expiry: %v", err)
	}
	if !status.IsCompleted || status.TimeRemainingSeconds != 0 {
		t.Errorf("expired status = %+v, want completed with 0 remaining", status)
	}
}

func TestInjectTwistResetsCadence(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")
	story, _ := f.stories.CreateStory("dragons", "Title", "Once upon a time")
	ctx := context.Background()

	if _, _, err := f.stories.AppendTurn(ctx, story.ID, "alice", "a quiet start"); err != nil {
		t.Fatalf("append: %v", err)
	}

	twist, err := f.stories.InjectTwist(ctx, story.ID, "alice (Twist)")
	if err != nil {
		t.Fatalf("InjectTwist: %v", err)
	}
	if !twist.IsTwist || twist.AuthorName != "alice (Twist)" || twist.TurnNumber != 3 {
		t.Errorf("twist = #%d by %q twist=%v", twist.TurnNumber, twist.AuthorName, twist.IsTwist)
	}

	// The manual twist restarts the auto-twist counter.
	_, auto, err := f.stories.AppendTurn(ctx, story.ID, "bob", "a new direction")
	if err != nil {
		t.Fatalf("append after twist: %v", err)
	}
	if auto != nil {
		t.Errorf("auto twist fired one turn after a manual twist: %+v", auto)
	}
}

func TestResetTimerRestartsClock(t *testing.T) {
	f := newFixture(t, nil)
	seedTeam(t, f.db, "dragons")
	story, _ := f.stories.CreateStory("dragons", "Title", "Once upon a time")

	updated, err := f.stories.ResetTimer(story.ID, 5)
	if err != nil {
		t.Fatalf("ResetTimer: %v", err)
	}
	if updated.DurationSeconds != 300 {
		t.Errorf("DurationSeconds = %d, want 300", updated.DurationSeconds)
	}

	status, err := f.stories.Status(story.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.TimeRemainingSeconds <= 0 || status.TimeRemainingSeconds > 300 {
		t.Errorf("TimeRemainingSeconds = %d, want (0, 300]", status.TimeRemainingSeconds)
	}

	if _, err := f.stories.ResetTimer(story.ID, 0); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("zero minutes: want ErrInvalidInput, got %v", err)
	}
}
