package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/s2010/story-twister/internal/config"
)

// stubClient returns a canned completion or error.
type stubClient struct {
	out string
	err error
}

func (s *stubClient) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return s.out, s.err
}

func testWriter(c Client) *Writer {
	return NewWriter(c, config.GeneratorConfig{TwistMaxTokens: 150, FeedbackMaxTokens: 400}, nil)
}

func TestTwistUnconfiguredUsesFallbackPool(t *testing.T) {
	w := testWriter(nil)
	twist := w.Twist(context.Background(), "Once upon a time a fisherman set out to sea")
	if !strings.HasPrefix(twist, TwistMarker) {
		t.Errorf("fallback twist missing marker: %q", twist)
	}
	found := false
	for _, fb := range englishTwistFallbacks {
		if twist == fb {
			found = true
		}
	}
	if !found {
		t.Errorf("twist %q not drawn from the english fallback pool", twist)
	}
}

func TestTwistArabicStoryUsesArabicPool(t *testing.T) {
	w := testWriter(nil)
	twist := w.Twist(context.Background(), "كان يامكان في قديم الزمان تاجر يسافر عبر الصحراء")
	found := false
	for _, fb := range arabicTwistFallbacks {
		if twist == fb {
			found = true
		}
	}
	if !found {
		t.Errorf("twist %q not drawn from the arabic fallback pool", twist)
	}
}

func TestTwistGenerationFailureFallsBack(t *testing.T) {
	w := testWriter(&stubClient{err: errors.New("quota exceeded")})
	twist := w.Twist(context.Background(), "The last library on Earth held a secret")
	if !strings.HasPrefix(twist, TwistMarker) {
		t.Errorf("twist missing marker after failure: %q", twist)
	}
}

func TestTwistPrefixesMarker(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{"bare sentence gets marker", "The king was a dragon all along.", TwistMarker + " The king was a dragon all along."},
		{"already marked stays unchanged", TwistMarker + " The moon cracked open.", TwistMarker + " The moon cracked open."},
		{"surrounding whitespace trimmed", "  A door appeared in the sky.  ", TwistMarker + " A door appeared in the sky."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testWriter(&stubClient{out: tt.out})
			if got := w.Twist(context.Background(), "Once upon a time"); got != tt.want {
				t.Errorf("Twist() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFeedbackUnconfiguredUsesTemplates(t *testing.T) {
	w := testWriter(nil)
	sum := AnalysisSummary{
		StoryText:          "Once upon a time two friends wrote a story",
		UniqueWords:        42,
		AvgTurnsPerAuthor:  2.5,
		Handoffs:           3,
		UniqueParticipants: 2,
	}
	fb := w.Feedback(context.Background(), sum)
	if !strings.Contains(fb.Creativity, "42 unique words") {
		t.Errorf("creativity template missing counter: %q", fb.Creativity)
	}
	if !strings.Contains(fb.Engagement, "2.5 turns per person") {
		t.Errorf("engagement template missing counter: %q", fb.Engagement)
	}
	if !strings.Contains(fb.Collaboration, "3 smooth transitions between 2 participants") {
		t.Errorf("collaboration template missing counters: %q", fb.Collaboration)
	}
}

func TestFeedbackParsesCategoryLines(t *testing.T) {
	out := strings.Join([]string{
		"1. Creativity: wonderful imagery throughout the story.",
		"2. Engagement: everyone contributed steadily.",
		"3. Collaboration: smooth handoffs between authors.",
	}, "\n")
	w := testWriter(&stubClient{out: out})
	fb := w.Feedback(context.Background(), AnalysisSummary{StoryText: "Once upon a time"})
	if !strings.Contains(fb.Creativity, "wonderful imagery") {
		t.Errorf("creativity line not parsed: %q", fb.Creativity)
	}
	if !strings.Contains(fb.Engagement, "contributed steadily") {
		t.Errorf("engagement line not parsed: %q", fb.Engagement)
	}
	if !strings.Contains(fb.Collaboration, "smooth handoffs") {
		t.Errorf("collaboration line not parsed: %q", fb.Collaboration)
	}
}

func TestFeedbackPartialResponseKeepsTemplates(t *testing.T) {
	w := testWriter(&stubClient{out: "Creativity: a wild and vivid tale."})
	sum := AnalysisSummary{StoryText: "Once upon a time", UniqueWords: 7, AvgTurnsPerAuthor: 1, Handoffs: 0, UniqueParticipants: 1}
	fb := w.Feedback(context.Background(), sum)
	if !strings.Contains(fb.Creativity, "wild and vivid") {
		t.Errorf("creativity line not parsed: %q", fb.Creativity)
	}
	if !strings.Contains(fb.Engagement, "turns per person") {
		t.Errorf("engagement should keep template: %q", fb.Engagement)
	}
}

func TestStarterPromptLanguage(t *testing.T) {
	en := StarterPrompt("The Lost Kingdom")
	found := false
	for _, s := range englishStarters {
		if en == s {
			found = true
		}
	}
	if !found {
		t.Errorf("starter %q not drawn from english pool", en)
	}

	ar := StarterPrompt("مدينة الأسرار")
	found = false
	for _, s := range arabicStarters {
		if ar == s {
			found = true
		}
	}
	if !found {
		t.Errorf("starter %q not drawn from arabic pool", ar)
	}
}
