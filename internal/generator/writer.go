package generator

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/s2010/story-twister/internal/config"
	"github.com/s2010/story-twister/internal/language"
)

// Writer produces twist sentences and analysis feedback. It wraps an
// optional Client; with a nil client, or on any generation failure, it
// falls back to the fixed per-language pools. From the caller's point of
// view generation always succeeds.
type Writer struct {
	client Client
	cfg    config.GeneratorConfig
	log    *zap.Logger
}

// NewWriter creates a Writer. client may be nil (generator unconfigured).
func NewWriter(client Client, cfg config.GeneratorConfig, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{client: client, cfg: cfg, log: log}
}

// Configured reports whether a real generator backs this writer.
func (w *Writer) Configured() bool { return w.client != nil }

// Twist returns one twist sentence for the accumulated story text, prefixed
// with the twist marker. Never fails.
func (w *Writer) Twist(ctx context.Context, storyText string) string {
	lang := language.Detect(storyText)
	if w.client == nil {
		return twistFallback(lang)
	}

	out, err := w.client.Complete(ctx, twistPrompt(lang, storyText), w.cfg.TwistMaxTokens, w.cfg.TwistTemperature)
	if err != nil {
		w.log.Warn("twist generation failed, using fallback", zap.Error(err))
		return twistFallback(lang)
	}
	twist := strings.TrimSpace(out)
	if twist == "" {
		return twistFallback(lang)
	}
	if !strings.HasPrefix(twist, TwistMarker) {
		twist = TwistMarker + " " + twist
	}
	return twist
}

// AnalysisSummary carries the counters the feedback prompt and the fallback
// templates are built from.
type AnalysisSummary struct {
	StoryText          string
	CreativityScore    int
	EngagementScore    int
	CollaborationScore int
	TotalTurns         int
	UniqueParticipants int
	DurationMinutes    int
	UniqueWords        int
	AvgTurnsPerAuthor  float64
	Handoffs           int
}

// Feedback holds the three per-category feedback strings.
type Feedback struct {
	Creativity    string
	Engagement    string
	Collaboration string
}

// Feedback returns per-category feedback for a finished analysis. Categories
// the generator fails to cover fall back to the deterministic templates, so
// scorecard creation is never blocked.
func (w *Writer) Feedback(ctx context.Context, sum AnalysisSummary) Feedback {
	lang := language.Detect(sum.StoryText)
	fb := fallbackFeedback(lang, sum)
	if w.client == nil {
		return fb
	}

	out, err := w.client.Complete(ctx, feedbackPrompt(lang, sum), w.cfg.FeedbackMaxTokens, w.cfg.FeedbackTemperature)
	if err != nil {
		w.log.Warn("feedback generation failed, using fallback", zap.Error(err))
		return fb
	}

	// Scan returned lines for category keywords; categories the model did
	// not cover keep their template text.
	var gotCreat, gotEng, gotCollab bool
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case !gotCreat && (strings.Contains(lower, "creativity") || strings.Contains(line, "الإبداع")):
			fb.Creativity, gotCreat = line, true
		case !gotEng && (strings.Contains(lower, "engagement") || strings.Contains(line, "المشاركة")):
			fb.Engagement, gotEng = line, true
		case !gotCollab && (strings.Contains(lower, "collaboration") || strings.Contains(line, "التعاون")):
			fb.Collaboration, gotCollab = line, true
		}
	}
	return fb
}
