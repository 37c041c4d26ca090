package gemini

import (
	"context"
	_ "embed"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cyberxz2077/Startup-Hub/internal/ai"
	"github.com/cyberxz2077/Startup-Hub/internal/logger"
	"github.com/cyberxz2077/Startup-Hub/internal/metrics"
)

//go:embed prompt_talent_to_project.md
var talentToProjectPrompt string

//go:embed prompt_project_to_talent.md
var projectToTalentPrompt string

const (
	fallbackReason      = "Analysis failed"
	defaultMaxLogLength = 500
)

// Scorer turns (source, target) entity pairs into compatibility assessments.
// It never returns an error: model failures and unparseable responses are
// absorbed into a fallback assessment so one bad pair cannot sink a batch.
type Scorer struct {
	invoker      ai.Invoker
	logger       *zap.Logger
	maxLogLength int
}

// NewScorer creates a Scorer on top of any ai.Invoker. Responses longer than
// maxLogLength are truncated in log output only.
func NewScorer(invoker ai.Invoker, log *zap.Logger, maxLogLength int) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Scorer{
		invoker:      invoker,
		logger:       log,
		maxLogLength: maxLogLength,
	}
}

// Score implements ai.Scorer.
func (s *Scorer) Score(ctx context.Context, source, target string, direction ai.Direction) *ai.MatchAssessment {
	prompt := buildScorePrompt(source, target, direction)

	start := time.Now()
	raw, err := s.invoker.Invoke(ctx, "", nil, ai.Content{Text: prompt})
	metrics.ModelCallDuration.WithLabelValues("score").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ModelCalls.WithLabelValues("score", metrics.OutcomeError).Inc()
		s.logger.Warn("match scoring call failed",
			zap.String("direction", string(direction)),
			zap.Error(err),
		)
		return ai.FallbackAssessment(fallbackReason)
	}
	metrics.ModelCalls.WithLabelValues("score", metrics.OutcomeOK).Inc()

	assessment, err := ai.DecodeAssessment(raw)
	if err != nil {
		metrics.ParseFailures.WithLabelValues("score").Inc()
		s.logger.Warn("match scoring response rejected",
			zap.String("direction", string(direction)),
			zap.String("response", logger.TruncateForLog(raw, s.maxLogLength)),
			zap.Error(err),
		)
		return ai.FallbackAssessment(fallbackReason)
	}

	assessment.Raw = raw
	s.logger.Debug("match scored",
		zap.String("direction", string(direction)),
		zap.Int("score", assessment.Score),
	)

	return assessment
}

func buildScorePrompt(source, target string, direction ai.Direction) string {
	template := talentToProjectPrompt
	if direction == ai.ProjectToTalent {
		template = projectToTalentPrompt
	}

	prompt := strings.ReplaceAll(template, "{{SOURCE}}", source)
	return strings.ReplaceAll(prompt, "{{TARGET}}", target)
}
