package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/cyberxz2077/Startup-Hub/internal/ai"
)

type stubInvoker struct {
	response    string
	err         error
	lastSystem  string
	lastHistory []ai.Turn
	lastContent ai.Content
}

func (s *stubInvoker) Invoke(_ context.Context, systemInstruction string, history []ai.Turn, content ai.Content) (string, error) {
	s.lastSystem = systemInstruction
	s.lastHistory = history
	s.lastContent = content
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestScorerScore(t *testing.T) {
	stub := &stubInvoker{response: `{"score": 85, "reason": "Strong skill overlap", "pros": ["Go"], "cons": ["junior"]}`}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	assessment := scorer.Score(context.Background(), "talent profile", "project manifest", ai.TalentToProject)

	if assessment.Score != 85 {
		t.Fatalf("expected score 85, got %d", assessment.Score)
	}
	if assessment.Status != ai.StatusCalculated {
		t.Fatalf("unexpected status: %q", assessment.Status)
	}
	if len(assessment.Pros) != 1 || assessment.Pros[0] != "Go" {
		t.Fatalf("unexpected pros: %v", assessment.Pros)
	}

	prompt := stub.lastContent.Text
	if !strings.Contains(prompt, "talent profile") || !strings.Contains(prompt, "project manifest") {
		t.Fatalf("expected entities substituted into prompt, got: %s", prompt)
	}
	if !strings.Contains(prompt, "Skills match, Vision alignment, and Culture fit") {
		t.Fatalf("expected assessment criteria in talent prompt, got: %s", prompt)
	}
}

func TestScorerDirectionSelectsPrompt(t *testing.T) {
	stub := &stubInvoker{response: `{"score": 50, "reason": "r"}`}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	scorer.Score(context.Background(), "manifest", "profile", ai.ProjectToTalent)

	prompt := stub.lastContent.Text
	if !strings.Contains(prompt, "Analyze the compatibility between this Project and this Talent.") {
		t.Fatalf("expected project-to-talent framing, got: %s", prompt)
	}
	if strings.Contains(prompt, "Culture fit") {
		t.Fatalf("criteria line belongs to the talent prompt only: %s", prompt)
	}
}

func TestScorerFallsBackOnInvokeError(t *testing.T) {
	stub := &stubInvoker{err: errors.New("boom")}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	assessment := scorer.Score(context.Background(), "a", "b", ai.TalentToProject)

	if assessment.Score != 0 {
		t.Fatalf("expected zero score, got %d", assessment.Score)
	}
	if assessment.Reason != fallbackReason {
		t.Fatalf("unexpected reason: %q", assessment.Reason)
	}
	if assessment.Status != ai.StatusFailed {
		t.Fatalf("expected failed status, got %q", assessment.Status)
	}
	if assessment.Pros == nil || assessment.Cons == nil {
		t.Fatalf("expected non-nil pros/cons in fallback")
	}
}

func TestScorerFallsBackOnUnparseableResponse(t *testing.T) {
	stub := &stubInvoker{response: "I think they would get along great!"}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	assessment := scorer.Score(context.Background(), "a", "b", ai.ProjectToTalent)

	if assessment.Status != ai.StatusFailed {
		t.Fatalf("expected failed status, got %q", assessment.Status)
	}
	if assessment.Reason != fallbackReason {
		t.Fatalf("unexpected reason: %q", assessment.Reason)
	}
}
