// Package ai defines the contracts between the matchmaking core and the
// generative-model providers. Everything provider-specific lives behind the
// Invoker seam: text (plus an optional inline attachment) in, raw text out.
package ai

import "context"

// Direction selects which side of a compatibility check is the source.
type Direction string

const (
	TalentToProject Direction = "talent_to_project"
	ProjectToTalent Direction = "project_to_talent"
)

// Valid reports whether the direction is one of the two supported values.
func (d Direction) Valid() bool {
	return d == TalentToProject || d == ProjectToTalent
}

const (
	StatusCalculated = "calculated"
	StatusFailed     = "failed"
)

// MatchAssessment is the structured compatibility judgment for one
// (source, target) pair. Status distinguishes a genuine low score from a
// fallback produced after a failed model call or unparseable response.
type MatchAssessment struct {
	Score  int      `json:"score"`
	Reason string   `json:"reason"`
	Pros   []string `json:"pros"`
	Cons   []string `json:"cons"`
	Status string   `json:"status"`
	Raw    string   `json:"-"`
}

// FallbackAssessment returns the safe substitute record used when scoring a
// pair fails for any reason.
func FallbackAssessment(reason string) *MatchAssessment {
	return &MatchAssessment{
		Score:  0,
		Reason: reason,
		Pros:   []string{},
		Cons:   []string{},
		Status: StatusFailed,
	}
}

// TurnReply is one conversational turn's outcome: the assistant's visible
// reply plus a sparse patch of draft fields inferred from the latest input.
type TurnReply struct {
	Reply   string         `json:"reply"`
	Updates map[string]any `json:"updates"`
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is a single message in the onboarding conversation history.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Attachment is one inline binary part attached to the latest user turn.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Content is the latest user input of a model invocation.
type Content struct {
	Text       string
	Attachment *Attachment
}

// Invoker is the narrow seam to a generative model. History and content are
// provider-agnostic; implementations translate them into their own wire
// shapes and return the model's raw textual response.
type Invoker interface {
	Invoke(ctx context.Context, systemInstruction string, history []Turn, content Content) (string, error)
}

// Scorer produces a compatibility judgment between two serialized entities.
// Implementations never fail past this boundary: any error is absorbed into
// a fallback assessment.
type Scorer interface {
	Score(ctx context.Context, source, target string, direction Direction) *MatchAssessment
}

// Assistant runs one turn of the conversational field-extraction protocol.
// Like Scorer it always returns a well-shaped reply, substituting a canned
// apology when the model call or its parsing fails.
type Assistant interface {
	Reply(ctx context.Context, systemInstruction string, history []Turn, content Content) *TurnReply
}

// FillerTurnText bridges a trailing assistant turn so the shaped history
// keeps strict user/model alternation.
const FillerTurnText = "continue the previous conversation"

// ShapeHistory repairs a stored conversation for the chat transport: leading
// assistant turns (seeded welcome messages) are dropped, and a trailing
// assistant turn is sandwiched with a filler user turn instead of being
// discarded. The result starts with a user turn and never ends on a bare
// assistant turn.
func ShapeHistory(history []Turn) []Turn {
	for len(history) > 0 && history[0].Role == RoleModel {
		history = history[1:]
	}

	shaped := make([]Turn, len(history))
	copy(shaped, history)

	if n := len(shaped); n > 0 && shaped[n-1].Role == RoleModel {
		shaped = append(shaped, Turn{Role: RoleUser, Text: FillerTurnText})
	}

	return shaped
}
