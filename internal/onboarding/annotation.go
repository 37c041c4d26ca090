package onboarding

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Annotation is one piece of inline feedback on a draft field: the user
// highlights a span of the rendered text and attaches a comment.
type Annotation struct {
	ID           string    `json:"id"`
	Field        string    `json:"field"`
	SelectedText string    `json:"selectedText"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewAnnotation validates and builds an annotation against the current value
// of the field. The selected text must actually occur in the field value.
func NewAnnotation(field, fieldValue, selectedText, comment string) (*Annotation, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, errors.New("annotation field is required")
	}
	if selectedText == "" {
		return nil, errors.New("annotation selection is empty")
	}
	if strings.TrimSpace(comment) == "" {
		return nil, errors.New("annotation comment is required")
	}
	if !strings.Contains(fieldValue, selectedText) {
		return nil, fmt.Errorf("selection %q not found in field %q", selectedText, field)
	}

	return &Annotation{
		ID:           uuid.NewString(),
		Field:        field,
		SelectedText: selectedText,
		Comment:      comment,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Anchor locates the annotated span in the current field value. Selections
// anchor to their first occurrence; a selection that no longer appears after
// the draft was revised reports ok=false and should be dropped by the caller.
func (a *Annotation) Anchor(current string) (int, bool) {
	idx := strings.Index(current, a.SelectedText)
	return idx, idx >= 0
}

// RevisionMessage renders a batch of annotations into the feedback turn sent
// back through the conversation.
func RevisionMessage(annotations []*Annotation) (string, error) {
	if len(annotations) == 0 {
		return "", errors.New("no annotations to revise from")
	}

	var b strings.Builder
	b.WriteString("Feedback based on annotations:")
	for i, a := range annotations {
		b.WriteString(fmt.Sprintf("\n%d. In %s (%s): %s", i+1, a.Field, a.SelectedText, a.Comment))
	}
	return b.String(), nil
}
