package onboarding

import (
	"strings"
	"testing"
)

func TestNewAnnotationValidatesSelection(t *testing.T) {
	fieldValue := "We build a marketplace for industrial sensors."

	annotation, err := NewAnnotation("vision", fieldValue, "industrial sensors", "too narrow?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if annotation.ID == "" {
		t.Fatalf("expected generated id")
	}
	if annotation.Field != "vision" {
		t.Fatalf("unexpected field: %q", annotation.Field)
	}

	if _, err := NewAnnotation("vision", fieldValue, "quantum computing", "?"); err == nil {
		t.Fatalf("expected error for selection not present in field")
	}
	if _, err := NewAnnotation("vision", fieldValue, "marketplace", "   "); err == nil {
		t.Fatalf("expected error for blank comment")
	}
}

func TestAnnotationAnchorFirstOccurrence(t *testing.T) {
	annotation := &Annotation{Field: "bio", SelectedText: "Go"}

	idx, ok := annotation.Anchor("Go engineer who loves Go tooling")
	if !ok || idx != 0 {
		t.Fatalf("expected anchor at first occurrence, got idx=%d ok=%v", idx, ok)
	}

	if _, ok := annotation.Anchor("Rust engineer"); ok {
		t.Fatalf("expected anchor to fail when selection is gone")
	}
}

func TestRevisionMessageFormat(t *testing.T) {
	annotations := []*Annotation{
		{Field: "vision", SelectedText: "change the world", Comment: "be specific"},
		{Field: "stage", SelectedText: "Idea", Comment: "already have an MVP"},
	}

	msg, err := RevisionMessage(annotations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(msg, "\n")
	if lines[0] != "Feedback based on annotations:" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "1. In vision (change the world): be specific" {
		t.Fatalf("unexpected first line: %q", lines[1])
	}
	if lines[2] != "2. In stage (Idea): already have an MVP" {
		t.Fatalf("unexpected second line: %q", lines[2])
	}
}

func TestRevisionMessageRequiresAnnotations(t *testing.T) {
	if _, err := RevisionMessage(nil); err == nil {
		t.Fatalf("expected error for empty annotation list")
	}
}
