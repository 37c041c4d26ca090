package inbox

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/cyberxz2077/Startup-Hub/internal/store"
)

type fakeInboxStore struct {
	sessions map[string]*store.ChatSession
	messages []*store.ChatMessage
	touched  []string
	nextID   int
}

func newFakeInboxStore() *fakeInboxStore {
	return &fakeInboxStore{sessions: map[string]*store.ChatSession{}}
}

func key(userID, targetID, targetType string) string {
	return userID + "/" + targetID + "/" + targetType
}

func (f *fakeInboxStore) FindChatSession(_ context.Context, userID, targetID, targetType string) (*store.ChatSession, error) {
	if s, ok := f.sessions[key(userID, targetID, targetType)]; ok {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeInboxStore) CreateChatSession(_ context.Context, userID, targetID, targetType string) (*store.ChatSession, error) {
	f.nextID++
	s := &store.ChatSession{
		ID:         string(rune('a' + f.nextID)),
		UserID:     userID,
		TargetID:   targetID,
		TargetType: targetType,
	}
	f.sessions[key(userID, targetID, targetType)] = s
	return s, nil
}

func (f *fakeInboxStore) AddChatMessage(_ context.Context, sessionID, role, content string) (*store.ChatMessage, error) {
	msg := &store.ChatMessage{ID: "msg", SessionID: sessionID, Role: role, Content: content}
	f.messages = append(f.messages, msg)
	return msg, nil
}

func (f *fakeInboxStore) TouchChatSession(_ context.Context, sessionID string) error {
	f.touched = append(f.touched, sessionID)
	return nil
}

func (f *fakeInboxStore) ListChatSessions(_ context.Context, userID string) ([]*store.ChatSession, error) {
	var out []*store.ChatSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestSendCreatesThreadOnFirstContact(t *testing.T) {
	f := newFakeInboxStore()
	svc := NewService(f, zap.NewNop())

	msg, err := svc.Send(context.Background(), "user-1", "proj-1", TargetProject, "hi there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Role != "user" || msg.Content != "hi there" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if len(f.sessions) != 1 {
		t.Fatalf("expected one thread, got %d", len(f.sessions))
	}
	if len(f.touched) != 1 {
		t.Fatalf("expected thread to be touched")
	}
}

func TestSendReusesExistingThread(t *testing.T) {
	f := newFakeInboxStore()
	svc := NewService(f, zap.NewNop())

	ctx := context.Background()
	if _, err := svc.Send(ctx, "user-1", "proj-1", TargetProject, "first"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if _, err := svc.Send(ctx, "user-1", "proj-1", TargetProject, "second"); err != nil {
		t.Fatalf("second send: %v", err)
	}

	if len(f.sessions) != 1 {
		t.Fatalf("expected single thread for same pair, got %d", len(f.sessions))
	}
	if len(f.messages) != 2 {
		t.Fatalf("expected both messages appended, got %d", len(f.messages))
	}
}

func TestSendValidation(t *testing.T) {
	svc := NewService(newFakeInboxStore(), zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Send(ctx, "user-1", "", TargetProject, "hi"); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage for empty target, got %v", err)
	}
	if _, err := svc.Send(ctx, "user-1", "proj-1", TargetProject, "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage for blank content, got %v", err)
	}
	if _, err := svc.Send(ctx, "user-1", "proj-1", "vacancy", "hi"); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage for unknown target type, got %v", err)
	}
}
