// Package inbox implements the direct-message threads opened from match
// results: one thread per (user, target) pair, found or created on first
// message.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cyberxz2077/Startup-Hub/internal/store"
)

// ErrInvalidMessage is returned when a send request is missing a field.
var ErrInvalidMessage = errors.New("inbox: invalid message")

// Target types a thread can point at.
const (
	TargetProject = "project"
	TargetProfile = "profile"
)

// Store is the persistence surface the inbox needs.
type Store interface {
	FindChatSession(ctx context.Context, userID, targetID, targetType string) (*store.ChatSession, error)
	CreateChatSession(ctx context.Context, userID, targetID, targetType string) (*store.ChatSession, error)
	AddChatMessage(ctx context.Context, sessionID, role, content string) (*store.ChatMessage, error)
	TouchChatSession(ctx context.Context, sessionID string) error
	ListChatSessions(ctx context.Context, userID string) ([]*store.ChatSession, error)
}

// Service mediates between handlers and thread storage.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires the inbox.
func NewService(st Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, logger: log}
}

// List returns the user's threads, most recently active first.
func (s *Service) List(ctx context.Context, userID string) ([]*store.ChatSession, error) {
	sessions, err := s.store.ListChatSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	return sessions, nil
}

// Send appends a message to the thread between userID and the target,
// creating the thread on first contact. The touched thread sorts to the top
// of the sender's inbox.
func (s *Service) Send(ctx context.Context, userID, targetID, targetType, content string) (*store.ChatMessage, error) {
	if targetID == "" || strings.TrimSpace(content) == "" {
		return nil, ErrInvalidMessage
	}
	if targetType != TargetProject && targetType != TargetProfile {
		return nil, fmt.Errorf("%w: unknown target type %q", ErrInvalidMessage, targetType)
	}

	session, err := s.store.FindChatSession(ctx, userID, targetID, targetType)
	if errors.Is(err, store.ErrNotFound) {
		session, err = s.store.CreateChatSession(ctx, userID, targetID, targetType)
		if err == nil {
			s.logger.Info("inbox thread opened",
				zap.String("user_id", userID),
				zap.String("target_id", targetID),
				zap.String("target_type", targetType),
			)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve thread: %w", err)
	}

	msg, err := s.store.AddChatMessage(ctx, session.ID, "user", content)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	if err := s.store.TouchChatSession(ctx, session.ID); err != nil {
		s.logger.Warn("thread timestamp not updated",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}

	return msg, nil
}
