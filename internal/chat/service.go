// internal/chat/service.go
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lobbyhub/internal/models"
	"github.com/sirupsen/logrus"
)

// Service validates and records chat messages. Membership checks are the
// caller's job; the service only knows lobby ids.
type Service struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

func NewService(store Store, logger *logrus.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// SendMessage builds a message from the sender and stores it.
func (s *Service) SendMessage(ctx context.Context, lobbyID, senderID, senderUsername, content string) (*models.ChatMessage, error) {
	msg, err := models.NewChatMessage(uuid.NewString(), lobbyID, senderID, senderUsername, content, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.AddMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("store chat message: %w", err)
	}
	return msg, nil
}

// History returns the retained window for the lobby, oldest first.
func (s *Service) History(ctx context.Context, lobbyID string) ([]*models.ChatMessage, error) {
	msgs, err := s.store.GetMessages(ctx, lobbyID, HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return msgs, nil
}

func (s *Service) ClearHistory(ctx context.Context, lobbyID string) error {
	if err := s.store.ClearMessages(ctx, lobbyID); err != nil {
		return fmt.Errorf("clear chat history: %w", err)
	}
	s.logger.WithField("lobbyID", lobbyID).Debug("chat history cleared")
	return nil
}

func (s *Service) MessageCount(ctx context.Context, lobbyID string) (int, error) {
	n, err := s.store.MessageCount(ctx, lobbyID)
	if err != nil {
		return 0, fmt.Errorf("count chat messages: %w", err)
	}
	return n, nil
}
