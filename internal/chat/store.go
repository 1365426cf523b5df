// internal/chat/store.go
package chat

import (
	"context"
	"sync"

	"github.com/jason-s-yu/lobbyhub/internal/models"
)

// HistoryWindow is the number of most recent messages kept per lobby.
const HistoryWindow = 20

// Store holds per-lobby chat history as a bounded FIFO of HistoryWindow entries.
type Store interface {
	AddMessage(ctx context.Context, msg *models.ChatMessage) error
	// GetMessages returns up to limit of the newest messages in send order.
	// A limit <= 0 or above the window returns the whole window.
	GetMessages(ctx context.Context, lobbyID string, limit int) ([]*models.ChatMessage, error)
	ClearMessages(ctx context.Context, lobbyID string) error
	MessageCount(ctx context.Context, lobbyID string) (int, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	history map[string][]*models.ChatMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{history: make(map[string][]*models.ChatMessage)}
}

func (s *MemoryStore) AddMessage(_ context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.history[msg.LobbyID()], msg)
	if over := len(msgs) - HistoryWindow; over > 0 {
		// copy so the evicted head can be collected
		msgs = append([]*models.ChatMessage(nil), msgs[over:]...)
	}
	s.history[msg.LobbyID()] = msgs
	return nil
}

func (s *MemoryStore) GetMessages(_ context.Context, lobbyID string, limit int) ([]*models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.history[lobbyID]
	return append([]*models.ChatMessage(nil), msgs[len(msgs)-clampLimit(limit, len(msgs)):]...), nil
}

func (s *MemoryStore) ClearMessages(_ context.Context, lobbyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, lobbyID)
	return nil
}

func (s *MemoryStore) MessageCount(_ context.Context, lobbyID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history[lobbyID]), nil
}

// clampLimit resolves a requested limit against n available messages.
func clampLimit(limit, n int) int {
	if limit <= 0 || limit > HistoryWindow {
		limit = HistoryWindow
	}
	if limit > n {
		limit = n
	}
	return limit
}
