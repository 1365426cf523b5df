// internal/cache/chat_store.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/lobbyhub/internal/chat"
	"github.com/jason-s-yu/lobbyhub/internal/models"
	"github.com/redis/go-redis/v9"
)

// ChatStore keeps each lobby's history in a Redis list trimmed to the
// newest chat.HistoryWindow entries.
type ChatStore struct {
	rdb  redis.UniversalClient
	keys keyspace
}

var _ chat.Store = (*ChatStore)(nil)

func NewChatStore(rdb redis.UniversalClient, prefix string) *ChatStore {
	return &ChatStore{rdb: rdb, keys: keyspace(prefix)}
}

func (s *ChatStore) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}
	key := s.keys.chat(msg.LobbyID())
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -chat.HistoryWindow, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", key, err)
	}
	return nil
}

func (s *ChatStore) GetMessages(ctx context.Context, lobbyID string, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 || limit > chat.HistoryWindow {
		limit = chat.HistoryWindow
	}
	raw, err := s.rdb.LRange(ctx, s.keys.chat(lobbyID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history for %s: %w", lobbyID, err)
	}

	out := make([]*models.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var snap models.ChatMessageSnapshot
		if err := json.Unmarshal([]byte(item), &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat message: %w", err)
		}
		msg, err := models.RestoreChatMessage(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *ChatStore) ClearMessages(ctx context.Context, lobbyID string) error {
	if err := s.rdb.Del(ctx, s.keys.chat(lobbyID)).Err(); err != nil {
		return fmt.Errorf("failed to clear chat history for %s: %w", lobbyID, err)
	}
	return nil
}

func (s *ChatStore) MessageCount(ctx context.Context, lobbyID string) (int, error) {
	n, err := s.rdb.LLen(ctx, s.keys.chat(lobbyID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count chat history for %s: %w", lobbyID, err)
	}
	return int(n), nil
}
