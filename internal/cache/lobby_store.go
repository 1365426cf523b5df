// internal/cache/lobby_store.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jason-s-yu/lobbyhub/internal/lobby"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// LobbyStore keeps each lobby as a JSON snapshot under prefix:lobby:{id},
// with the set prefix:lobbies indexing the ids.
type LobbyStore struct {
	rdb  redis.UniversalClient
	keys keyspace
}

var _ lobby.StateStore = (*LobbyStore)(nil)

func NewLobbyStore(rdb redis.UniversalClient, prefix string) *LobbyStore {
	return &LobbyStore{rdb: rdb, keys: keyspace(prefix)}
}

func (s *LobbyStore) SaveLobby(ctx context.Context, l *lobby.Lobby) error {
	data, err := l.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal lobby %s: %w", l.ID(), err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.lobby(l.ID()), data, 0)
		pipe.SAdd(ctx, s.keys.lobbyIndex(), l.ID())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save lobby %s: %w", l.ID(), err)
	}
	return nil
}

func (s *LobbyStore) GetLobby(ctx context.Context, id string) (*lobby.Lobby, error) {
	data, err := s.rdb.Get(ctx, s.keys.lobby(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lobby %s: %w", id, err)
	}
	return lobby.Decode(data)
}

func (s *LobbyStore) DeleteLobby(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.keys.lobby(id))
		pipe.SRem(ctx, s.keys.lobbyIndex(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete lobby %s: %w", id, err)
	}
	return nil
}

func (s *LobbyStore) LobbyIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.keys.lobbyIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list lobby ids: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *LobbyStore) LobbyExists(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.keys.lobby(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check lobby %s: %w", id, err)
	}
	return n > 0, nil
}

// Lobbies loads all indexed lobbies in one MGET and filters them in process.
func (s *LobbyStore) Lobbies(ctx context.Context, f lobby.Filter) ([]*lobby.Lobby, error) {
	ids, err := s.LobbyIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := lo.Map(ids, func(id string, _ int) string { return s.keys.lobby(id) })
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load lobbies: %w", err)
	}

	out := make([]*lobby.Lobby, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		// index entry outlived its key
		if !ok {
			continue
		}
		l, err := lobby.Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("lobby %s: %w", ids[i], err)
		}
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out, nil
}
