// internal/lobby/store.go
package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// StateStore persists lobby aggregates. Implementations must be safe for
// concurrent use and must hand out lobbies that do not alias stored state.
type StateStore interface {
	SaveLobby(ctx context.Context, l *Lobby) error
	// GetLobby returns (nil, nil) when the lobby does not exist.
	GetLobby(ctx context.Context, id string) (*Lobby, error)
	DeleteLobby(ctx context.Context, id string) error
	LobbyIDs(ctx context.Context) ([]string, error)
	LobbyExists(ctx context.Context, id string) (bool, error)
	Lobbies(ctx context.Context, f Filter) ([]*Lobby, error)
}

// Filter narrows Lobbies. Nil fields are unconstrained; set fields must all match.
type Filter struct {
	IsPrivate *bool
	IsFull    *bool
	IsStarted *bool
}

// AvailableFilter matches public lobbies that can still be joined.
func AvailableFilter() Filter {
	return Filter{IsPrivate: lo.ToPtr(false), IsFull: lo.ToPtr(false), IsStarted: lo.ToPtr(false)}
}

func (f Filter) Match(l *Lobby) bool {
	if f.IsPrivate != nil && *f.IsPrivate != l.IsPrivate() {
		return false
	}
	if f.IsFull != nil && *f.IsFull != l.IsFull() {
		return false
	}
	if f.IsStarted != nil && *f.IsStarted != l.IsStarted() {
		return false
	}
	return true
}

// MemoryStore keeps encoded lobbies in memory. Every load decodes a fresh
// aggregate, so callers never share state with the store or each other.
type MemoryStore struct {
	mu      sync.RWMutex
	lobbies map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lobbies: make(map[string][]byte),
	}
}

func (s *MemoryStore) SaveLobby(_ context.Context, l *Lobby) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode lobby %s: %w", l.ID(), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobbies[l.ID()] = data
	return nil
}

func (s *MemoryStore) GetLobby(_ context.Context, id string) (*Lobby, error) {
	s.mu.RLock()
	data, ok := s.lobbies[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return Decode(data)
}

func (s *MemoryStore) DeleteLobby(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, id)
	return nil
}

// LobbyIDs returns the stored ids in lexical order.
func (s *MemoryStore) LobbyIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	ids := lo.Keys(s.lobbies)
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) LobbyExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lobbies[id]
	return ok, nil
}

// Lobbies decodes every stored lobby and keeps those matching f, ordered by id.
func (s *MemoryStore) Lobbies(ctx context.Context, f Filter) ([]*Lobby, error) {
	ids, err := s.LobbyIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Lobby, 0, len(ids))
	for _, id := range ids {
		l, err := s.GetLobby(ctx, id)
		if err != nil {
			return nil, err
		}
		// deleted between listing and loading
		if l == nil {
			continue
		}
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out, nil
}
