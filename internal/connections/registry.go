// internal/connections/registry.go
package connections

import (
	"sort"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// closer is implemented by sessions that own resources, like *Connection.
type closer interface {
	Close()
}

// Registry tracks the live session of each player and the lobby, if any,
// each player is currently in. Delivery is best effort: players without an
// open session are skipped.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
	lobbies  map[string]string // playerID -> lobbyID

	logger *logrus.Logger
}

func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]Session),
		lobbies:  make(map[string]string),
		logger:   logger,
	}
}

// Register makes s the player's session, closing any session it replaces.
func (r *Registry) Register(playerID string, s Session) {
	r.mu.Lock()
	old, replaced := r.sessions[playerID]
	r.sessions[playerID] = s
	r.mu.Unlock()

	if replaced && old != s {
		r.logger.WithField("playerID", playerID).Info("replacing existing session")
		if c, ok := old.(closer); ok {
			c.Close()
		}
	}
}

// Deregister removes s if it is still the player's current session, along
// with the player's lobby association. It reports whether anything was removed.
func (r *Registry) Deregister(playerID string, s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[playerID]; !ok || current != s {
		return false
	}
	delete(r.sessions, playerID)
	delete(r.lobbies, playerID)
	return true
}

func (r *Registry) SetPlayerLobby(playerID, lobbyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lobbies[playerID] = lobbyID
}

func (r *Registry) RemovePlayerLobby(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lobbies, playerID)
}

// PlayerLobby returns the lobby the player is associated with.
func (r *Registry) PlayerLobby(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.lobbies[playerID]
	return id, ok
}

// PlayersInLobby returns the ids associated with lobbyID, sorted.
func (r *Registry) PlayersInLobby(lobbyID string) []string {
	r.mu.RLock()
	ids := lo.Keys(lo.PickByValues(r.lobbies, []string{lobbyID}))
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) IsConnected(playerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[playerID]
	return ok && s.IsOpen()
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SendToPlayer delivers msg to one player and reports whether it was queued.
func (r *Registry) SendToPlayer(playerID string, msg Message) bool {
	r.mu.RLock()
	s, ok := r.sessions[playerID]
	r.mu.RUnlock()
	if !ok || !s.IsOpen() {
		return false
	}
	if !s.Write(msg) {
		r.logger.WithFields(logrus.Fields{
			"playerID": playerID,
			"type":     msg.Type,
		}).Warn("dropped outbound message")
		return false
	}
	return true
}

// Broadcast sends msg to each listed player in order.
func (r *Registry) Broadcast(playerIDs []string, msg Message) {
	for _, id := range playerIDs {
		r.SendToPlayer(id, msg)
	}
}

// BroadcastAll sends msg to every registered player, in id order.
func (r *Registry) BroadcastAll(msg Message) {
	r.mu.RLock()
	ids := lo.Keys(r.sessions)
	r.mu.RUnlock()
	sort.Strings(ids)
	r.Broadcast(ids, msg)
}
