// internal/lobby/snapshot.go
package lobby

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/lobbyhub/internal/apperrors"
	"github.com/jason-s-yu/lobbyhub/internal/models"
)

// PlayerEntry is one [id, player] pair of the serialized member list.
type PlayerEntry struct {
	ID     string
	Player models.PlayerSnapshot
}

func (e PlayerEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.ID, e.Player})
}

func (e *PlayerEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("player entry must be an [id, player] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return fmt.Errorf("player entry id: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Player); err != nil {
		return fmt.Errorf("player entry %s: %w", e.ID, err)
	}
	return nil
}

// Snapshot is the complete serialized state of a Lobby.
type Snapshot struct {
	ID                 string        `json:"id"`
	HostID             string        `json:"hostId"`
	MaxPlayers         int           `json:"maxPlayers"`
	IsPrivate          bool          `json:"isPrivate"`
	LobbyCode          string        `json:"lobbyCode,omitempty"`
	Players            []PlayerEntry `json:"players"`
	ReadyPlayers       []string      `json:"readyPlayers"`
	IsStarted          bool          `json:"isStarted"`
	CreatedAt          time.Time     `json:"createdAt"`
	HostDisconnectedAt *time.Time    `json:"hostDisconnectedAt,omitempty"`
}

// Snapshot returns the serializable state of the lobby, members in arrival order.
func (l *Lobby) Snapshot() Snapshot {
	players := make([]PlayerEntry, 0, len(l.order))
	for _, p := range l.Players() {
		players = append(players, PlayerEntry{ID: p.ID(), Player: p.Snapshot()})
	}
	return Snapshot{
		ID:                 l.id,
		HostID:             l.hostID,
		MaxPlayers:         l.maxPlayers,
		IsPrivate:          l.isPrivate,
		LobbyCode:          l.lobbyCode,
		Players:            players,
		ReadyPlayers:       l.ReadyPlayerIDs(),
		IsStarted:          l.started,
		CreatedAt:          l.createdAt,
		HostDisconnectedAt: l.HostDisconnectedAt(),
	}
}

func (l *Lobby) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Snapshot())
}

// Restore rebuilds a lobby from a complete snapshot, rejecting any state a
// sequence of lobby operations could not have produced.
func Restore(s Snapshot) (*Lobby, error) {
	if err := validateShape(s.ID, s.HostID, s.MaxPlayers, s.IsPrivate, s.LobbyCode); err != nil {
		return nil, fmt.Errorf("restore lobby %s: %w", s.ID, err)
	}
	if s.CreatedAt.IsZero() {
		return nil, fmt.Errorf("restore lobby %s: %w: missing createdAt", s.ID, apperrors.ErrValidation)
	}
	if len(s.Players) > s.MaxPlayers {
		return nil, fmt.Errorf("restore lobby %s: %w: %d players exceed max %d",
			s.ID, apperrors.ErrValidation, len(s.Players), s.MaxPlayers)
	}

	l := &Lobby{
		id:         s.ID,
		hostID:     s.HostID,
		maxPlayers: s.MaxPlayers,
		isPrivate:  s.IsPrivate,
		lobbyCode:  s.LobbyCode,
		members:    make(map[string]*models.Player, len(s.Players)),
		order:      make([]string, 0, len(s.Players)),
		ready:      make(map[string]struct{}, len(s.ReadyPlayers)),
		started:    s.IsStarted,
		createdAt:  s.CreatedAt,
	}

	for _, entry := range s.Players {
		if entry.ID != entry.Player.ID {
			return nil, fmt.Errorf("restore lobby %s: %w: entry key %q does not match player id %q",
				s.ID, apperrors.ErrValidation, entry.ID, entry.Player.ID)
		}
		if _, dup := l.members[entry.ID]; dup {
			return nil, fmt.Errorf("restore lobby %s: %w: duplicate player %s", s.ID, apperrors.ErrValidation, entry.ID)
		}
		p, err := models.RestorePlayer(entry.Player)
		if err != nil {
			return nil, fmt.Errorf("restore lobby %s: %w", s.ID, err)
		}
		l.members[p.ID()] = p
		l.order = append(l.order, p.ID())
	}

	for _, id := range s.ReadyPlayers {
		if _, ok := l.members[id]; !ok {
			return nil, fmt.Errorf("restore lobby %s: %w: ready player %s is not a member", s.ID, apperrors.ErrValidation, id)
		}
		l.ready[id] = struct{}{}
	}

	// Members may leave after start, so only readiness of those who remain is checked.
	if l.started && len(l.ready) != len(l.members) {
		return nil, fmt.Errorf("restore lobby %s: %w: started lobby has unready members", s.ID, apperrors.ErrValidation)
	}

	_, hostPresent := l.members[s.HostID]
	switch {
	case hostPresent && s.HostDisconnectedAt != nil:
		return nil, fmt.Errorf("restore lobby %s: %w: host is present but marked disconnected", s.ID, apperrors.ErrValidation)
	case !hostPresent && s.HostDisconnectedAt == nil:
		return nil, fmt.Errorf("restore lobby %s: %w: host is absent without a disconnect time", s.ID, apperrors.ErrValidation)
	}
	if s.HostDisconnectedAt != nil {
		t := *s.HostDisconnectedAt
		l.hostDisconnectedAt = &t
	}

	return l, nil
}

// Decode unmarshals and restores a lobby in one step.
func Decode(data []byte) (*Lobby, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode lobby: %w", err)
	}
	return Restore(s)
}
