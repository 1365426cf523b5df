// internal/lobby/lobby.go
package lobby

import (
	"fmt"
	"time"

	"github.com/jason-s-yu/lobbyhub/internal/apperrors"
	"github.com/jason-s-yu/lobbyhub/internal/models"
)

const (
	MinPlayers        = 2
	MaxPlayers        = 10
	DefaultMaxPlayers = 4

	// HostGracePeriod is how long a departed host keeps hostship before migration.
	HostGracePeriod = 30 * time.Second
)

// Lobby is a matchmaking room: bounded membership, per-member readiness and a
// host with authority to kick and start. A Lobby is not safe for concurrent
// use; Service serializes every mutation of a given lobby id.
type Lobby struct {
	id         string
	hostID     string
	maxPlayers int
	isPrivate  bool
	lobbyCode  string

	// members holds the players keyed by id; order keeps arrival order so that
	// iteration, and with it host succession, is stable.
	members map[string]*models.Player
	order   []string
	ready   map[string]struct{}

	started            bool
	createdAt          time.Time
	hostDisconnectedAt *time.Time
}

// New creates an empty lobby. code must be set iff the lobby is private.
func New(id, hostID string, maxPlayers int, isPrivate bool, code string, at time.Time) (*Lobby, error) {
	if err := validateShape(id, hostID, maxPlayers, isPrivate, code); err != nil {
		return nil, err
	}
	return &Lobby{
		id:         id,
		hostID:     hostID,
		maxPlayers: maxPlayers,
		isPrivate:  isPrivate,
		lobbyCode:  code,
		members:    make(map[string]*models.Player),
		ready:      make(map[string]struct{}),
		createdAt:  at,
	}, nil
}

func validateShape(id, hostID string, maxPlayers int, isPrivate bool, code string) error {
	if id == "" || hostID == "" {
		return fmt.Errorf("%w: lobby and host ids are required", apperrors.ErrValidation)
	}
	if err := ValidateMaxPlayers(maxPlayers); err != nil {
		return err
	}
	if isPrivate && !ValidCodeFormat(code) {
		return fmt.Errorf("%w: private lobby needs a %d character code", apperrors.ErrValidation, CodeLength)
	}
	if !isPrivate && code != "" {
		return fmt.Errorf("%w: public lobby cannot have a code", apperrors.ErrValidation)
	}
	return nil
}

// ValidateMaxPlayers checks the player-count bound.
func ValidateMaxPlayers(maxPlayers int) error {
	if maxPlayers < MinPlayers {
		return fmt.Errorf("%w: max players must be at least %d", apperrors.ErrValidation, MinPlayers)
	}
	if maxPlayers > MaxPlayers {
		return fmt.Errorf("%w: max players cannot exceed %d", apperrors.ErrValidation, MaxPlayers)
	}
	return nil
}

// AddPlayer admits p. A returning host clears the disconnect marker.
func (l *Lobby) AddPlayer(p *models.Player) error {
	if l.IsFull() {
		return apperrors.ErrFull
	}
	if l.started {
		return apperrors.ErrAlreadyStarted
	}
	if _, ok := l.members[p.ID()]; ok {
		return apperrors.ErrAlreadyMember
	}

	l.members[p.ID()] = p
	l.order = append(l.order, p.ID())

	if p.ID() == l.hostID {
		l.hostDisconnectedAt = nil
	}
	return nil
}

// RemovePlayer drops playerID and its readiness. When the host leaves it keeps
// hostship; the departure time starts the grace period instead.
func (l *Lobby) RemovePlayer(playerID string, at time.Time) error {
	if _, ok := l.members[playerID]; !ok {
		return apperrors.ErrNotMember
	}

	delete(l.members, playerID)
	delete(l.ready, playerID)
	for i, id := range l.order {
		if id == playerID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}

	if playerID == l.hostID {
		l.hostDisconnectedAt = &at
	}
	return nil
}

// ToggleReady flips the player's readiness and returns the new state.
func (l *Lobby) ToggleReady(playerID string) (bool, error) {
	if _, ok := l.members[playerID]; !ok {
		return false, apperrors.ErrNotMember
	}
	if l.started {
		return false, apperrors.ErrAlreadyStarted
	}

	if _, ok := l.ready[playerID]; ok {
		delete(l.ready, playerID)
		return false, nil
	}
	l.ready[playerID] = struct{}{}
	return true, nil
}

// CanStart reports whether at least MinPlayers are present and all are ready.
func (l *Lobby) CanStart() bool {
	return len(l.members) >= MinPlayers &&
		len(l.members) == len(l.ready) &&
		!l.started
}

// Start marks the game as started. It never reverts.
func (l *Lobby) Start() error {
	if l.started {
		return apperrors.ErrAlreadyStarted
	}
	if !l.CanStart() {
		return apperrors.ErrCannotStart
	}
	l.started = true
	return nil
}

// KickPlayer removes targetID on behalf of kickerID, who must be the host.
func (l *Lobby) KickPlayer(kickerID, targetID string, at time.Time) error {
	if kickerID != l.hostID {
		return apperrors.ErrNotHost
	}
	if targetID == l.hostID {
		return apperrors.ErrCannotKickHost
	}
	return l.RemovePlayer(targetID, at)
}

// TransferHost hands hostship to a current member other than the host.
func (l *Lobby) TransferHost(newHostID string) error {
	if _, ok := l.members[newHostID]; !ok {
		return fmt.Errorf("%w: new host must be in the lobby", apperrors.ErrNotMember)
	}
	if newHostID == l.hostID {
		return fmt.Errorf("%w: player is already host", apperrors.ErrValidation)
	}
	l.hostID = newHostID
	l.hostDisconnectedAt = nil
	return nil
}

// IsHostGracePeriodExpired reports whether the host has been gone longer than grace.
func (l *Lobby) IsHostGracePeriodExpired(grace time.Duration, now time.Time) bool {
	if l.hostDisconnectedAt == nil {
		return false
	}
	return now.Sub(*l.hostDisconnectedAt) > grace
}

// NextHost returns the non-host member that connected first, or nil.
// Equal connect times resolve to the earlier arrival.
func (l *Lobby) NextHost() *models.Player {
	var next *models.Player
	for _, id := range l.order {
		if id == l.hostID {
			continue
		}
		p := l.members[id]
		if next == nil || p.ConnectedAt().Before(next.ConnectedAt()) {
			next = p
		}
	}
	return next
}

// ShouldDestroy reports whether the lobby is empty, or its host is gone for
// good with nobody to take over.
func (l *Lobby) ShouldDestroy(grace time.Duration, now time.Time) bool {
	if len(l.members) == 0 {
		return true
	}
	return l.IsHostGracePeriodExpired(grace, now) && l.NextHost() == nil
}

// ValidateLobbyCode always accepts for public lobbies.
func (l *Lobby) ValidateLobbyCode(code string) bool {
	if !l.isPrivate {
		return true
	}
	return l.lobbyCode == code
}

func (l *Lobby) ID() string           { return l.id }
func (l *Lobby) HostID() string       { return l.hostID }
func (l *Lobby) MaxPlayers() int      { return l.maxPlayers }
func (l *Lobby) IsPrivate() bool      { return l.isPrivate }
func (l *Lobby) LobbyCode() string    { return l.lobbyCode }
func (l *Lobby) IsStarted() bool      { return l.started }
func (l *Lobby) CreatedAt() time.Time { return l.createdAt }
func (l *Lobby) PlayerCount() int     { return len(l.members) }
func (l *Lobby) IsFull() bool         { return len(l.members) >= l.maxPlayers }

// IsHostDisconnected reports whether the grace period is running.
func (l *Lobby) IsHostDisconnected() bool { return l.hostDisconnectedAt != nil }

// HostDisconnectedAt returns a copy of the disconnect marker, or nil.
func (l *Lobby) HostDisconnectedAt() *time.Time {
	if l.hostDisconnectedAt == nil {
		return nil
	}
	t := *l.hostDisconnectedAt
	return &t
}

// Players returns the members in arrival order.
func (l *Lobby) Players() []*models.Player {
	out := make([]*models.Player, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.members[id])
	}
	return out
}

// PlayerIDs returns member ids in arrival order.
func (l *Lobby) PlayerIDs() []string {
	return append([]string(nil), l.order...)
}

// ReadyPlayerIDs returns ready member ids in arrival order.
func (l *Lobby) ReadyPlayerIDs() []string {
	out := make([]string, 0, len(l.ready))
	for _, id := range l.order {
		if _, ok := l.ready[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (l *Lobby) IsPlayerReady(playerID string) bool {
	_, ok := l.ready[playerID]
	return ok
}

func (l *Lobby) Player(playerID string) (*models.Player, bool) {
	p, ok := l.members[playerID]
	return p, ok
}

func (l *Lobby) HasPlayer(playerID string) bool {
	_, ok := l.members[playerID]
	return ok
}
