package models

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/jason-s-yu/lobbyhub/internal/apperrors"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20

	// PresenceTimeout is how long a player counts as active after the last Touch.
	PresenceTimeout = 30 * time.Second
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_\- ]+$`)

// Player is one participant's identity and presence inside a lobby.
// The username is the only mutable identity field and always satisfies
// ValidateUsername.
type Player struct {
	id          string
	username    string
	isGuest     bool
	connectedAt time.Time
	lastSeenAt  time.Time
}

// PlayerSnapshot is the serialized shape of a Player.
type PlayerSnapshot struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	IsGuest     bool      `json:"isGuest"`
	ConnectedAt time.Time `json:"connectedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// NewPlayer validates username and returns a player first seen at `at`.
func NewPlayer(id, username string, isGuest bool, at time.Time) (*Player, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: player id cannot be empty", apperrors.ErrValidation)
	}
	name, err := ValidateUsername(username)
	if err != nil {
		return nil, err
	}
	return &Player{
		id:          id,
		username:    name,
		isGuest:     isGuest,
		connectedAt: at,
		lastSeenAt:  at,
	}, nil
}

// RestorePlayer rebuilds a player from a complete snapshot.
func RestorePlayer(s PlayerSnapshot) (*Player, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("%w: player id cannot be empty", apperrors.ErrValidation)
	}
	name, err := ValidateUsername(s.Username)
	if err != nil {
		return nil, err
	}
	if s.ConnectedAt.IsZero() {
		return nil, fmt.Errorf("%w: player %s has no connectedAt", apperrors.ErrValidation, s.ID)
	}
	lastSeen := s.LastSeenAt
	if lastSeen.Before(s.ConnectedAt) {
		lastSeen = s.ConnectedAt
	}
	return &Player{
		id:          s.ID,
		username:    name,
		isGuest:     s.IsGuest,
		connectedAt: s.ConnectedAt,
		lastSeenAt:  lastSeen,
	}, nil
}

// ValidateUsername trims the name and checks it against the length bounds and
// allowed characters, returning the trimmed value.
func ValidateUsername(username string) (string, error) {
	trimmed := strings.TrimSpace(username)
	switch {
	case trimmed == "":
		return "", fmt.Errorf("%w: username cannot be empty", apperrors.ErrValidation)
	case len(trimmed) < MinUsernameLength:
		return "", fmt.Errorf("%w: username must be at least %d characters", apperrors.ErrValidation, MinUsernameLength)
	case len(trimmed) > MaxUsernameLength:
		return "", fmt.Errorf("%w: username must be %d characters or less", apperrors.ErrValidation, MaxUsernameLength)
	case !usernamePattern.MatchString(trimmed):
		return "", fmt.Errorf("%w: username can only contain letters, numbers, spaces, underscores, and hyphens", apperrors.ErrValidation)
	}
	return trimmed, nil
}

// GuestUsername returns a random name of the form Guest_NNNN.
func GuestUsername() string {
	return fmt.Sprintf("Guest_%04d", rand.Intn(10000))
}

// Rename changes the username. The old name is kept if the new one is invalid.
func (p *Player) Rename(username string) error {
	name, err := ValidateUsername(username)
	if err != nil {
		return err
	}
	p.username = name
	return nil
}

// Touch records presence at `at`.
func (p *Player) Touch(at time.Time) {
	if at.After(p.lastSeenAt) {
		p.lastSeenAt = at
	}
}

// IsActive reports whether the player was seen within timeout of now.
func (p *Player) IsActive(timeout time.Duration, now time.Time) bool {
	return now.Sub(p.lastSeenAt) < timeout
}

func (p *Player) ID() string             { return p.id }
func (p *Player) Username() string       { return p.username }
func (p *Player) IsGuest() bool          { return p.isGuest }
func (p *Player) ConnectedAt() time.Time { return p.connectedAt }
func (p *Player) LastSeenAt() time.Time  { return p.lastSeenAt }

// Snapshot returns the serializable state of the player.
func (p *Player) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		ID:          p.id,
		Username:    p.username,
		IsGuest:     p.isGuest,
		ConnectedAt: p.connectedAt,
		LastSeenAt:  p.lastSeenAt,
	}
}

func (p *Player) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Snapshot())
}
