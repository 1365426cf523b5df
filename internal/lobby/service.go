// internal/lobby/service.go
package lobby

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lobbyhub/internal/apperrors"
	"github.com/jason-s-yu/lobbyhub/internal/models"
	"github.com/sirupsen/logrus"
)

// Service orchestrates lobby commands against a StateStore. Each command is a
// load, mutate, save sequence run under a per-lobby lock, so two commands on
// the same lobby never interleave while different lobbies proceed in parallel.
type Service struct {
	store  StateStore
	logger *logrus.Logger
	locks  *keyedMutex

	now   func() time.Time
	newID func() string
	grace time.Duration

	// OnDestroy, if set, runs after the service deletes a lobby from the store.
	// Errors are logged; the lobby stays deleted.
	OnDestroy func(ctx context.Context, lobbyID string) error
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithGracePeriod overrides HostGracePeriod.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Service) { s.grace = d }
}

// WithIDGenerator replaces the uuid-based lobby id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func NewService(store StateStore, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		locks:  newKeyedMutex(),
		now:    time.Now,
		newID:  uuid.NewString,
		grace:  HostGracePeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) GracePeriod() time.Duration { return s.grace }

// CreateLobby creates a lobby hosted by hostID. Public lobbies ignore code;
// private lobbies use it when given and otherwise get a generated one.
func (s *Service) CreateLobby(ctx context.Context, hostID, hostUsername string, maxPlayers int, isPrivate bool, code string) (*Lobby, error) {
	if !isPrivate {
		code = ""
	} else if code == "" {
		generated, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		code = generated
	}

	now := s.now()
	host, err := models.NewPlayer(hostID, hostUsername, true, now)
	if err != nil {
		return nil, err
	}
	l, err := New(s.newID(), hostID, maxPlayers, isPrivate, code, now)
	if err != nil {
		return nil, err
	}
	if err := l.AddPlayer(host); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(l.ID())
	defer unlock()
	if err := s.store.SaveLobby(ctx, l); err != nil {
		return nil, fmt.Errorf("save lobby %s: %w", l.ID(), err)
	}

	s.logger.WithFields(logrus.Fields{
		"lobbyID":    l.ID(),
		"hostID":     hostID,
		"maxPlayers": maxPlayers,
		"isPrivate":  isPrivate,
	}).Info("lobby created")
	return l, nil
}

// JoinLobby adds playerID to the lobby. A host rejoining within the grace
// period keeps hostship.
func (s *Service) JoinLobby(ctx context.Context, lobbyID, playerID, username, code string) (*Lobby, error) {
	unlock := s.locks.Lock(lobbyID)
	defer unlock()

	l, err := s.load(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if !l.ValidateLobbyCode(code) {
		return nil, apperrors.ErrInvalidCode
	}
	p, err := models.NewPlayer(playerID, username, true, s.now())
	if err != nil {
		return nil, err
	}
	if err := l.AddPlayer(p); err != nil {
		return nil, err
	}
	if err := s.save(ctx, l); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lobbyID":  lobbyID,
		"playerID": playerID,
		"players":  l.PlayerCount(),
	}).Info("player joined lobby")
	return l, nil
}

// LeaveLobby removes playerID. It returns (nil, nil) when the lobby was
// destroyed as a result.
func (s *Service) LeaveLobby(ctx context.Context, lobbyID, playerID string) (*Lobby, error) {
	unlock := s.locks.Lock(lobbyID)
	defer unlock()

	l, err := s.load(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if err := l.RemovePlayer(playerID, s.now()); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lobbyID":  lobbyID,
		"playerID": playerID,
		"wasHost":  playerID == l.HostID(),
	}).Info("player left lobby")
	return s.saveOrDestroy(ctx, l)
}

// ToggleReady flips playerID's readiness and reports the new state.
func (s *Service) ToggleReady(ctx context.Context, lobbyID, playerID string) (*Lobby, bool, error) {
	unlock := s.locks.Lock(lobbyID)
	defer unlock()

	l, err := s.load(ctx, lobbyID)
	if err != nil {
		return nil, false, err
	}
	ready, err := l.ToggleReady(playerID)
	if err != nil {
		return nil, false, err
	}
	if err := s.save(ctx, l); err != nil {
		return nil, false, err
	}
	return l, ready, nil
}

func (s *Service) StartGame(ctx context.Context, lobbyID, hostID string) (*Lobby, error) {
	unlock := s.locks.Lock(lobbyID)
	defer unlock()

	l, err := s.load(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if l.HostID() != hostID {
		return nil, apperrors.ErrNotHost
	}
	if err := l.Start(); err != nil {
		return nil, err
	}
	if err := s.save(ctx, l); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lobbyID": lobbyID,
		"players": l.PlayerIDs(),
	}).Info("game started")
	return l, nil
}

// KickPlayer removes targetID on behalf of the host. It returns (nil, nil)
// if the kick left the lobby eligible for destruction.
func (s *Service) KickPlayer(ctx context.Context, lobbyID, hostID, targetID string) (*Lobby, error) {
	unlock := s.locks.Lock(lobbyID)
	defer unlock()

	l, err := s.load(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if l.HostID() != hostID {
		return nil, apperrors.ErrNotHost
	}
	if err := l.KickPlayer(hostID, targetID, s.now()); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lobbyID":  lobbyID,
		"targetID": targetID,
	}).Info("player kicked")
	return s.saveOrDestroy(ctx, l)
}

// TransferHost hands hostship to the longest-connected non-host member, or
// destroys the lobby and returns (nil, nil) if there is none. It performs no
// authorization and is reserved for system-initiated migration.
func (s *Service) TransferHost(ctx context.Context, lobbyID string) (*Lobby, error) {
	unlock := s.locks.Lock(lobbyID)
	defer unlock()

	l, err := s.load(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	return s.transferHost(ctx, l)
}

// HandleHostGracePeriodExpiry migrates the host once the grace period has
// lapsed. An unknown lobby yields (nil, nil); otherwise the result is the same
// as TransferHost when expired, or the unchanged lobby.
func (s *Service) HandleHostGracePeriodExpiry(ctx context.Context, lobbyID string) (*Lobby, error) {
	unlock := s.locks.Lock(lobbyID)
	defer unlock()

	l, err := s.store.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("load lobby %s: %w", lobbyID, err)
	}
	if l == nil {
		return nil, nil
	}
	if !l.IsHostGracePeriodExpired(s.grace, s.now()) {
		return l, nil
	}
	return s.transferHost(ctx, l)
}

func (s *Service) GetLobby(ctx context.Context, lobbyID string) (*Lobby, error) {
	return s.load(ctx, lobbyID)
}

func (s *Service) LobbyIDs(ctx context.Context) ([]string, error) {
	ids, err := s.store.LobbyIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lobby ids: %w", err)
	}
	return ids, nil
}

// GetAvailableLobbies returns the public lobbies that can still be joined.
func (s *Service) GetAvailableLobbies(ctx context.Context) ([]*Lobby, error) {
	lobbies, err := s.store.Lobbies(ctx, AvailableFilter())
	if err != nil {
		return nil, fmt.Errorf("list available lobbies: %w", err)
	}
	return lobbies, nil
}

// transferHost must be called with the lobby's lock held.
func (s *Service) transferHost(ctx context.Context, l *Lobby) (*Lobby, error) {
	next := l.NextHost()
	if next == nil {
		return nil, s.destroy(ctx, l.ID())
	}

	previous := l.HostID()
	if err := l.TransferHost(next.ID()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, l); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lobbyID":      l.ID(),
		"previousHost": previous,
		"newHost":      next.ID(),
	}).Info("host transferred")
	return l, nil
}

func (s *Service) saveOrDestroy(ctx context.Context, l *Lobby) (*Lobby, error) {
	if l.ShouldDestroy(s.grace, s.now()) {
		return nil, s.destroy(ctx, l.ID())
	}
	if err := s.save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) destroy(ctx context.Context, lobbyID string) error {
	if err := s.store.DeleteLobby(ctx, lobbyID); err != nil {
		return fmt.Errorf("delete lobby %s: %w", lobbyID, err)
	}
	s.logger.WithField("lobbyID", lobbyID).Info("lobby destroyed")

	if s.OnDestroy != nil {
		if err := s.OnDestroy(ctx, lobbyID); err != nil {
			s.logger.WithError(err).WithField("lobbyID", lobbyID).Warn("lobby destroy hook failed")
		}
	}
	return nil
}

func (s *Service) load(ctx context.Context, lobbyID string) (*Lobby, error) {
	l, err := s.store.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("load lobby %s: %w", lobbyID, err)
	}
	if l == nil {
		return nil, fmt.Errorf("%w: lobby %s", apperrors.ErrNotFound, lobbyID)
	}
	return l, nil
}

func (s *Service) save(ctx context.Context, l *Lobby) error {
	if err := s.store.SaveLobby(ctx, l); err != nil {
		return fmt.Errorf("save lobby %s: %w", l.ID(), err)
	}
	return nil
}
