// internal/handlers/sweeper.go
package handlers

import (
	"context"
	"time"

	"github.com/jason-s-yu/lobbyhub/internal/connections"
	"github.com/sirupsen/logrus"
)

type lobbyClosedData struct {
	LobbyID string `json:"lobbyId"`
	Reason  string `json:"reason"`
}

// Sweeper periodically runs host grace-period expiry over every lobby whose
// host is away, announcing migrations and closures.
type Sweeper struct {
	hub      *Hub
	logger   *logrus.Logger
	interval time.Duration
}

func NewSweeper(hub *Hub, logger *logrus.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{hub: hub, logger: logger, interval: interval}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep makes one pass over all lobbies.
func (s *Sweeper) Sweep(ctx context.Context) {
	ids, err := s.hub.Lobbies.LobbyIDs(ctx)
	if err != nil {
		s.logger.WithError(err).Error("sweep: failed to list lobbies")
		return
	}

	changed := false
	for _, id := range ids {
		if s.sweepLobby(ctx, id) {
			changed = true
		}
	}
	if changed {
		s.hub.broadcastLobbyList(ctx)
	}
}

// sweepLobby reports whether the lobby changed.
func (s *Sweeper) sweepLobby(ctx context.Context, lobbyID string) bool {
	log := s.logger.WithField("lobbyID", lobbyID)

	before, err := s.hub.Lobbies.GetLobby(ctx, lobbyID)
	if err != nil || !before.IsHostDisconnected() {
		// gone since listing, or host present
		return false
	}
	previousHost := before.HostID()

	after, err := s.hub.Lobbies.HandleHostGracePeriodExpiry(ctx, lobbyID)
	if err != nil {
		log.WithError(err).Error("sweep: host expiry failed")
		return false
	}

	members := s.hub.Registry.PlayersInLobby(lobbyID)
	switch {
	case after == nil:
		log.Info("sweep: lobby closed after host timeout")
		s.hub.Registry.Broadcast(members, connections.Message{
			Type: EventLobbyClosed,
			Data: lobbyClosedData{LobbyID: lobbyID, Reason: "host did not return"},
		})
		for _, id := range members {
			s.hub.Registry.RemovePlayerLobby(id)
		}
		return true
	case after.HostID() != previousHost:
		log.WithField("newHost", after.HostID()).Info("sweep: host migrated")
		s.hub.Registry.Broadcast(members, connections.Message{
			Type: EventHostChanged,
			Data: hostChangedData{
				LobbyID:      lobbyID,
				PreviousHost: previousHost,
				NewHost:      after.HostID(),
				Lobby:        after,
			},
		})
		return true
	}
	return false
}
