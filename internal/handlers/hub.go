// internal/handlers/hub.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jason-s-yu/lobbyhub/internal/apperrors"
	"github.com/jason-s-yu/lobbyhub/internal/auth"
	"github.com/jason-s-yu/lobbyhub/internal/chat"
	"github.com/jason-s-yu/lobbyhub/internal/connections"
	"github.com/jason-s-yu/lobbyhub/internal/lobby"
	"github.com/jason-s-yu/lobbyhub/internal/models"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var (
	errInvalidFormat = errors.New("invalid message format")
	errUnknownEvent  = errors.New("unknown message type")
)

// Client is one connected player as seen by the hub. It is owned by the
// connection's read loop, so its fields need no locking.
type Client struct {
	PlayerID string
	Username string
	Session  connections.Session
}

func (c *Client) send(eventType string, data any) {
	c.Session.Write(connections.Message{Type: eventType, Data: data})
}

// Hub turns client commands into lobby and chat operations and fans the
// resulting notifications out through the registry.
type Hub struct {
	Lobbies  *lobby.Service
	Chat     *chat.Service
	Registry *connections.Registry
	Issuer   *auth.Issuer

	logger   *logrus.Logger
	validate *validator.Validate
	started  time.Time
}

func NewHub(lobbies *lobby.Service, chatSvc *chat.Service, registry *connections.Registry, issuer *auth.Issuer, logger *logrus.Logger) *Hub {
	return &Hub{
		Lobbies:  lobbies,
		Chat:     chatSvc,
		Registry: registry,
		Issuer:   issuer,
		logger:   logger,
		validate: validator.New(),
		started:  time.Now(),
	}
}

// Uptime is the time since the hub was created.
func (h *Hub) Uptime() time.Duration { return time.Since(h.started) }

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Dispatch handles one raw client message. Failures are reported to the
// client as an ERROR envelope and never returned.
func (h *Hub) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
		h.sendError(c, "", errInvalidFormat)
		return
	}

	log := h.logger.WithFields(logrus.Fields{"playerID": c.PlayerID, "type": msg.Type})
	log.Debug("handling message")

	if err := h.handle(ctx, c, msg); err != nil {
		if apperrors.IsDomain(err) || errors.Is(err, errInvalidFormat) || errors.Is(err, errUnknownEvent) {
			log.WithError(err).Info("command rejected")
		} else {
			log.WithError(err).Error("command failed")
		}
		h.sendError(c, msg.Type, err)
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, msg inbound) error {
	switch msg.Type {
	case EventAuthGuest:
		p, err := decode[authGuestPayload](h, msg.Data)
		if err != nil {
			return err
		}
		return h.authGuest(c, p)
	case EventCreateLobby:
		p, err := decode[createLobbyPayload](h, msg.Data)
		if err != nil {
			return err
		}
		return h.createLobby(ctx, c, p)
	case EventJoinLobby:
		p, err := decode[joinLobbyPayload](h, msg.Data)
		if err != nil {
			return err
		}
		return h.joinLobby(ctx, c, p)
	case EventLeaveLobby:
		p, err := decode[lobbyRefPayload](h, msg.Data)
		if err != nil {
			return err
		}
		if _, err := h.leave(ctx, c.PlayerID, p.LobbyID); err != nil {
			return err
		}
		c.send(EventLobbyLeft, lobbyEventData{LobbyID: p.LobbyID})
		return nil
	case EventToggleReady:
		p, err := decode[lobbyRefPayload](h, msg.Data)
		if err != nil {
			return err
		}
		return h.toggleReady(ctx, c, p)
	case EventStartGame:
		p, err := decode[lobbyRefPayload](h, msg.Data)
		if err != nil {
			return err
		}
		return h.startGame(ctx, c, p)
	case EventKickPlayer:
		p, err := decode[kickPlayerPayload](h, msg.Data)
		if err != nil {
			return err
		}
		return h.kickPlayer(ctx, c, p)
	case EventSendMessage:
		p, err := decode[sendMessagePayload](h, msg.Data)
		if err != nil {
			return err
		}
		return h.sendMessage(ctx, c, p)
	case EventGetLobbyList:
		lobbies, err := h.availableLobbies(ctx)
		if err != nil {
			return err
		}
		c.send(EventLobbyList, lobbyListData{Lobbies: lobbies})
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownEvent, msg.Type)
	}
}

// decode unmarshals and validates a command body. A missing body decodes to
// the zero value, which validation then judges.
func decode[T any](h *Hub, raw json.RawMessage) (T, error) {
	var p T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("%w: %v", errInvalidFormat, err)
		}
	}
	if err := h.validate.Struct(p); err != nil {
		return p, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return p, nil
}

func (h *Hub) authGuest(c *Client, p authGuestPayload) error {
	username := models.GuestUsername()
	if p.Username != "" {
		name, err := models.ValidateUsername(p.Username)
		if err != nil {
			return err
		}
		username = name
	}

	token, err := h.Issuer.Issue(auth.Identity{PlayerID: c.PlayerID, Username: username})
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	c.Username = username
	c.send(EventAuthSuccess, authSuccessData{
		PlayerID: c.PlayerID,
		Username: username,
		IsGuest:  true,
		Token:    token,
	})
	return nil
}

// usernameFor picks the name a player enters a lobby with.
func (c *Client) usernameFor(requested string) string {
	if requested != "" {
		return requested
	}
	if c.Username != "" {
		return c.Username
	}
	return models.GuestUsername()
}

// ensureNotInLobby rejects commands that would put a player in a second lobby.
func (h *Hub) ensureNotInLobby(playerID string) error {
	if current, ok := h.Registry.PlayerLobby(playerID); ok {
		return fmt.Errorf("%w: already in lobby %s", apperrors.ErrAlreadyMember, current)
	}
	return nil
}

func (h *Hub) createLobby(ctx context.Context, c *Client, p createLobbyPayload) error {
	if err := h.ensureNotInLobby(c.PlayerID); err != nil {
		return err
	}
	maxPlayers := lo.Ternary(p.MaxPlayers == 0, lobby.DefaultMaxPlayers, p.MaxPlayers)

	l, err := h.Lobbies.CreateLobby(ctx, c.PlayerID, c.usernameFor(p.Username), maxPlayers, p.IsPrivate, p.LobbyCode)
	if err != nil {
		return err
	}
	h.Registry.SetPlayerLobby(c.PlayerID, l.ID())

	c.send(EventLobbyCreated, l)
	h.broadcastLobbyList(ctx)
	return nil
}

func (h *Hub) joinLobby(ctx context.Context, c *Client, p joinLobbyPayload) error {
	if err := h.ensureNotInLobby(c.PlayerID); err != nil {
		return err
	}
	l, err := h.Lobbies.JoinLobby(ctx, p.LobbyID, c.PlayerID, c.usernameFor(p.Username), p.LobbyCode)
	if err != nil {
		return err
	}
	h.Registry.SetPlayerLobby(c.PlayerID, l.ID())

	c.send(EventLobbyJoined, l)
	h.broadcastToLobby(l.ID(), EventPlayerJoined, lobbyEventData{
		LobbyID:  l.ID(),
		PlayerID: c.PlayerID,
		Lobby:    l,
	}, c.PlayerID)

	history, err := h.Chat.History(ctx, l.ID())
	if err != nil {
		// the join itself succeeded
		h.logger.WithError(err).WithField("lobbyID", l.ID()).Warn("failed to load chat history")
	} else {
		c.send(EventChatHistory, chatHistoryData{LobbyID: l.ID(), Messages: history})
	}

	h.broadcastLobbyList(ctx)
	return nil
}

// leave removes playerID from lobbyID and notifies whoever remains. The
// returned lobby is nil when the lobby was destroyed.
func (h *Hub) leave(ctx context.Context, playerID, lobbyID string) (*lobby.Lobby, error) {
	l, err := h.Lobbies.LeaveLobby(ctx, lobbyID, playerID)
	if err != nil {
		return nil, err
	}
	if current, ok := h.Registry.PlayerLobby(playerID); ok && current == lobbyID {
		h.Registry.RemovePlayerLobby(playerID)
	}

	if l != nil {
		h.broadcastToLobby(lobbyID, EventPlayerLeft, lobbyEventData{
			LobbyID:  lobbyID,
			PlayerID: playerID,
			Lobby:    l,
		}, "")
	}
	h.broadcastLobbyList(ctx)
	return l, nil
}

func (h *Hub) toggleReady(ctx context.Context, c *Client, p lobbyRefPayload) error {
	l, ready, err := h.Lobbies.ToggleReady(ctx, p.LobbyID, c.PlayerID)
	if err != nil {
		return err
	}
	h.broadcastToLobby(p.LobbyID, EventPlayerReadyChanged, lobbyEventData{
		LobbyID:  p.LobbyID,
		PlayerID: c.PlayerID,
		IsReady:  &ready,
		Lobby:    l,
	}, "")
	return nil
}

func (h *Hub) startGame(ctx context.Context, c *Client, p lobbyRefPayload) error {
	l, err := h.Lobbies.StartGame(ctx, p.LobbyID, c.PlayerID)
	if err != nil {
		return err
	}
	h.broadcastToLobby(p.LobbyID, EventGameStarted, lobbyEventData{LobbyID: p.LobbyID, Lobby: l}, "")
	h.broadcastLobbyList(ctx)
	return nil
}

func (h *Hub) kickPlayer(ctx context.Context, c *Client, p kickPlayerPayload) error {
	l, err := h.Lobbies.KickPlayer(ctx, p.LobbyID, c.PlayerID, p.TargetPlayerID)
	if err != nil {
		return err
	}

	h.Registry.SendToPlayer(p.TargetPlayerID, connections.Message{
		Type: EventKicked,
		Data: lobbyEventData{LobbyID: p.LobbyID},
	})
	if current, ok := h.Registry.PlayerLobby(p.TargetPlayerID); ok && current == p.LobbyID {
		h.Registry.RemovePlayerLobby(p.TargetPlayerID)
	}

	h.broadcastToLobby(p.LobbyID, EventPlayerKicked, lobbyEventData{
		LobbyID:  p.LobbyID,
		PlayerID: p.TargetPlayerID,
		Lobby:    l,
	}, "")
	h.broadcastLobbyList(ctx)
	return nil
}

func (h *Hub) sendMessage(ctx context.Context, c *Client, p sendMessagePayload) error {
	l, err := h.Lobbies.GetLobby(ctx, p.LobbyID)
	if err != nil {
		return err
	}
	player, ok := l.Player(c.PlayerID)
	if !ok {
		return apperrors.ErrNotMember
	}

	msg, err := h.Chat.SendMessage(ctx, p.LobbyID, c.PlayerID, player.Username(), p.Content)
	if err != nil {
		return err
	}
	h.broadcastToLobby(p.LobbyID, EventChatMessage, msg, "")
	return nil
}

// Disconnect treats a dropped connection as leaving the player's lobby. A
// session that was already replaced by a newer one is ignored; the newer
// session keeps the membership. It reports whether the session was current.
func (h *Hub) Disconnect(ctx context.Context, c *Client) bool {
	lobbyID, inLobby := h.Registry.PlayerLobby(c.PlayerID)
	if !h.Registry.Deregister(c.PlayerID, c.Session) {
		return false
	}
	if !inLobby {
		return true
	}

	if _, err := h.leave(ctx, c.PlayerID, lobbyID); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"playerID": c.PlayerID,
			"lobbyID":  lobbyID,
		}).Warn("failed to leave lobby on disconnect")
	}
	return true
}

func (h *Hub) availableLobbies(ctx context.Context) ([]*lobby.Lobby, error) {
	lobbies, err := h.Lobbies.GetAvailableLobbies(ctx)
	if err != nil {
		return nil, err
	}
	if lobbies == nil {
		lobbies = []*lobby.Lobby{}
	}
	return lobbies, nil
}

func (h *Hub) broadcastToLobby(lobbyID, eventType string, data any, exclude string) {
	ids := lo.Without(h.Registry.PlayersInLobby(lobbyID), exclude)
	h.Registry.Broadcast(ids, connections.Message{Type: eventType, Data: data})
}

func (h *Hub) broadcastLobbyList(ctx context.Context) {
	lobbies, err := h.availableLobbies(ctx)
	if err != nil {
		h.logger.WithError(err).Error("failed to list lobbies for broadcast")
		return
	}
	h.Registry.BroadcastAll(connections.Message{
		Type: EventLobbyListUpdated,
		Data: lobbyListData{Lobbies: lobbies},
	})
}

func (h *Hub) sendError(c *Client, originalType string, err error) {
	code := errorCode(err)
	message := err.Error()
	if code == apperrors.CodeInternal {
		message = "internal server error"
	}
	c.send(EventError, errorData{Code: code, Message: message, OriginalType: originalType})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errInvalidFormat):
		return apperrors.CodeInvalidMessage
	case errors.Is(err, errUnknownEvent):
		return apperrors.CodeUnknownEvent
	}
	return apperrors.Code(err)
}
