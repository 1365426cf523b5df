// internal/handlers/events.go
package handlers

import (
	"github.com/jason-s-yu/lobbyhub/internal/lobby"
	"github.com/jason-s-yu/lobbyhub/internal/models"
)

// Client -> server commands.
const (
	EventAuthGuest    = "AUTH_GUEST"
	EventCreateLobby  = "CREATE_LOBBY"
	EventJoinLobby    = "JOIN_LOBBY"
	EventLeaveLobby   = "LEAVE_LOBBY"
	EventToggleReady  = "TOGGLE_READY"
	EventStartGame    = "START_GAME"
	EventKickPlayer   = "KICK_PLAYER"
	EventSendMessage  = "SEND_MESSAGE"
	EventGetLobbyList = "GET_LOBBY_LIST"
)

// Server -> client notifications.
const (
	EventConnected          = "CONNECTED"
	EventAuthSuccess        = "AUTH_SUCCESS"
	EventLobbyCreated       = "LOBBY_CREATED"
	EventLobbyJoined        = "LOBBY_JOINED"
	EventLobbyLeft          = "LOBBY_LEFT"
	EventPlayerJoined       = "PLAYER_JOINED"
	EventPlayerLeft         = "PLAYER_LEFT"
	EventPlayerReadyChanged = "PLAYER_READY_CHANGED"
	EventPlayerKicked       = "PLAYER_KICKED"
	EventKicked             = "KICKED"
	EventGameStarted        = "GAME_STARTED"
	EventChatMessage        = "CHAT_MESSAGE"
	EventChatHistory        = "CHAT_HISTORY"
	EventLobbyList          = "LOBBY_LIST"
	EventLobbyListUpdated   = "LOBBY_LIST_UPDATED"
	EventHostChanged        = "HOST_CHANGED"
	EventLobbyClosed        = "LOBBY_CLOSED"
	EventError              = "ERROR"
)

type authGuestPayload struct {
	Username string `json:"username" validate:"omitempty,max=64"`
}

type createLobbyPayload struct {
	Username   string `json:"username" validate:"omitempty,max=64"`
	MaxPlayers int    `json:"maxPlayers" validate:"omitempty,min=2,max=10"`
	IsPrivate  bool   `json:"isPrivate"`
	LobbyCode  string `json:"lobbyCode" validate:"omitempty,len=6"`
}

type joinLobbyPayload struct {
	LobbyID   string `json:"lobbyId" validate:"required"`
	Username  string `json:"username" validate:"omitempty,max=64"`
	LobbyCode string `json:"lobbyCode"`
}

// lobbyRefPayload is the body of commands that only name a lobby.
type lobbyRefPayload struct {
	LobbyID string `json:"lobbyId" validate:"required"`
}

type kickPlayerPayload struct {
	LobbyID        string `json:"lobbyId" validate:"required"`
	TargetPlayerID string `json:"targetPlayerId" validate:"required"`
}

type sendMessagePayload struct {
	LobbyID string `json:"lobbyId" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type connectedData struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type authSuccessData struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	IsGuest  bool   `json:"isGuest"`
	Token    string `json:"token"`
}

// lobbyEventData is the common shape of membership notifications.
type lobbyEventData struct {
	LobbyID  string       `json:"lobbyId"`
	PlayerID string       `json:"playerId,omitempty"`
	IsReady  *bool        `json:"isReady,omitempty"`
	Lobby    *lobby.Lobby `json:"lobby,omitempty"`
}

type hostChangedData struct {
	LobbyID      string       `json:"lobbyId"`
	PreviousHost string       `json:"previousHostId"`
	NewHost      string       `json:"newHostId"`
	Lobby        *lobby.Lobby `json:"lobby"`
}

type lobbyListData struct {
	Lobbies []*lobby.Lobby `json:"lobbies"`
}

type chatHistoryData struct {
	LobbyID  string                `json:"lobbyId"`
	Messages []*models.ChatMessage `json:"messages"`
}

type errorData struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"originalType,omitempty"`
}
