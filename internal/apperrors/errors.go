// internal/apperrors/errors.go
package apperrors

import (
	"errors"
)

// Sentinel errors returned by the lobby core. Callers match them with errors.Is;
// most are wrapped with extra detail via fmt.Errorf("%w: ...").
var (
	ErrNotFound       = errors.New("lobby not found")
	ErrFull           = errors.New("lobby is full")
	ErrAlreadyStarted = errors.New("game already started")
	ErrAlreadyMember  = errors.New("player already in lobby")
	ErrNotMember      = errors.New("player not in lobby")
	ErrInvalidCode    = errors.New("invalid lobby code")
	ErrNotHost        = errors.New("only host can perform this action")
	ErrCannotKickHost = errors.New("cannot kick the host")
	ErrValidation     = errors.New("validation error")
	ErrCannotStart    = errors.New("cannot start: not all players are ready or minimum player count not met")
)

// Wire error codes sent to clients in ERROR envelopes.
const (
	CodeLobbyNotFound        = "LOBBY_NOT_FOUND"
	CodeLobbyFull            = "LOBBY_FULL"
	CodeGameAlreadyStarted   = "GAME_ALREADY_STARTED"
	CodePlayerAlreadyInLobby = "PLAYER_ALREADY_IN_LOBBY"
	CodePlayerNotInLobby     = "PLAYER_NOT_IN_LOBBY"
	CodeInvalidLobbyCode     = "INVALID_LOBBY_CODE"
	CodeNotHost              = "NOT_HOST"
	CodeCannotKickHost       = "CANNOT_KICK_HOST"
	CodeValidation           = "VALIDATION_ERROR"
	CodeCannotStart          = "CANNOT_START"
	CodeInvalidMessage       = "INVALID_MESSAGE_FORMAT"
	CodeUnknownEvent         = "UNKNOWN_EVENT_TYPE"
	CodeInternal             = "INTERNAL_ERROR"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, CodeLobbyNotFound},
	{ErrFull, CodeLobbyFull},
	{ErrAlreadyStarted, CodeGameAlreadyStarted},
	{ErrAlreadyMember, CodePlayerAlreadyInLobby},
	{ErrNotMember, CodePlayerNotInLobby},
	{ErrInvalidCode, CodeInvalidLobbyCode},
	{ErrNotHost, CodeNotHost},
	{ErrCannotKickHost, CodeCannotKickHost},
	{ErrValidation, CodeValidation},
	{ErrCannotStart, CodeCannotStart},
}

// Code maps err to its wire code. Anything outside the taxonomy, including
// store I/O failures, is reported as INTERNAL_ERROR.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// IsDomain reports whether err belongs to the lobby error taxonomy, i.e. it is
// a rejected command rather than an infrastructure failure.
func IsDomain(err error) bool {
	return Code(err) != CodeInternal
}
