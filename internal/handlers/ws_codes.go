// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the /ws handler.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // Client offered subprotocols, none of them "lobby".
	InvalidAuthTokenError websocket.StatusCode = 3001 // Presented token failed verification.
	SessionReplacedError  websocket.StatusCode = 3002 // Same player connected again; this session was superseded.
	TokenIssueError       websocket.StatusCode = 3003 // Server could not mint a guest token.
)
