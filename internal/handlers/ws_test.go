package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newWSServer(t *testing.T) (*testEnv, string) {
	t.Helper()
	env := newTestEnv(t)
	srv := httptest.NewServer(WSHandler(env.hub, env.hub.logger, WSOptions{}))
	t.Cleanup(srv.Close)
	return env, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{"lobby"}})
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

// readUntil reads frames until one of type eventType arrives.
func readUntil(t *testing.T, ctx context.Context, c *websocket.Conn, eventType string) wireMessage {
	t.Helper()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var msg wireMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == eventType {
			return msg
		}
	}
}

func writeMessage(t *testing.T, ctx context.Context, c *websocket.Conn, eventType string, data any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"type": eventType, "data": data})
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, websocket.MessageText, raw))
}

func TestWebSocketSession(t *testing.T) {
	env, url := newWSServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := dial(t, ctx, url)
	var hello connectedData
	require.NoError(t, json.Unmarshal(readUntil(t, ctx, c, EventConnected).Data, &hello))
	assert.NotEmpty(t, hello.PlayerID)
	assert.True(t, strings.HasPrefix(hello.Username, "Guest_"))
	require.NotEmpty(t, hello.Token)

	writeMessage(t, ctx, c, EventCreateLobby, map[string]any{"maxPlayers": 3})
	var created struct {
		ID         string `json:"id"`
		HostID     string `json:"hostId"`
		MaxPlayers int    `json:"maxPlayers"`
	}
	require.NoError(t, json.Unmarshal(readUntil(t, ctx, c, EventLobbyCreated).Data, &created))
	assert.Equal(t, hello.PlayerID, created.HostID)
	assert.Equal(t, 3, created.MaxPlayers)

	writeMessage(t, ctx, c, "NOPE", nil)
	var e errorData
	require.NoError(t, json.Unmarshal(readUntil(t, ctx, c, EventError).Data, &e))
	assert.Equal(t, "UNKNOWN_EVENT_TYPE", e.Code)

	// closing the socket leaves the lobby, which destroys it
	c.Close(websocket.StatusNormalClosure, "")
	assert.Eventually(t, func() bool {
		exists, err := env.store.LobbyExists(context.Background(), created.ID)
		return err == nil && !exists
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketResumeReplacesSession(t *testing.T) {
	env, url := newWSServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first := dial(t, ctx, url)
	var hello connectedData
	require.NoError(t, json.Unmarshal(readUntil(t, ctx, first, EventConnected).Data, &hello))
	writeMessage(t, ctx, first, EventCreateLobby, nil)
	readUntil(t, ctx, first, EventLobbyCreated)

	second := dial(t, ctx, url+"?token="+hello.Token)
	var resumed connectedData
	require.NoError(t, json.Unmarshal(readUntil(t, ctx, second, EventConnected).Data, &resumed))
	assert.Equal(t, hello.PlayerID, resumed.PlayerID)
	assert.Equal(t, hello.Username, resumed.Username)

	// the old socket is shut down
	for {
		if _, _, err := first.Read(ctx); err != nil {
			break
		}
	}

	// and the replacement keeps the lobby
	lobbyID, ok := env.hub.Registry.PlayerLobby(hello.PlayerID)
	require.True(t, ok)
	writeMessage(t, ctx, second, EventToggleReady, map[string]any{"lobbyId": lobbyID})
	readUntil(t, ctx, second, EventPlayerReadyChanged)
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	_, url := newWSServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := dial(t, ctx, url+"?token=garbage")
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, InvalidAuthTokenError, websocket.CloseStatus(err))
}
