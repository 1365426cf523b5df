// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/lobbyhub/internal/auth"
	"github.com/jason-s-yu/lobbyhub/internal/connections"
	"github.com/jason-s-yu/lobbyhub/internal/middleware"
	"github.com/jason-s-yu/lobbyhub/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second

	// disconnectTimeout bounds the store work done after a socket drops.
	disconnectTimeout = 5 * time.Second

	defaultSendBuffer = 64
)

type WSOptions struct {
	AllowedOrigins []string
	SendBuffer     int
}

// WSHandler upgrades /ws requests and runs one player session per socket.
// A valid token resumes that identity; without one a guest is minted.
func WSHandler(hub *Hub, logger *logrus.Logger, opts WSOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: opts.AllowedOrigins,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if offeredSubprotocols(r) && c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}

		identity, token, status, err := resolveIdentity(hub.Issuer, requestToken(r))
		if err != nil {
			logger.WithError(err).WithField("remote", remoteAddr).Warn("websocket authentication failed")
			c.Close(status, err.Error())
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		buffer := opts.SendBuffer
		if buffer <= 0 {
			buffer = defaultSendBuffer
		}
		conn := connections.NewConnection(identity.PlayerID, buffer, cancel)
		client := &Client{PlayerID: identity.PlayerID, Username: identity.Username, Session: conn}

		hub.Registry.Register(identity.PlayerID, conn)
		middleware.LogWebSocketConnect(logger, remoteAddr, identity.PlayerID)

		conn.Write(connections.Message{Type: EventConnected, Data: connectedData{
			PlayerID: identity.PlayerID,
			Username: identity.Username,
			Token:    token,
		}})

		go writePump(ctx, c, conn, logger)
		readErr := readPump(ctx, c, hub, client, logger)

		// ---- cleanup after readPump exits ----
		conn.Close()
		dctx, dcancel := context.WithTimeout(context.Background(), disconnectTimeout)
		current := hub.Disconnect(dctx, client)
		dcancel()
		middleware.LogWebSocketDisconnect(logger, remoteAddr, identity.PlayerID, readErr)

		if !current {
			c.Close(SessionReplacedError, "connected from another session")
			return
		}
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// resolveIdentity verifies token, or mints a guest identity when token is empty.
func resolveIdentity(issuer *auth.Issuer, token string) (auth.Identity, string, websocket.StatusCode, error) {
	if token != "" {
		id, err := issuer.Authenticate(token)
		if err != nil {
			return auth.Identity{}, "", InvalidAuthTokenError, err
		}
		if id.Username == "" {
			id.Username = models.GuestUsername()
		}
		return id, token, 0, nil
	}

	id := auth.Identity{PlayerID: uuid.NewString(), Username: models.GuestUsername()}
	token, err := issuer.Issue(id)
	if err != nil {
		return auth.Identity{}, "", TokenIssueError, err
	}
	return id, token, 0, nil
}

// readPump feeds incoming text frames to the hub until the socket or ctx ends.
// Messages from one session are handled strictly in order.
func readPump(ctx context.Context, c *websocket.Conn, hub *Hub, client *Client, logger *logrus.Logger) error {
	log := logger.WithField("playerID", client.PlayerID)
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				return nil
			case errors.Is(err, context.Canceled):
				return nil
			default:
				return err
			}
		}
		if typ != websocket.MessageText {
			log.Warnf("received non-text message type %d, ignoring", typ)
			continue
		}
		hub.Dispatch(ctx, client, msg)
	}
}

// writePump drains the connection's OutChan onto the socket and keeps it alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *connections.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	log := logger.WithField("playerID", conn.PlayerID)

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Warnf("failed to marshal outgoing %s: %v", msg.Type, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Warnf("failed to write to websocket: %v", err)
				conn.Close()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				log.Warnf("failed to send ping: %v. Assuming disconnect.", err)
				conn.Close()
				return
			}
		}
	}
}
