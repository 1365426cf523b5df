// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Lobbies     int    `json:"lobbies"`
	Uptime      string `json:"uptime"`
}

// HealthHandler reports liveness along with connection and lobby counts.
func HealthHandler(hub *Hub, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := hub.Lobbies.LobbyIDs(r.Context())
		if err != nil {
			logger.WithError(err).Error("health check could not reach lobby store")
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status:      "degraded",
				Connections: hub.Registry.ConnectionCount(),
				Uptime:      hub.Uptime().Round(time.Second).String(),
			})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{
			Status:      "ok",
			Connections: hub.Registry.ConnectionCount(),
			Lobbies:     len(ids),
			Uptime:      hub.Uptime().Round(time.Second).String(),
		})
	}
}

// ListLobbiesHandler returns the public lobbies that can still be joined.
func ListLobbiesHandler(hub *Hub, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		lobbies, err := hub.availableLobbies(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to list lobbies")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, lobbyListData{Lobbies: lobbies})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
