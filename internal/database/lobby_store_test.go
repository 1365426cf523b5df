package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lobbyhub/internal/lobby"
	"github.com/jason-s-yu/lobbyhub/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFilterQuery(t *testing.T) {
	q, args := filterQuery(lobby.Filter{})
	assert.Equal(t, `SELECT snapshot FROM lobbies ORDER BY id`, q)
	assert.Empty(t, args)

	q, args = filterQuery(lobby.AvailableFilter())
	assert.Equal(t, `SELECT snapshot FROM lobbies WHERE is_private = $1 AND player_count < max_players AND is_started = $2 ORDER BY id`, q)
	assert.Equal(t, []any{false, false}, args)

	q, args = filterQuery(lobby.Filter{IsFull: lo.ToPtr(true)})
	assert.Equal(t, `SELECT snapshot FROM lobbies WHERE player_count >= max_players ORDER BY id`, q)
	assert.Empty(t, args)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// testStore connects using the PG_* variables and skips when Postgres is not reachable.
func testStore(t *testing.T) *LobbyStore {
	t.Helper()
	ctx := context.Background()
	pool, err := Connect(ctx, Options{
		Host:     getEnv("PG_HOST", "localhost"),
		Port:     getEnv("PG_PORT", "5432"),
		User:     getEnv("POSTGRES_USER", "postgres"),
		Password: getEnv("POSTGRES_PASSWORD", "postgres"),
		Database: getEnv("PG_DATABASE", "lobbyhub"),
	})
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(pool.Close)

	s := NewLobbyStore(pool)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func hostedLobby(t *testing.T, maxPlayers int, isPrivate bool, code string) *lobby.Lobby {
	t.Helper()
	l, err := lobby.New(uuid.NewString(), "h", maxPlayers, isPrivate, code, t0)
	require.NoError(t, err)
	p, err := models.NewPlayer("h", "host", true, t0)
	require.NoError(t, err)
	require.NoError(t, l.AddPlayer(p))
	return l
}

func TestPostgresLobbyStore(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	open := hostedLobby(t, 4, false, "")
	full := hostedLobby(t, 2, false, "")
	p, err := models.NewPlayer("p", "player", true, t0)
	require.NoError(t, err)
	require.NoError(t, full.AddPlayer(p))
	t.Cleanup(func() {
		_ = s.DeleteLobby(context.Background(), open.ID())
		_ = s.DeleteLobby(context.Background(), full.ID())
	})

	require.NoError(t, s.SaveLobby(ctx, open))
	require.NoError(t, s.SaveLobby(ctx, full))
	// saving twice upserts
	require.NoError(t, s.SaveLobby(ctx, open))

	loaded, err := s.GetLobby(ctx, open.ID())
	require.NoError(t, err)
	assert.Equal(t, open.Snapshot(), loaded.Snapshot())

	missing, err := s.GetLobby(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)

	available, err := s.Lobbies(ctx, lobby.AvailableFilter())
	require.NoError(t, err)
	ids := lo.Map(available, func(l *lobby.Lobby, _ int) string { return l.ID() })
	assert.Contains(t, ids, open.ID())
	assert.NotContains(t, ids, full.ID())

	require.NoError(t, s.DeleteLobby(ctx, full.ID()))
	exists, err := s.LobbyExists(ctx, full.ID())
	require.NoError(t, err)
	assert.False(t, exists)
}
