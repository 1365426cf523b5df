package lobby

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	l := newHostedLobby(t, 4)
	require.NoError(t, s.SaveLobby(ctx, l))

	// mutating the saved object does not reach the store
	require.NoError(t, l.AddPlayer(newPlayer(t, "p", t0)))
	got, err := s.GetLobby(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.PlayerCount())

	// nor does mutating a loaded one
	require.NoError(t, got.AddPlayer(newPlayer(t, "q", t0)))
	again, err := s.GetLobby(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.PlayerCount())
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	got, err := s.GetLobby(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err := s.LobbyExists(ctx, "l1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveLobby(ctx, newHostedLobby(t, 4)))
	ok, err = s.LobbyExists(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := s.LobbyIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, ids)

	require.NoError(t, s.DeleteLobby(ctx, "l1"))
	require.NoError(t, s.DeleteLobby(ctx, "l1"))
	ids, err = s.LobbyIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFilterMatch(t *testing.T) {
	public := newHostedLobby(t, 2)

	full := newHostedLobby(t, 2)
	require.NoError(t, full.AddPlayer(newPlayer(t, "p", t0)))

	private, err := New("l2", "h", 4, true, "AB12CD", t0)
	require.NoError(t, err)

	assert.True(t, Filter{}.Match(public))
	assert.True(t, Filter{}.Match(full))
	assert.True(t, AvailableFilter().Match(public))
	assert.False(t, AvailableFilter().Match(full))
	assert.False(t, AvailableFilter().Match(private))
	assert.True(t, Filter{IsPrivate: lo.ToPtr(true)}.Match(private))
	assert.True(t, Filter{IsFull: lo.ToPtr(true), IsPrivate: lo.ToPtr(false)}.Match(full))
}

func TestMemoryStoreLobbiesFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	open, err := New("a-open", "h", 4, false, "", t0)
	require.NoError(t, err)
	require.NoError(t, open.AddPlayer(newPlayer(t, "h", t0)))

	full, err := New("b-full", "h", 2, false, "", t0)
	require.NoError(t, err)
	require.NoError(t, full.AddPlayer(newPlayer(t, "h", t0)))
	require.NoError(t, full.AddPlayer(newPlayer(t, "p", t0)))

	started, err := New("c-started", "h", 4, false, "", t0)
	require.NoError(t, err)
	require.NoError(t, started.AddPlayer(newPlayer(t, "h", t0)))
	require.NoError(t, started.AddPlayer(newPlayer(t, "p", t0)))
	for _, id := range started.PlayerIDs() {
		_, err := started.ToggleReady(id)
		require.NoError(t, err)
	}
	require.NoError(t, started.Start())

	private, err := New("d-private", "h", 4, true, "AB12CD", t0)
	require.NoError(t, err)
	require.NoError(t, private.AddPlayer(newPlayer(t, "h", t0)))

	for _, l := range []*Lobby{open, full, started, private} {
		require.NoError(t, s.SaveLobby(ctx, l))
	}

	available, err := s.Lobbies(ctx, AvailableFilter())
	require.NoError(t, err)
	assert.Equal(t, []string{"a-open"}, lo.Map(available, func(l *Lobby, _ int) string { return l.ID() }))

	all, err := s.Lobbies(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	privates, err := s.Lobbies(ctx, Filter{IsPrivate: lo.ToPtr(true)})
	require.NoError(t, err)
	require.Len(t, privates, 1)
	assert.Equal(t, "d-private", privates[0].ID())
}
