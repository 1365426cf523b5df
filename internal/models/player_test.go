package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jason-s-yu/lobbyhub/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewPlayerValidatesUsername(t *testing.T) {
	cases := []struct {
		name     string
		username string
		ok       bool
	}{
		{"simple", "alice", true},
		{"with space and symbols", "The_Red-Fox 9", true},
		{"trimmed to valid", "  bob  ", true},
		{"too short", "ab", false},
		{"too short after trim", "  ab ", false},
		{"too long", strings.Repeat("x", MaxUsernameLength+1), false},
		{"exact max", strings.Repeat("x", MaxUsernameLength), true},
		{"bad characters", "bob!", false},
		{"empty", "", false},
		{"unicode", "héllo", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPlayer("p1", tc.username, true, t0)
			if !tc.ok {
				require.ErrorIs(t, err, apperrors.ErrValidation)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tc.username), p.Username())
			assert.Equal(t, t0, p.ConnectedAt())
			assert.Equal(t, t0, p.LastSeenAt())
		})
	}
}

func TestPlayerRenameKeepsOldValueOnFailure(t *testing.T) {
	p, err := NewPlayer("p1", "alice", true, t0)
	require.NoError(t, err)

	require.ErrorIs(t, p.Rename("x"), apperrors.ErrValidation)
	assert.Equal(t, "alice", p.Username())

	require.NoError(t, p.Rename("alice_2"))
	assert.Equal(t, "alice_2", p.Username())
}

func TestPlayerPresence(t *testing.T) {
	p, err := NewPlayer("p1", "alice", false, t0)
	require.NoError(t, err)

	assert.True(t, p.IsActive(PresenceTimeout, t0.Add(29*time.Second)))
	assert.False(t, p.IsActive(PresenceTimeout, t0.Add(31*time.Second)))

	p.Touch(t0.Add(20 * time.Second))
	assert.True(t, p.IsActive(PresenceTimeout, t0.Add(45*time.Second)))

	// going backwards in time never rewinds lastSeenAt
	p.Touch(t0)
	assert.Equal(t, t0.Add(20*time.Second), p.LastSeenAt())
	assert.Equal(t, t0, p.ConnectedAt())
}

func TestRestorePlayer(t *testing.T) {
	p, err := NewPlayer("p1", "alice", false, t0)
	require.NoError(t, err)
	p.Touch(t0.Add(time.Minute))

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var snap PlayerSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	restored, err := RestorePlayer(snap)
	require.NoError(t, err)
	assert.Equal(t, p.Snapshot(), restored.Snapshot())

	_, err = RestorePlayer(PlayerSnapshot{ID: "p2", Username: "??", ConnectedAt: t0})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = RestorePlayer(PlayerSnapshot{ID: "p3", Username: "carol"})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGuestUsernameIsValid(t *testing.T) {
	for i := 0; i < 50; i++ {
		name := GuestUsername()
		_, err := ValidateUsername(name)
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(name, "Guest_"))
	}
}
