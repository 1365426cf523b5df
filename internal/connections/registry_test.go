package connections

import (
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession records every message it accepts.
type fakeSession struct {
	mu     sync.Mutex
	open   bool
	closed bool
	msgs   []Message
}

func newFakeSession() *fakeSession { return &fakeSession{open: true} }

func (f *fakeSession) Write(msg Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return false
	}
	f.msgs = append(f.msgs, msg)
	return true
}

func (f *fakeSession) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeSession) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closed = true
}

func (f *fakeSession) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.Type)
	}
	return out
}

func newTestRegistry() *Registry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRegistry(logger)
}

func TestRegisterReplacesAndClosesOldSession(t *testing.T) {
	r := newTestRegistry()
	first, second := newFakeSession(), newFakeSession()

	r.Register("p1", first)
	r.Register("p1", second)
	assert.True(t, first.closed)
	assert.Equal(t, 1, r.ConnectionCount())

	// a stale session cannot evict its replacement
	assert.False(t, r.Deregister("p1", first))
	assert.True(t, r.IsConnected("p1"))

	r.SetPlayerLobby("p1", "l1")
	assert.True(t, r.Deregister("p1", second))
	assert.False(t, r.IsConnected("p1"))
	_, ok := r.PlayerLobby("p1")
	assert.False(t, ok)
}

func TestPlayersInLobby(t *testing.T) {
	r := newTestRegistry()
	r.SetPlayerLobby("c", "l1")
	r.SetPlayerLobby("a", "l1")
	r.SetPlayerLobby("b", "l2")

	assert.Equal(t, []string{"a", "c"}, r.PlayersInLobby("l1"))
	assert.Empty(t, r.PlayersInLobby("none"))

	r.RemovePlayerLobby("a")
	assert.Equal(t, []string{"c"}, r.PlayersInLobby("l1"))

	id, ok := r.PlayerLobby("b")
	require.True(t, ok)
	assert.Equal(t, "l2", id)
}

func TestSendSkipsMissingAndClosedSessions(t *testing.T) {
	r := newTestRegistry()
	live, dead := newFakeSession(), newFakeSession()
	r.Register("live", live)
	r.Register("dead", dead)
	dead.Close()

	assert.True(t, r.SendToPlayer("live", Message{Type: "PING"}))
	assert.False(t, r.SendToPlayer("dead", Message{Type: "PING"}))
	assert.False(t, r.SendToPlayer("nobody", Message{Type: "PING"}))

	r.Broadcast([]string{"live", "dead", "nobody"}, Message{Type: "A"})
	r.BroadcastAll(Message{Type: "B"})

	assert.Equal(t, []string{"PING", "A", "B"}, live.types())
	assert.Empty(t, dead.types())
}

func TestConnectionWriteIsNonBlocking(t *testing.T) {
	cancelled := false
	c := NewConnection("p1", 2, func() { cancelled = true })

	assert.True(t, c.Write(Message{Type: "1"}))
	assert.True(t, c.Write(Message{Type: "2"}))
	assert.False(t, c.Write(Message{Type: "3"}), "full buffer drops")

	assert.Equal(t, "1", (<-c.OutChan).Type)
	assert.True(t, c.Write(Message{Type: "4"}))

	c.Close()
	c.Close()
	assert.True(t, cancelled)
	assert.False(t, c.IsOpen())
	assert.False(t, c.Write(Message{Type: "5"}))

	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestRegistryClosesReplacedConnection(t *testing.T) {
	r := newTestRegistry()
	old := NewConnection("p1", 1, nil)
	r.Register("p1", old)
	r.Register("p1", NewConnection("p1", 1, nil))
	assert.False(t, old.IsOpen())
}
