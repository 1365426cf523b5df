package chat

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jason-s-yu/lobbyhub/internal/apperrors"
	"github.com/jason-s-yu/lobbyhub/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := NewService(NewMemoryStore(), logger)
	svc.now = func() time.Time { return t0 }
	return svc
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	msg, err := svc.SendMessage(ctx, "l1", "p1", "alice", "  hello  ")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID())
	assert.Equal(t, "hello", msg.Content())
	assert.Equal(t, "alice", msg.SenderUsername())
	assert.Equal(t, t0, msg.Timestamp())

	_, err = svc.SendMessage(ctx, "l1", "p1", "alice", "   ")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.SendMessage(ctx, "l1", "p1", "alice", strings.Repeat("a", models.MaxMessageLength+1))
	require.ErrorIs(t, err, apperrors.ErrValidation)

	// rejected messages are not stored
	n, err := svc.MessageCount(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHistoryAndClear(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	for i := 0; i < HistoryWindow+3; i++ {
		_, err := svc.SendMessage(ctx, "l1", "p1", "alice", "hi")
		require.NoError(t, err)
	}
	history, err := svc.History(ctx, "l1")
	require.NoError(t, err)
	assert.Len(t, history, HistoryWindow)

	require.NoError(t, svc.ClearHistory(ctx, "l1"))
	history, err = svc.History(ctx, "l1")
	require.NoError(t, err)
	assert.Empty(t, history)
}
