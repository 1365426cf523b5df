package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jason-s-yu/lobbyhub/internal/apperrors"
)

// MaxMessageLength bounds chat content after trimming, counted in runes.
const MaxMessageLength = 500

// ChatMessage is an immutable chat event scoped to a lobby. SenderUsername is a
// copy taken when the message was sent.
type ChatMessage struct {
	id             string
	lobbyID        string
	senderID       string
	senderUsername string
	content        string
	timestamp      time.Time
}

// ChatMessageSnapshot is the serialized shape of a ChatMessage.
type ChatMessageSnapshot struct {
	ID             string    `json:"id"`
	LobbyID        string    `json:"lobbyId"`
	SenderID       string    `json:"senderId"`
	SenderUsername string    `json:"senderUsername"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewChatMessage validates and trims content.
func NewChatMessage(id, lobbyID, senderID, senderUsername, content string, at time.Time) (*ChatMessage, error) {
	trimmed, err := validateContent(content)
	if err != nil {
		return nil, err
	}
	if id == "" || lobbyID == "" || senderID == "" {
		return nil, fmt.Errorf("%w: message, lobby and sender ids are required", apperrors.ErrValidation)
	}
	return &ChatMessage{
		id:             id,
		lobbyID:        lobbyID,
		senderID:       senderID,
		senderUsername: senderUsername,
		content:        trimmed,
		timestamp:      at,
	}, nil
}

// RestoreChatMessage rebuilds a message from a complete snapshot.
func RestoreChatMessage(s ChatMessageSnapshot) (*ChatMessage, error) {
	if s.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: message %s has no timestamp", apperrors.ErrValidation, s.ID)
	}
	return NewChatMessage(s.ID, s.LobbyID, s.SenderID, s.SenderUsername, s.Content, s.Timestamp)
}

func validateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("%w: message content cannot be empty", apperrors.ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		return "", fmt.Errorf("%w: message content cannot exceed %d characters", apperrors.ErrValidation, MaxMessageLength)
	}
	return trimmed, nil
}

func (m *ChatMessage) ID() string             { return m.id }
func (m *ChatMessage) LobbyID() string        { return m.lobbyID }
func (m *ChatMessage) SenderID() string       { return m.senderID }
func (m *ChatMessage) SenderUsername() string { return m.senderUsername }
func (m *ChatMessage) Content() string        { return m.content }
func (m *ChatMessage) Timestamp() time.Time   { return m.timestamp }

// IsFromSender reports whether senderID wrote the message.
func (m *ChatMessage) IsFromSender(senderID string) bool {
	return m.senderID == senderID
}

// IsOlderThan reports whether the message is more than age old at now.
func (m *ChatMessage) IsOlderThan(age time.Duration, now time.Time) bool {
	return now.Sub(m.timestamp) > age
}

// Snapshot returns the serializable state of the message.
func (m *ChatMessage) Snapshot() ChatMessageSnapshot {
	return ChatMessageSnapshot{
		ID:             m.id,
		LobbyID:        m.lobbyID,
		SenderID:       m.senderID,
		SenderUsername: m.senderUsername,
		Content:        m.content,
		Timestamp:      m.timestamp,
	}
}

func (m *ChatMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}
