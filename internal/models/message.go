package models

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a chat message received from a user.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	ChatID    string    `json:"chat_id"`
	MessageID *int64    `json:"message_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Processed bool      `json:"processed"`
}

// NewMessage validates content and returns an unprocessed message with a fresh ID.
// messageID is the transport's own identifier and may be nil.
func NewMessage(content, userID, chatID string, messageID *int64) (*Message, error) {
	content, err := requireText("content", content)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        uuid.New(),
		Content:   content,
		UserID:    userID,
		ChatID:    chatID,
		MessageID: messageID,
		CreatedAt: Now(),
	}, nil
}

func (m *Message) MarkAsProcessed() {
	m.Processed = true
}
