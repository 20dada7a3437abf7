package domain

import (
	"errors"
	"time"
)

// MaxContentLength is the maximum message content length in characters.
const MaxContentLength = 2000

// Message is a chat message within an organization. RecipientID is empty for
// team-channel messages and set for direct messages.
type Message struct {
	ID          string
	OrgID       string
	SenderID    string
	RecipientID string
	Content     string
	CreatedAt   time.Time
}

// Validate validates the message for persistence.
func (m *Message) Validate() error {
	if m.OrgID == "" {
		return errors.New("org_id is required")
	}
	if m.SenderID == "" {
		return errors.New("sender_id is required")
	}
	if m.Content == "" {
		return errors.New("content is required")
	}
	if len([]rune(m.Content)) > MaxContentLength {
		return errors.New("content exceeds maximum length")
	}
	return nil
}
