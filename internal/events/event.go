// Package events defines the auth and chat events emitted to the event
// pipeline. Events are serialized as JSON onto Kafka and consumed by the
// worker, which pushes them to Loki.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the backend.
const (
	TypeLoginSucceeded     = "login_succeeded"
	TypeLoginFailed        = "login_failed"
	TypeTokenRefreshed     = "token_refreshed"
	TypeSessionRevoked     = "session_revoked"
	TypeConnectionOpened   = "connection_opened"
	TypeConnectionRejected = "connection_rejected"
	TypeSubscriptionOpened = "subscription_opened"
	TypeSubscriptionDenied = "subscription_denied"
	TypeMessageSent        = "message_sent"
	TypeMessageRejected    = "message_rejected"
)

// Event is one pipeline event. OrgID, EventType, and Source become Loki
// stream labels; everything else rides in the log line.
type Event struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId"`
	UserID    string    `json:"userId,omitempty"`
	EventType string    `json:"eventType"`
	Source    string    `json:"source"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// New returns a timestamped event from the given source.
func New(source, eventType, orgID, userID, detail string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		UserID:    userID,
		EventType: eventType,
		Source:    source,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
}
