package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenIssued   EventType = "token_issued"
	EventTokenRevoked  EventType = "token_revoked"
	EventSessionOpened EventType = "session_opened"
	EventSessionClosed EventType = "session_closed"
)

// Event represents a security-relevant action emitted by services. Payloads
// never carry raw secrets or secret hashes.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Username  string      `json:"username"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	Identifier string     `json:"identifier"`
	Label      string     `json:"label"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

// TokenRevokedPayload payload.
type TokenRevokedPayload struct {
	Identifier string `json:"identifier"`
}

// SessionOpenedPayload payload.
type SessionOpenedPayload struct {
	SessionID string `json:"session_id"`
}

// SessionClosedPayload payload.
type SessionClosedPayload struct {
	SessionID string `json:"session_id"`
}
