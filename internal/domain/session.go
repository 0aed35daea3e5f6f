package domain

import "time"

// Session represents an authenticated browser/client context. The record
// lives in the session store under its ID; the handle clients present wraps
// that ID. Store expiry is the lifetime authority.
type Session struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}
