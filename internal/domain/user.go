package domain

import "time"

// User is the domain model for an account that owns notes, sessions and
// access tokens. The username is the immutable handle other records
// reference; the core never mutates users beyond creation.
type User struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}
