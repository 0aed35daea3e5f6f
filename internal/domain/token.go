package domain

import "time"

// AccessToken represents one issued API credential. The raw bearer secret is
// never part of this record; only its bcrypt hash is stored. Identifier is
// the public lookup key and is unique across all owners.
type AccessToken struct {
	Identifier    string
	SecretHash    string
	OwnerUsername string
	Label         string
	CreatedAt     time.Time
	ValidUntil    *time.Time // nil means non-expiring
	LastUsedAt    *time.Time
}

// Expired reports whether the token's expiry instant has passed at the given
// time. Tokens without ValidUntil never expire.
func (t *AccessToken) Expired(now time.Time) bool {
	return t.ValidUntil != nil && now.After(*t.ValidUntil)
}
