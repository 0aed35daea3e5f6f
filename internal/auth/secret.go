package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// secretBytes gives 256 bits of entropy per bearer secret.
	secretBytes = 32
	// identifierBytes gives a 16-character hex lookup key, generated
	// independently of the secret so the identifier leaks nothing about it.
	identifierBytes = 8

	credentialSeparator = "."
)

// GenerateSecret produces a raw bearer secret and an unrelated public
// identifier. The raw secret must only ever be handed to the caller at
// issuance; it is never persisted or logged.
func GenerateSecret() (rawSecret, identifier string, err error) {
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}
	id := make([]byte, identifierBytes)
	if _, err := rand.Read(id); err != nil {
		return "", "", err
	}
	return base64.RawURLEncoding.EncodeToString(secret), hex.EncodeToString(id), nil
}

// HashSecret derives the storable one-way digest of a raw bearer secret.
// bcrypt embeds a per-call salt, so hashing the same secret twice yields
// different, independently verifiable outputs.
func HashSecret(rawSecret string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(rawSecret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifySecret checks a presented raw secret against the stored hash with
// constant-time comparison semantics.
func VerifySecret(rawSecret, secretHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(rawSecret)) == nil
}

// EncodeCredential joins identifier and raw secret into the wire form a
// client presents as a bearer credential.
func EncodeCredential(identifier, rawSecret string) string {
	return identifier + credentialSeparator + rawSecret
}

// SplitCredential parses a presented bearer credential into its identifier
// and secret parts. ok is false when the credential is malformed.
func SplitCredential(credential string) (identifier, rawSecret string, ok bool) {
	identifier, rawSecret, found := strings.Cut(credential, credentialSeparator)
	if !found || identifier == "" || rawSecret == "" {
		return "", "", false
	}
	return identifier, rawSecret, true
}
