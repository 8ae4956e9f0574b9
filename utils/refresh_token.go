package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

var randRead = rand.Read

// GenerateRefreshToken returns 32 bytes of randomness as an opaque
// URL-safe token handed to the client.
func GenerateRefreshToken() (string, error) {
	buffer := make([]byte, 32)
	if _, err := randRead(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashRefreshToken derives the storage key for a refresh token. Only
// the digest is persisted; a leaked store cannot replay sessions.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
