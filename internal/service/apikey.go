package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	APIKeyPrefix   = "ya_"
	apiKeyBytes    = 16
	apiSecretBytes = 32
)

// GenerateAPIKey returns "ya_" followed by 32 lowercase hex characters.
func GenerateAPIKey() (string, error) {
	s, err := randomHex(apiKeyBytes)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + s, nil
}

// GenerateAPISecret returns 64 lowercase hex characters.
func GenerateAPISecret() (string, error) {
	return randomHex(apiSecretBytes)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
