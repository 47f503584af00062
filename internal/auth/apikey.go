// Package auth provides the access gate and the primitives behind it: key generation, bcrypt
// hashing and credential extraction from request headers.
// The gate is a shared-secret check. It knows nothing about who is calling, only whether the
// presented key matches one of the stored hashes. See internal/middleware/gate.go for the
// request-time wiring.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// APIKeyLength is the length of the random part of a generated key in bytes.
	APIKeyLength = 32

	// DefaultKeyPrefix is prepended to generated keys so they are recognisable in logs and
	// secret scanners.
	DefaultKeyPrefix = "cec"

	// DefaultBcryptCost is the cost used when none is configured.
	DefaultBcryptCost = 12

	// DefaultHeader is the header the gate reads the credential from.
	DefaultHeader = "X-API-Key"
)

// GenerateAPIKey creates a random key with the given prefix and returns it alongside its
// bcrypt hash. The key is shown once; only the hash is stored.
func GenerateAPIKey(prefix string, cost int) (key string, hash string, err error) {
	randomBytes := make([]byte, APIKeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	key = fmt.Sprintf("%s_%s", prefix, base64.RawURLEncoding.EncodeToString(randomBytes))
	hash, err = HashKey(key, cost)
	if err != nil {
		return "", "", err
	}
	return key, hash, nil
}

// HashKey returns the bcrypt hash of key. A cost of zero selects DefaultBcryptCost.
func HashKey(key string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}
	return string(hashBytes), nil
}

// ValidateAPIKey checks if a provided key matches the stored hash.
func ValidateAPIKey(providedKey, storedHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(providedKey))
	return err == nil
}

// ExtractAPIKeyFromHeader extracts the key from an Authorization header of the form
// "Bearer cec_abc123...".
func ExtractAPIKeyFromHeader(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	key := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if key == "" {
		return "", errors.New("API key is empty after Bearer prefix")
	}
	return key, nil
}
