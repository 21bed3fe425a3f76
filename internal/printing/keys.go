package printing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	apiKeyBytes = 24
	// PrefixLength is the number of leading hex characters stored alongside
	// the hash as the lookup pre-filter.
	PrefixLength = 8
	keyHashCost  = 10
)

// GenerateAPIKey produces a fresh plaintext agent key (48 hex characters),
// its lookup prefix, and the bcrypt hash stored in its place. The plaintext
// is never persisted in recoverable form.
func GenerateAPIKey() (plain, prefix, hash string, err error) {
	b := make([]byte, apiKeyBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random key: %w", err)
	}

	plain = hex.EncodeToString(b)
	prefix = plain[:PrefixLength]

	h, err := bcrypt.GenerateFromPassword([]byte(plain), keyHashCost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash key: %w", err)
	}
	return plain, prefix, string(h), nil
}

// CheckKey compares a presented key against a stored hash. bcrypt's comparison
// is constant-time over the digest.
func CheckKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
