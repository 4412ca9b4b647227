package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateNonce returns 32 bytes (256 bits) of randomness, hex encoded.
func GenerateNonce() (string, error) {

	const size = 32

	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("session: failed to generate nonce: %w", err)
	}

	return hex.EncodeToString(b), nil

}
