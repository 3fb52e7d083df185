package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// GenerateToken returns n random bytes encoded as unpadded base64url.
// n below MinTokenBytes is raised to MinTokenBytes.
func GenerateToken(n int) (string, error) {
	if n < MinTokenBytes {
		n = MinTokenBytes
	}

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// EqualTokens compares two tokens in constant time. Empty tokens never match.
func EqualTokens(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
