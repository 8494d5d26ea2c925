package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

// EditorTokenBytes is the amount of randomness in a public editor
// token: 32 bytes, i.e. 256 bits.
const EditorTokenBytes = 32

// NewEditorToken returns a fresh capability token for an anonymous
// map editor, base64url encoded without padding (43 characters).
func NewEditorToken() (string, error) {
	buf := make([]byte, EditorTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// TokensEqual compares two tokens in constant time.
func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
