package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// NewHexToken returns n characters of cryptographically random hex.
func NewHexToken(n int) (string, error) {
	if n < 8 {
		return "", errors.New("token size too small")
	}
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:n], nil
}
