// Package auth covers credential verification and opaque token generation.
// Password hashes are produced out of band; only comparison happens here.
package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kaysting/vaults/internal/config"
)

// VerifyPassword compares a plaintext password against a bcrypt hash.
func VerifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate matches credentials against the configured accounts.
// Usernames compare case-insensitively; the returned username is lowercased
// and is the identity recorded on the session.
func Authenticate(users []config.User, username, password string) (string, bool) {
	lower := strings.ToLower(username)
	for _, u := range users {
		if strings.ToLower(u.Username) != lower {
			continue
		}
		if VerifyPassword(password, u.PasswordHash) {
			return lower, true
		}
		return "", false
	}
	return "", false
}
