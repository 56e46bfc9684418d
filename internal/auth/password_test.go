// Package auth tests cover password checks and token generation.
package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/kaysting/vaults/internal/config"
)

// TestVerifyPasswordRoundTrip verifies a bcrypt hash matches its password.
func TestVerifyPasswordRoundTrip(t *testing.T) {
	h, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if !VerifyPassword("hunter2", string(h)) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("hunter3", string(h)) {
		t.Fatalf("expected wrong password to fail")
	}
	if VerifyPassword("", string(h)) {
		t.Fatalf("expected empty password to fail")
	}
}

// TestAuthenticateCaseInsensitive matches usernames case-insensitively.
func TestAuthenticateCaseInsensitive(t *testing.T) {
	h, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users := []config.User{{Username: "Alice", PasswordHash: string(h)}}

	name, ok := Authenticate(users, "ALICE", "pw")
	if !ok {
		t.Fatalf("expected authentication to succeed")
	}
	if name != "alice" {
		t.Fatalf("expected lowercased identity, got %q", name)
	}
	if _, ok := Authenticate(users, "alice", "wrong"); ok {
		t.Fatalf("expected wrong password to fail")
	}
	if _, ok := Authenticate(users, "bob", "pw"); ok {
		t.Fatalf("expected unknown user to fail")
	}
}

// TestNewHexToken checks token length and charset.
func TestNewHexToken(t *testing.T) {
	tok, err := NewHexToken(32)
	if err != nil {
		t.Fatalf("NewHexToken: %v", err)
	}
	if len(tok) != 32 {
		t.Fatalf("expected 32 chars, got %d", len(tok))
	}
	for _, c := range tok {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Fatalf("unexpected character %q", c)
		}
	}
	tok2, err := NewHexToken(32)
	if err != nil {
		t.Fatalf("NewHexToken: %v", err)
	}
	if tok == tok2 {
		t.Fatalf("expected distinct tokens")
	}
	if _, err := NewHexToken(4); err == nil {
		t.Fatalf("expected short token request to be rejected")
	}
}
