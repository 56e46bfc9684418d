package vault

import (
	"testing"

	"github.com/kaysting/vaults/internal/config"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry([]config.Vault{
		{Name: "team", Path: t.TempDir(), Users: []string{"Alice", "bob"}},
		{Name: "solo", Path: t.TempDir(), Users: []string{"carol"}},
	})
}

// TestFind resolves vaults by exact name only.
func TestFind(t *testing.T) {
	r := testRegistry(t)
	if _, ok := r.Find("team"); !ok {
		t.Fatalf("expected to find vault team")
	}
	if _, ok := r.Find("Team"); ok {
		t.Fatalf("vault names are case-sensitive")
	}
	if _, ok := r.Find("nope"); ok {
		t.Fatalf("expected missing vault")
	}
}

// TestHasMember compares usernames case-insensitively.
func TestHasMember(t *testing.T) {
	r := testRegistry(t)
	v, _ := r.Find("team")
	if !v.HasMember("alice") || !v.HasMember("ALICE") || !v.HasMember("Bob") {
		t.Fatalf("expected membership checks to be case-insensitive")
	}
	if v.HasMember("carol") {
		t.Fatalf("carol is not a member of team")
	}
}

// TestForUser lists only vaults the user belongs to.
func TestForUser(t *testing.T) {
	r := testRegistry(t)
	vs := r.ForUser("ALICE")
	if len(vs) != 1 || vs[0].Name != "team" {
		t.Fatalf("unexpected vaults for alice: %+v", vs)
	}
	if len(r.ForUser("nobody")) != 0 {
		t.Fatalf("expected no vaults for unknown user")
	}
}
