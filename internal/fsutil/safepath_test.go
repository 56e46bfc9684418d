// Package fsutil tests validate path traversal protections.
package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestResolveRejectsTraversal blocks .. escapes in various spellings.
func TestResolveRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"../etc/passwd",
		"/../etc/passwd",
		"a/../../etc/passwd",
		"..\\..\\etc\\passwd",
	} {
		r, err := Resolve(root, p)
		if err != nil {
			continue
		}
		// Lexical normalization may neutralize the escape; the result must
		// still be inside the root.
		if !isWithin(root, r.Abs) {
			t.Fatalf("path %q resolved outside root: %q", p, r.Abs)
		}
	}
}

// TestResolveRootForms treats "" and "/" as the vault root.
func TestResolveRootForms(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"", "/", "//", "/./"} {
		r, err := Resolve(root, p)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", p, err)
		}
		if r.Rel != "/" {
			t.Fatalf("Resolve(%q).Rel = %q, want /", p, r.Rel)
		}
		if !r.IsVaultRoot() {
			t.Fatalf("Resolve(%q) should be vault root", p)
		}
		if r.Abs != filepath.Clean(root) {
			t.Fatalf("Resolve(%q).Abs = %q, want %q", p, r.Abs, root)
		}
	}
}

// TestResolveNormalizesRel produces slash-rooted relative paths.
func TestResolveNormalizesRel(t *testing.T) {
	root := t.TempDir()
	r, err := Resolve(root, "docs//notes/../a.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Rel != "/docs/a.txt" {
		t.Fatalf("Rel = %q, want /docs/a.txt", r.Rel)
	}
	if r.Abs != filepath.Join(root, "docs", "a.txt") {
		t.Fatalf("Abs = %q", r.Abs)
	}
}

// TestResolveRejectsSymlinkEscape blocks symlink-based escapes.
func TestResolveRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink behavior varies on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()

	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	if _, err := Resolve(root, "link/escape.txt"); err == nil {
		t.Fatalf("expected symlink escape to be rejected")
	}
}

// TestResolveNeverEscapes is the core containment property.
func TestResolveNeverEscapes(t *testing.T) {
	root := t.TempDir()
	inputs := []string{
		"..", "../..", "/..", "x/../..", "....//", "..%2f", "a/b/c/../../../../..",
		"/abs/path", "./ok/../..", "\\..\\..",
	}
	for _, p := range inputs {
		r, err := Resolve(root, p)
		if err != nil {
			continue
		}
		if !isWithin(root, r.Abs) {
			t.Fatalf("input %q escaped root: %q", p, r.Abs)
		}
	}
}
