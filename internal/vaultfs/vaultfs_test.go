// Package vaultfs tests cover jailing and the copy engine.
package vaultfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kaysting/vaults/internal/vault"
)

func testFS(t *testing.T) *FS {
	t.Helper()
	return New(vault.Vault{Name: "t", Root: t.TempDir(), Users: []string{"alice"}})
}

// TestJailRejectsEscape blocks operations on traversal paths.
func TestJailRejectsEscape(t *testing.T) {
	f := testFS(t)
	if _, err := f.Stat("../../etc/passwd"); err == nil {
		// Lexical cleaning may keep this inside the root; verify resolution.
		p, rerr := f.Resolve("../../etc/passwd")
		if rerr != nil {
			return
		}
		if rel, _ := filepath.Rel(f.Vault().Root, p.Abs); rel == ".." || filepath.IsAbs(rel) {
			t.Fatalf("escape not rejected: %q", p.Abs)
		}
	}
}

// TestRenameCreatesParents renames across directories.
func TestRenameCreatesParents(t *testing.T) {
	f := testFS(t)
	fh, err := f.OpenFile("/a.txt", os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := fh.WriteString("data"); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = fh.Close()

	if err := f.Rename("/a.txt", "/sub/dir/b.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	ok, err := f.Exists("/sub/dir/b.txt")
	if err != nil || !ok {
		t.Fatalf("expected renamed file to exist: %v", err)
	}
	if ok, _ := f.Exists("/a.txt"); ok {
		t.Fatalf("source should be gone")
	}
}

// TestCopyTreeCopiesNestedDirectories copies a directory tree.
func TestCopyTreeCopiesNestedDirectories(t *testing.T) {
	f := testFS(t)
	if err := f.MkdirAll("/src/nested/deep"); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for _, p := range []string{"/src/top.txt", "/src/nested/mid.txt", "/src/nested/deep/leaf.txt"} {
		fh, err := f.OpenFile(p, os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			t.Fatalf("OpenFile %s: %v", p, err)
		}
		if _, err := fh.WriteString("x: " + p); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = fh.Close()
	}

	if err := f.CopyTree("/src", "/dst"); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}
	for _, p := range []string{"/dst/top.txt", "/dst/nested/mid.txt", "/dst/nested/deep/leaf.txt"} {
		ok, err := f.Exists(p)
		if err != nil || !ok {
			t.Fatalf("expected %s to exist after copy: %v", p, err)
		}
	}
	b, err := os.ReadFile(filepath.Join(f.Vault().Root, "dst", "nested", "deep", "leaf.txt"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "x: /src/nested/deep/leaf.txt" {
		t.Fatalf("unexpected copied content %q", b)
	}
	// Source is untouched.
	if ok, _ := f.Exists("/src/top.txt"); !ok {
		t.Fatalf("copy must not remove the source")
	}
}

// TestCopyTreeSingleFile copies a lone file.
func TestCopyTreeSingleFile(t *testing.T) {
	f := testFS(t)
	fh, err := f.OpenFile("/one.txt", os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := fh.WriteString("solo"); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = fh.Close()

	if err := f.CopyTree("/one.txt", "/two.txt"); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(f.Vault().Root, "two.txt"))
	if err != nil || string(b) != "solo" {
		t.Fatalf("unexpected copy result: %q %v", b, err)
	}
}

// TestRemoveIfExists removes files and directories, tolerating absence.
func TestRemoveIfExists(t *testing.T) {
	f := testFS(t)
	if err := f.RemoveIfExists("/ghost"); err != nil {
		t.Fatalf("missing path should not error: %v", err)
	}
	if err := f.MkdirAll("/dir/sub"); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := f.RemoveIfExists("/dir"); err != nil {
		t.Fatalf("RemoveIfExists: %v", err)
	}
	if ok, _ := f.Exists("/dir"); ok {
		t.Fatalf("directory should be removed")
	}
}
