// Package vaultfs exposes filesystem operations jailed to a single vault.
// Every call re-resolves its user-supplied path against the vault root, so
// a resolution can never be cached across a suspension point and reused
// after the filesystem changed underneath it.
package vaultfs

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kaysting/vaults/internal/fsutil"
	"github.com/kaysting/vaults/internal/vault"
)

// FS is a vault-jailed filesystem.
type FS struct {
	vault vault.Vault
	osfs  afero.Fs
}

// New returns a filesystem jailed to the given vault.
func New(v vault.Vault) *FS {
	return &FS{vault: v, osfs: afero.NewOsFs()}
}

// Vault returns the vault this filesystem is jailed to.
func (f *FS) Vault() vault.Vault { return f.vault }

// Resolve maps a user path into the vault sandbox.
func (f *FS) Resolve(userPath string) (fsutil.Resolved, error) {
	return f.vault.Resolve(userPath)
}

// Exists reports whether a file or directory exists at the user path.
func (f *FS) Exists(userPath string) (bool, error) {
	p, err := f.Resolve(userPath)
	if err != nil {
		return false, err
	}
	return afero.Exists(f.osfs, p.Abs)
}

// Stat stats the entry at the user path, following symlinks.
func (f *FS) Stat(userPath string) (os.FileInfo, error) {
	p, err := f.Resolve(userPath)
	if err != nil {
		return nil, err
	}
	return f.osfs.Stat(p.Abs)
}

// Lstat stats the entry at the user path without following symlinks.
func (f *FS) Lstat(userPath string) (os.FileInfo, error) {
	p, err := f.Resolve(userPath)
	if err != nil {
		return nil, err
	}
	if lsf, ok := f.osfs.(afero.Lstater); ok {
		fi, _, err := lsf.LstatIfPossible(p.Abs)
		return fi, err
	}
	return f.osfs.Stat(p.Abs)
}

// ReadDir lists the directory at the user path.
func (f *FS) ReadDir(userPath string) ([]os.FileInfo, error) {
	p, err := f.Resolve(userPath)
	if err != nil {
		return nil, err
	}
	return afero.ReadDir(f.osfs, p.Abs)
}

// MkdirAll creates the directory at the user path and any missing parents.
func (f *FS) MkdirAll(userPath string) error {
	p, err := f.Resolve(userPath)
	if err != nil {
		return err
	}
	return f.osfs.MkdirAll(p.Abs, 0o755)
}

// Remove deletes a single file at the user path.
func (f *FS) Remove(userPath string) error {
	p, err := f.Resolve(userPath)
	if err != nil {
		return err
	}
	return f.osfs.Remove(p.Abs)
}

// RemoveAll deletes the entry at the user path, recursively for
// directories. It is as atomic as the underlying recursive remove.
func (f *FS) RemoveAll(userPath string) error {
	p, err := f.Resolve(userPath)
	if err != nil {
		return err
	}
	return f.osfs.RemoveAll(p.Abs)
}

// Rename atomically renames src to dst. Both paths are independently
// re-resolved immediately before the call.
func (f *FS) Rename(srcPath, dstPath string) error {
	src, err := f.Resolve(srcPath)
	if err != nil {
		return err
	}
	dst, err := f.Resolve(dstPath)
	if err != nil {
		return err
	}
	if err := f.osfs.MkdirAll(filepath.Dir(dst.Abs), 0o755); err != nil {
		return err
	}
	return f.osfs.Rename(src.Abs, dst.Abs)
}

// OpenFile opens the file at the user path with the given flags, creating
// parent directories when the call may create the file.
func (f *FS) OpenFile(userPath string, flag int, perm os.FileMode) (afero.File, error) {
	p, err := f.Resolve(userPath)
	if err != nil {
		return nil, err
	}
	if flag&os.O_CREATE != 0 {
		if err := f.osfs.MkdirAll(filepath.Dir(p.Abs), 0o755); err != nil {
			return nil, err
		}
	}
	return f.osfs.OpenFile(p.Abs, flag, perm)
}

// Open opens the file at the user path for reading.
func (f *FS) Open(userPath string) (afero.File, error) {
	p, err := f.Resolve(userPath)
	if err != nil {
		return nil, err
	}
	return f.osfs.Open(p.Abs)
}
