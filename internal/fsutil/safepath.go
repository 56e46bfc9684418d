// Package fsutil maps caller-supplied vault paths onto the local filesystem
// and rejects anything that would escape a vault root.
package fsutil

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a path escapes its vault root.
var ErrPathTraversal = errors.New("path escapes vault root")

// Resolved pairs a normalized vault-relative path with its absolute
// location on disk. It is transient: callers re-resolve before any
// filesystem operation rather than trusting a cached value.
type Resolved struct {
	// Rel is rooted at "/" within the vault, e.g. "/docs/a.txt".
	Rel string
	// Abs is the absolute filesystem path under the vault root.
	Abs string
}

// IsVaultRoot reports whether the resolved path is the vault root itself.
func (r Resolved) IsVaultRoot() bool {
	return r.Rel == "/"
}

// Resolve maps a user-provided path to a location under root.
// The input is forced relative, lexically normalized, then joined onto the
// root; the result must stay at or below the root after resolving any
// existing symlink components. "" and "/" both denote the root.
func Resolve(root, userPath string) (Resolved, error) {
	if root == "" {
		return Resolved{}, errors.New("root is required")
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return Resolved{}, err
	}
	rootAbs = filepath.Clean(rootAbs)

	rel := path.Clean("/" + strings.ReplaceAll(userPath, "\\", "/"))
	joined := filepath.Join(rootAbs, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
	joined = filepath.Clean(joined)

	if !isWithin(rootAbs, joined) {
		return Resolved{}, ErrPathTraversal
	}

	// If any existing segment is a symlink to outside root, block it.
	existing := nearestExisting(joined)
	if existing != "" {
		resolved, err := filepath.EvalSymlinks(existing)
		if err != nil {
			return Resolved{}, err
		}
		rootResolved, err := filepath.EvalSymlinks(rootAbs)
		if err != nil {
			if !os.IsNotExist(err) {
				return Resolved{}, err
			}
			rootResolved = rootAbs
		}
		if !isWithin(rootResolved, filepath.Clean(resolved)) {
			return Resolved{}, ErrPathTraversal
		}
	}

	return Resolved{Rel: rel, Abs: joined}, nil
}

// RelWithin converts an absolute path back to a "/"-rooted vault-relative
// path, failing when the path is not contained by root. Used to re-check
// stored absolute paths at the point of use.
func RelWithin(root, abs string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	rootAbs = filepath.Clean(rootAbs)
	abs = filepath.Clean(abs)
	if !isWithin(rootAbs, abs) {
		return "", ErrPathTraversal
	}
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil {
		return "", err
	}
	return path.Clean("/" + filepath.ToSlash(rel)), nil
}

func isWithin(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)
	if root == candidate {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(candidate, root)
}

func nearestExisting(p string) string {
	cur := p
	for {
		_, err := os.Lstat(cur)
		if err == nil {
			return cur
		}
		if !os.IsNotExist(err) {
			return ""
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return ""
		}
		cur = parent
	}
}
