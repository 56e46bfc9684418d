package vaultfs

import (
	"io"
	"os"
	"path"
)

// RemoveIfExists deletes the entry at the user path when present,
// recursively for directories. Missing entries are not an error.
func (f *FS) RemoveIfExists(userPath string) error {
	ok, err := f.Exists(userPath)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	fi, err := f.Lstat(userPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if fi.IsDir() {
		return f.RemoveAll(userPath)
	}
	return f.Remove(userPath)
}

// CopyTree copies srcPath to dstPath. Files are copied one at a time and
// directories are walked with an explicit worklist, so recursion depth is
// bounded regardless of tree shape. The copy is not atomic: a failure
// partway through leaves whatever was already copied in place.
func (f *FS) CopyTree(srcPath, dstPath string) error {
	type pair struct {
		src string
		dst string
	}
	work := []pair{{src: srcPath, dst: dstPath}}

	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]

		fi, err := f.Stat(cur.src)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			if err := f.copyFile(cur.src, cur.dst); err != nil {
				return err
			}
			continue
		}
		if err := f.MkdirAll(cur.dst); err != nil {
			return err
		}
		entries, err := f.ReadDir(cur.src)
		if err != nil {
			return err
		}
		for _, e := range entries {
			work = append(work, pair{
				src: path.Join(cur.src, e.Name()),
				dst: path.Join(cur.dst, e.Name()),
			})
		}
	}
	return nil
}

func (f *FS) copyFile(srcPath, dstPath string) error {
	src, err := f.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := f.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
