// Package archive streams zip output incrementally, never buffering whole
// archives in memory.
package archive

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Entry is a resolved filesystem path to place at the archive top level
// under Name. Directory entries are walked recursively, preserving their
// internal structure below Name.
type Entry struct {
	Name string
	Abs  string
}

// WriteZip streams the entries into w as a zip archive. Entries that have
// gone missing are skipped with a warning rather than failing the whole
// archive; ctx cancellation (client disconnect) aborts the build.
func WriteZip(ctx context.Context, w io.Writer, entries []Entry, lg *slog.Logger) error {
	zw := zip.NewWriter(w)
	defer zw.Close()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, err := os.Stat(e.Abs)
		if err != nil {
			lg.Warn("archive entry missing, skipping", "path", e.Abs)
			continue
		}
		if st.IsDir() {
			if err := addDir(ctx, zw, e.Abs, e.Name, lg); err != nil {
				return err
			}
			continue
		}
		if err := addFile(zw, e.Abs, e.Name, st.ModTime()); err != nil {
			return err
		}
	}
	return zw.Close()
}

func addDir(ctx context.Context, zw *zip.Writer, baseAbs, baseName string, lg *slog.Logger) error {
	return filepath.WalkDir(baseAbs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			lg.Warn("archive walk error, skipping", "path", p, "error", err)
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}
		// Only regular files; symlinks are not followed into the archive.
		if d.Type()&fs.ModeType != 0 {
			return nil
		}
		rel, err := filepath.Rel(baseAbs, p)
		if err != nil {
			return nil
		}
		name := filepath.ToSlash(filepath.Join(baseName, rel))
		info, ierr := d.Info()
		mod := time.Now()
		if ierr == nil {
			mod = info.ModTime()
		}
		return addFile(zw, p, name, mod)
	})
}

func addFile(zw *zip.Writer, abs, name string, mod time.Time) error {
	h := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: mod,
	}
	wr, err := zw.CreateHeader(h)
	if err != nil {
		return err
	}
	f, err := os.Open(abs)
	if err != nil {
		// File vanished between stat and open; its entry stays empty.
		return nil
	}
	defer f.Close()
	_, err = io.Copy(wr, f)
	return err
}
