// Package upload implements the chunked upload state machine:
// Create -> WriteChunk (repeatable) -> Finalize | Cancel, with stale
// records reaped by the store sweeper. Data is staged in a sidecar temp
// file next to its destination and atomically renamed on finalize, so a
// reader of the destination never observes a partial write.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/kaysting/vaults/internal/auth"
	"github.com/kaysting/vaults/internal/fsutil"
	"github.com/kaysting/vaults/internal/store"
	"github.com/kaysting/vaults/internal/vaultfs"
)

// tokenLen is the length of upload tokens in hex characters.
const tokenLen = 32

var (
	// ErrNotFound means the token does not map to an in-flight upload.
	ErrNotFound = errors.New("upload not found")
	// ErrDestIsDirectory rejects overwriting a directory.
	ErrDestIsDirectory = errors.New("destination is a directory")
	// ErrAlreadyExists rejects an existing destination without overwrite.
	ErrAlreadyExists = errors.New("destination already exists")
	// ErrInvalidSize rejects non-positive declared sizes.
	ErrInvalidSize = errors.New("invalid declared size")
	// ErrInsufficientSpace rejects uploads larger than the vault's free space.
	ErrInsufficientSpace = errors.New("insufficient space in vault")
	// ErrChunkTooLarge rejects a chunk body over the server cap. The
	// upload itself stays alive and resumable.
	ErrChunkTooLarge = errors.New("chunk exceeds size cap")
	// ErrNoData means finalize was called before any chunk arrived.
	ErrNoData = errors.New("no data uploaded")
	// ErrIncomplete means the staged file size differs from the declared size.
	ErrIncomplete = errors.New("upload incomplete")
	// ErrWriteFailed reports an aborted upload after a chunk I/O failure.
	ErrWriteFailed = errors.New("chunk write failed")
	// ErrFinalizeFailed reports an aborted upload after a finalize failure.
	ErrFinalizeFailed = errors.New("finalize failed")
)

// Pipeline drives chunked uploads against the token store.
type Pipeline struct {
	Store *store.Store
}

// Create validates the destination and declared size, stages an upload
// record, and returns its token. The temp path is the destination path
// suffixed with the token, which pins it to the destination's directory
// and therefore inside the vault sandbox.
func (p *Pipeline) Create(ctx context.Context, fs *vaultfs.FS, username, destPath string, size int64, overwrite bool) (string, error) {
	dest, err := fs.Resolve(destPath)
	if err != nil {
		return "", err
	}
	exists, err := fs.Exists(dest.Rel)
	if err != nil {
		return "", err
	}
	if exists {
		fi, err := fs.Lstat(dest.Rel)
		if err != nil {
			return "", err
		}
		if fi.IsDir() {
			return "", ErrDestIsDirectory
		}
		if !overwrite {
			return "", ErrAlreadyExists
		}
	}
	if size <= 0 {
		return "", ErrInvalidSize
	}
	// Advisory only: free space is read live and never reserved, so
	// concurrent uploads can jointly overcommit between check and write.
	if fs.Vault().Disk().AvailableBytes < uint64(size) {
		return "", ErrInsufficientSpace
	}

	token, err := auth.NewHexToken(tokenLen)
	if err != nil {
		return "", err
	}
	rec := store.Upload{
		Token:    token,
		Username: username,
		Vault:    fs.Vault().Name,
		TempPath: dest.Abs + "." + token,
		DestPath: dest.Abs,
		Size:     size,
	}
	if err := p.Store.CreateUpload(ctx, rec); err != nil {
		return "", err
	}
	return token, nil
}

// WriteChunk writes data at the given absolute offset into the upload's
// temp file. Offset addressing makes retries and reordering idempotent
// per chunk. A body over the request cap returns ErrChunkTooLarge and
// leaves the upload resumable; any other I/O failure aborts the whole
// upload: the temp file and record are removed and ErrWriteFailed is
// returned.
func (p *Pipeline) WriteChunk(ctx context.Context, fs *vaultfs.FS, token string, offset int64, data io.Reader) error {
	u, ok, err := p.Store.GetUpload(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	// Re-check the recorded temp path against the vault root before any
	// write; the record is not trusted across the async gap since create.
	tempRel, err := fsutil.RelWithin(fs.Vault().Root, u.TempPath)
	if err != nil {
		return err
	}

	if err := p.writeAt(fs, tempRel, offset, data); err != nil {
		// A capped request body is a client error, not a storage
		// failure: keep the record and temp file so the chunk can be
		// resent within the limit.
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return fmt.Errorf("%w: %v", ErrChunkTooLarge, err)
		}
		_ = os.Remove(u.TempPath)
		_ = p.Store.DeleteUpload(ctx, token)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (p *Pipeline) writeAt(fs *vaultfs.FS, tempRel string, offset int64, data io.Reader) error {
	f, err := fs.OpenFile(tempRel, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Finalize publishes a fully staged upload to its destination. The staged
// size must equal the declared size; this is the sole completeness check,
// so a sparse file that happens to match passes. The destination's
// existence and overwrite policy are re-checked because state may have
// changed since create. Failures in the publish phase clean up the temp
// file and record.
func (p *Pipeline) Finalize(ctx context.Context, fs *vaultfs.FS, token string, overwrite bool) (string, error) {
	u, ok, err := p.Store.GetUpload(ctx, token)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}
	tempRel, err := fsutil.RelWithin(fs.Vault().Root, u.TempPath)
	if err != nil {
		return "", err
	}
	destRel, err := fsutil.RelWithin(fs.Vault().Root, u.DestPath)
	if err != nil {
		return "", err
	}

	st, err := fs.Stat(tempRel)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoData
		}
		return "", err
	}
	if st.Size() != u.Size {
		return "", ErrIncomplete
	}

	exists, err := fs.Exists(destRel)
	if err != nil {
		return "", err
	}
	if exists {
		fi, err := fs.Lstat(destRel)
		if err != nil {
			return "", err
		}
		if fi.IsDir() {
			return "", ErrDestIsDirectory
		}
		if !overwrite {
			return "", ErrAlreadyExists
		}
	}

	if err := p.publish(fs, tempRel, destRel, overwrite); err != nil {
		_ = os.Remove(u.TempPath)
		_ = p.Store.DeleteUpload(ctx, token)
		return "", fmt.Errorf("%w: %v", ErrFinalizeFailed, err)
	}
	if err := p.Store.DeleteUpload(ctx, token); err != nil {
		return "", err
	}
	return destRel, nil
}

func (p *Pipeline) publish(fs *vaultfs.FS, tempRel, destRel string, overwrite bool) error {
	if overwrite {
		if err := fs.RemoveIfExists(destRel); err != nil {
			return err
		}
	}
	// Same-directory rename: atomic on the same filesystem.
	return fs.Rename(tempRel, destRel)
}

// Cancel deletes the temp file (best-effort) and the record
// unconditionally.
func (p *Pipeline) Cancel(ctx context.Context, token string) error {
	u, ok, err := p.Store.GetUpload(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	_ = os.Remove(u.TempPath)
	return p.Store.DeleteUpload(ctx, token)
}
