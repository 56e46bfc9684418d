package store

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Sweeper reaps expired token records on an interval. Sweeps are
// best-effort and idempotent: a token deleted here while a request holds
// it simply resolves as not-found for the loser.
type Sweeper struct {
	Store  *Store
	Logger *slog.Logger

	SessionMaxIdle time.Duration
	DownloadMaxAge time.Duration
	UploadMaxAge   time.Duration
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (sw *Sweeper) Run(ctx context.Context, interval time.Duration) {
	sw.Sweep(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sw.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs all expiry passes once.
func (sw *Sweeper) Sweep(ctx context.Context) {
	sw.sweepSessions(ctx)
	sw.sweepDownloads(ctx)
	sw.sweepUploads(ctx)
}

func (sw *Sweeper) sweepSessions(ctx context.Context) {
	cutoff := time.Now().Add(-sw.SessionMaxIdle).UnixMilli()
	n, err := sw.Store.DeleteSessionsIdleSince(ctx, cutoff)
	if err != nil {
		sw.Logger.Error("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		sw.Logger.Info("removed unused sessions", "count", n)
	}
}

func (sw *Sweeper) sweepDownloads(ctx context.Context) {
	cutoff := time.Now().Add(-sw.DownloadMaxAge).UnixMilli()
	n, err := sw.Store.DeleteDownloadsCreatedBefore(ctx, cutoff)
	if err != nil {
		sw.Logger.Error("download sweep failed", "error", err)
		return
	}
	if n > 0 {
		sw.Logger.Info("removed old download links", "count", n)
	}
}

// sweepUploads removes upload records whose temp file is gone or whose
// last write is older than the threshold, deleting the temp file too.
func (sw *Sweeper) sweepUploads(ctx context.Context) {
	uploads, err := sw.Store.ListUploads(ctx)
	if err != nil {
		sw.Logger.Error("upload sweep failed", "error", err)
		return
	}
	oldest := time.Now().Add(-sw.UploadMaxAge)
	var removed int64
	for _, u := range uploads {
		st, err := os.Stat(u.TempPath)
		stale := err != nil || st.ModTime().Before(oldest)
		if !stale {
			continue
		}
		_ = os.Remove(u.TempPath)
		if err := sw.Store.DeleteUpload(ctx, u.Token); err != nil {
			sw.Logger.Error("upload sweep delete failed", "token", u.Token, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		sw.Logger.Info("removed old unfinished uploads", "count", removed)
	}
}
