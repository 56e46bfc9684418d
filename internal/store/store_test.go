// Package store tests verify token record CRUD and sweeping.
package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// TestSessionLifecycle covers create, touch, and delete.
func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if err := s.CreateSession(ctx, "tok1", "alice"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	sess, ok, err := s.TouchSession(ctx, "tok1")
	if err != nil {
		t.Fatalf("TouchSession: %v", err)
	}
	if !ok || sess.Username != "alice" {
		t.Fatalf("unexpected session: %+v ok=%v", sess, ok)
	}
	if sess.Accessed < sess.Created {
		t.Fatalf("accessed should not precede created")
	}

	if err := s.DeleteSession(ctx, "tok1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, ok, _ := s.TouchSession(ctx, "tok1"); ok {
		t.Fatalf("deleted session should not resolve")
	}
}

// TestTouchUnknownSession resolves as not found, not an error.
func TestTouchUnknownSession(t *testing.T) {
	s := testStore(t)
	_, ok, err := s.TouchSession(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("TouchSession: %v", err)
	}
	if ok {
		t.Fatalf("unknown token should not resolve")
	}
}

// TestSessionIdleExpiry deletes sessions idle past the cutoff.
func TestSessionIdleExpiry(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if err := s.CreateSession(ctx, "old", "alice"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	n, err := s.DeleteSessionsIdleSince(ctx, time.Now().Add(time.Second).UnixMilli())
	if err != nil {
		t.Fatalf("DeleteSessionsIdleSince: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reaped session, got %d", n)
	}
	if _, ok, _ := s.TouchSession(ctx, "old"); ok {
		t.Fatalf("expired session should be gone")
	}
}

// TestUploadCRUD covers upload record round trips.
func TestUploadCRUD(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	up := Upload{
		Token:    "uptok",
		Username: "alice",
		Vault:    "team",
		TempPath: "/data/team/a.txt.uptok",
		DestPath: "/data/team/a.txt",
		Size:     1234,
	}
	if err := s.CreateUpload(ctx, up); err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	got, ok, err := s.GetUpload(ctx, "uptok")
	if err != nil || !ok {
		t.Fatalf("GetUpload: ok=%v err=%v", ok, err)
	}
	if *got != up {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if err := s.DeleteUpload(ctx, "uptok"); err != nil {
		t.Fatalf("DeleteUpload: %v", err)
	}
	if _, ok, _ := s.GetUpload(ctx, "uptok"); ok {
		t.Fatalf("deleted upload should not resolve")
	}
}

// TestCreateUploadRejectsInvalidSize requires a positive declared size.
func TestCreateUploadRejectsInvalidSize(t *testing.T) {
	s := testStore(t)
	err := s.CreateUpload(context.Background(), Upload{
		Token: "t", Username: "u", Vault: "v", TempPath: "tp", DestPath: "dp", Size: 0,
	})
	if err == nil {
		t.Fatalf("expected zero size to be rejected")
	}
}

// TestDownloadCascade deletes file rows together with their download.
func TestDownloadCascade(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	if err := s.CreateDownload(ctx, "dl1", "alice", "team"); err != nil {
		t.Fatalf("CreateDownload: %v", err)
	}
	if err := s.AddDownloadFiles(ctx, "dl1", []string{"/a.txt", "/b.txt", "/a.txt"}); err != nil {
		t.Fatalf("AddDownloadFiles: %v", err)
	}
	paths, err := s.ListDownloadFiles(ctx, "dl1")
	if err != nil {
		t.Fatalf("ListDownloadFiles: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("duplicate path should be ignored, got %v", paths)
	}

	n, err := s.DeleteDownloadsCreatedBefore(ctx, time.Now().Add(time.Second).UnixMilli())
	if err != nil {
		t.Fatalf("DeleteDownloadsCreatedBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reaped download, got %d", n)
	}
	paths, err = s.ListDownloadFiles(ctx, "dl1")
	if err != nil {
		t.Fatalf("ListDownloadFiles: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("file rows should cascade, got %v", paths)
	}
}

// TestSweeperRemovesStaleUploads reaps uploads with missing or old temp files.
func TestSweeperRemovesStaleUploads(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	tmp := t.TempDir()

	// Upload with a live temp file stays.
	live := filepath.Join(tmp, "live.part")
	if err := os.WriteFile(live, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.CreateUpload(ctx, Upload{Token: "live", Username: "u", Vault: "v", TempPath: live, DestPath: live + ".dst", Size: 1}); err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	// Upload whose temp file is missing goes away.
	if err := s.CreateUpload(ctx, Upload{Token: "gone", Username: "u", Vault: "v", TempPath: filepath.Join(tmp, "missing.part"), DestPath: "d", Size: 1}); err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}

	sw := &Sweeper{
		Store:          s,
		Logger:         testLogger(),
		SessionMaxIdle: time.Hour,
		DownloadMaxAge: time.Hour,
		UploadMaxAge:   time.Hour,
	}
	sw.Sweep(ctx)

	if _, ok, _ := s.GetUpload(ctx, "live"); !ok {
		t.Fatalf("fresh upload should survive the sweep")
	}
	if _, ok, _ := s.GetUpload(ctx, "gone"); ok {
		t.Fatalf("upload without temp file should be reaped")
	}
}
