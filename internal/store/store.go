// Package store persists token-keyed state: sessions, in-flight uploads,
// and download link sets. SQLite is the single shared mutable resource;
// the filesystem itself stays the source of truth for file contents.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite token tables.
type Store struct {
	sql *sql.DB
}

// Open opens (creating if needed) the token store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}

	// modernc SQLite uses a URI-like DSN; plain file paths are ok.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", path)
	s, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	s.SetMaxOpenConns(1)
	s.SetMaxIdleConns(1)
	s.SetConnMaxLifetime(0)

	st := &Store{sql: s}
	if err := st.ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := st.setPragmas(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := st.initSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	return st, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.sql.Close()
}

func (s *Store) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.sql.PingContext(ctx)
}

func (s *Store) setPragmas(ctx context.Context) error {
	// WAL improves read concurrency for listing while transfers run.
	if _, err := s.sql.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return err
	}
	_, err := s.sql.ExecContext(ctx, "PRAGMA foreign_keys = ON;")
	return err
}

func (s *Store) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  created INTEGER NOT NULL,
  accessed INTEGER NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS downloads (
  token TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  vault TEXT NOT NULL,
  created INTEGER NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS download_files (
  token TEXT NOT NULL,
  path TEXT NOT NULL,
  PRIMARY KEY (token, path),
  FOREIGN KEY (token) REFERENCES downloads(token) ON DELETE CASCADE
)`,
		`CREATE TABLE IF NOT EXISTS uploads (
  token TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  vault TEXT NOT NULL,
  path_temp TEXT NOT NULL,
  path_dest TEXT NOT NULL,
  size INTEGER NOT NULL
)`,
	}
	for _, stmt := range stmts {
		if _, err := s.sql.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
