// Query helpers for the token tables. Lookups return (record, ok, error)
// so "not found" stays an ordinary variant rather than an error: a reaped
// or concurrently deleted token simply reads as absent.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// nowMillis returns the current Unix timestamp in milliseconds.
func nowMillis() int64 { return time.Now().UnixMilli() }

// CreateSession inserts a new session for username under the given token.
func (s *Store) CreateSession(ctx context.Context, token, username string) error {
	if token == "" || username == "" {
		return errors.New("token and username are required")
	}
	now := nowMillis()
	_, err := s.sql.ExecContext(ctx, `
INSERT INTO sessions(token, username, created, accessed) VALUES(?, ?, ?, ?)
`, token, username, now, now)
	return err
}

// TouchSession looks up a session and bumps its accessed time.
func (s *Store) TouchSession(ctx context.Context, token string) (*Session, bool, error) {
	var sess Session
	err := s.sql.QueryRowContext(ctx, `
SELECT token, username, created, accessed FROM sessions WHERE token=?
`, token).Scan(&sess.Token, &sess.Username, &sess.Created, &sess.Accessed)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	sess.Accessed = nowMillis()
	_, err = s.sql.ExecContext(ctx, `UPDATE sessions SET accessed=? WHERE token=?`, sess.Accessed, token)
	if err != nil {
		return nil, false, err
	}
	return &sess, true, nil
}

// DeleteSession removes a session by token.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token is required")
	}
	_, err := s.sql.ExecContext(ctx, `DELETE FROM sessions WHERE token=?`, token)
	return err
}

// DeleteSessionsIdleSince deletes sessions last accessed before cutoff
// (Unix milliseconds) and reports how many were removed.
func (s *Store) DeleteSessionsIdleSince(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.sql.ExecContext(ctx, `DELETE FROM sessions WHERE accessed < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateUpload records a new in-flight upload.
func (s *Store) CreateUpload(ctx context.Context, u Upload) error {
	if u.Token == "" || u.Username == "" || u.Vault == "" || u.TempPath == "" || u.DestPath == "" {
		return errors.New("invalid upload record")
	}
	if u.Size <= 0 {
		return errors.New("upload size must be positive")
	}
	_, err := s.sql.ExecContext(ctx, `
INSERT INTO uploads(token, username, vault, path_temp, path_dest, size)
VALUES(?, ?, ?, ?, ?, ?)
`, u.Token, u.Username, u.Vault, u.TempPath, u.DestPath, u.Size)
	return err
}

// GetUpload looks up an in-flight upload by token.
func (s *Store) GetUpload(ctx context.Context, token string) (*Upload, bool, error) {
	var u Upload
	err := s.sql.QueryRowContext(ctx, `
SELECT token, username, vault, path_temp, path_dest, size FROM uploads WHERE token=?
`, token).Scan(&u.Token, &u.Username, &u.Vault, &u.TempPath, &u.DestPath, &u.Size)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &u, true, nil
}

// DeleteUpload removes an upload record by token.
func (s *Store) DeleteUpload(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token is required")
	}
	_, err := s.sql.ExecContext(ctx, `DELETE FROM uploads WHERE token=?`, token)
	return err
}

// ListUploads returns every in-flight upload record.
func (s *Store) ListUploads(ctx context.Context) ([]Upload, error) {
	rows, err := s.sql.QueryContext(ctx, `
SELECT token, username, vault, path_temp, path_dest, size FROM uploads
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.Token, &u.Username, &u.Vault, &u.TempPath, &u.DestPath, &u.Size); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CreateDownload inserts a new download link record.
func (s *Store) CreateDownload(ctx context.Context, token, username, vaultName string) error {
	if token == "" || username == "" || vaultName == "" {
		return errors.New("token, username, and vault are required")
	}
	_, err := s.sql.ExecContext(ctx, `
INSERT INTO downloads(token, username, vault, created) VALUES(?, ?, ?, ?)
`, token, username, vaultName, nowMillis())
	return err
}

// GetDownload looks up a download link by token.
func (s *Store) GetDownload(ctx context.Context, token string) (*Download, bool, error) {
	var d Download
	err := s.sql.QueryRowContext(ctx, `
SELECT token, username, vault, created FROM downloads WHERE token=?
`, token).Scan(&d.Token, &d.Username, &d.Vault, &d.Created)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

// AddDownloadFiles attaches vault-relative paths to a download link.
// Duplicate paths for the same token are ignored.
func (s *Store) AddDownloadFiles(ctx context.Context, token string, paths []string) error {
	if token == "" {
		return errors.New("token is required")
	}
	for _, p := range paths {
		if _, err := s.sql.ExecContext(ctx, `
INSERT OR IGNORE INTO download_files(token, path) VALUES(?, ?)
`, token, p); err != nil {
			return err
		}
	}
	return nil
}

// ListDownloadFiles returns the paths registered under a download token.
func (s *Store) ListDownloadFiles(ctx context.Context, token string) ([]string, error) {
	rows, err := s.sql.QueryContext(ctx, `
SELECT path FROM download_files WHERE token=? ORDER BY path ASC
`, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteDownloadsCreatedBefore deletes downloads older than cutoff (Unix
// milliseconds); associated file rows cascade.
func (s *Store) DeleteDownloadsCreatedBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.sql.ExecContext(ctx, `DELETE FROM downloads WHERE created < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
