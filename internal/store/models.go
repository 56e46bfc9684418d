// Package store defines the persisted token records.
package store

// Session is an authenticated login. Accessed is bumped on every
// authenticated request; sessions idle past the configured window are
// reaped. Timestamps are Unix milliseconds.
type Session struct {
	Token    string
	Username string
	Created  int64
	Accessed int64
}

// Upload is an in-flight chunked upload staged in a sidecar temp file.
// TempPath is always DestPath suffixed with the token, which keeps the
// temp file in the destination's directory and therefore inside the vault.
type Upload struct {
	Token    string
	Username string
	Vault    string
	TempPath string
	DestPath string
	Size     int64
}

// Download is a shareable, time-limited link over a set of vault paths.
// The member paths live in download_files and cascade on delete.
type Download struct {
	Token    string
	Username string
	Vault    string
	Created  int64
}
