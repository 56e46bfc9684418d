//go:build !unix

package fsutil

// DiskStats reports live filesystem capacity for the given path.
type DiskStats struct {
	TotalBytes     uint64
	AvailableBytes uint64
	UsedBytes      uint64
}

// Disk is unsupported on this platform and reports zero capacity, which
// callers treat as "no space".
func Disk(path string) DiskStats {
	return DiskStats{}
}
