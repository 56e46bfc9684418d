//go:build unix

package fsutil

import "golang.org/x/sys/unix"

// DiskStats reports live filesystem capacity for the given path.
// Quota checks read these values fresh on every call; nothing is cached
// or reserved.
type DiskStats struct {
	TotalBytes     uint64
	AvailableBytes uint64
	UsedBytes      uint64
}

// Disk returns capacity statistics for the filesystem containing path.
// Errors degrade to all-zero stats, which callers treat as "no space".
func Disk(path string) DiskStats {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DiskStats{}
	}
	total := st.Blocks * uint64(st.Bsize)
	avail := st.Bavail * uint64(st.Bsize)
	return DiskStats{
		TotalBytes:     total,
		AvailableBytes: avail,
		UsedBytes:      total - avail,
	}
}
