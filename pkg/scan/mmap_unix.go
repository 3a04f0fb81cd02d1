//go:build unix

package scan

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// readLarge memory-maps a file read-only, the approach this pack's
// YARA-style scanner uses for its own ScanFile path, avoiding loading
// large files entirely into the heap.
func readLarge(f *os.File, size int64) ([]byte, func(), error) {
	if size == 0 {
		return nil, func() {}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap: %w", err)
	}
	return data, func() { _ = unix.Munmap(data) }, nil
}
