//go:build !unix

package scan

import (
	"io"
	"os"
)

// readLarge falls back to a buffered read on platforms without
// golang.org/x/sys/unix mmap support. Memory mapping is a performance
// optimization here, not a correctness requirement, so a plain read
// satisfies the size policy on these platforms.
func readLarge(f *os.File, size int64) ([]byte, func(), error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, nil, err
	}
	return buf, func() {}, nil
}
