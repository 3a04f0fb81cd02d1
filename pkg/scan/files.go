package scan

import (
	"bytes"
	"fmt"
	"os"
)

// binarySniffLen is the prefix length inspected for a NUL byte when
// deciding whether a file is binary.
const binarySniffLen = 8 * 1024

// DefaultMmapThreshold is the file size at or above which a file is
// memory-mapped instead of buffered.
const DefaultMmapThreshold = 4 * 1024 * 1024

// isBinary reports whether the first 8 KiB of content contain a NUL
// byte. Binary files are skipped entirely and never reported.
func isBinary(content []byte) bool {
	n := len(content)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(content[:n], 0) != -1
}

// readContent loads a FileSource's bytes per the size policy: files at
// or above mmapThreshold are memory-mapped read-only, smaller files are
// buffered. Returns the content, a release function that must be
// called when the caller is done with it, and any read error.
func readContent(src FileSource, mmapThreshold int64) (content []byte, release func(), err error) {
	if src.Inline != nil {
		return src.Inline, func() {}, nil
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", src.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", src.Path, err)
	}

	if info.Size() >= mmapThreshold {
		return readLarge(f, info.Size())
	}

	buf := make([]byte, info.Size())
	if _, err := f.ReadAt(buf, 0); err != nil && info.Size() > 0 {
		return nil, nil, fmt.Errorf("reading %s: %w", src.Path, err)
	}
	return buf, func() {}, nil
}

// lineColumn converts a byte offset into a 1-based (line, column) pair.
// Column counts bytes, not runes, consistent with the finding data
// model's byte-oriented column field.
func lineColumn(content []byte, offset int) (line, column int) {
	line = 1
	lineStart := 0
	for i := 0; i < offset && i < len(content); i++ {
		if content[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return line, offset - lineStart + 1
}
