// Package gitstage loads the currently staged content of a Git index —
// the byte content of files as they appear in the index, independent of
// the working tree — for `nosecrets scan --staged`.
package gitstage

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"

	"github.com/nosecrets/nosecrets/pkg/scan"
)

// Load opens the repository at or above repoPath and returns a
// scan.ScanInput populated with the path and blob content of every
// staged file entry (regular, executable, or symlink, whose blob is the
// link target path; submodule gitlinks are skipped), read directly from
// the Git index rather than the working tree.
func Load(repoPath string) (scan.ScanInput, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return scan.ScanInput{}, fmt.Errorf("opening git repository: %w", err)
	}

	idx, err := repo.Storer.Index()
	if err != nil {
		return scan.ScanInput{}, fmt.Errorf("reading git index: %w", err)
	}

	var input scan.ScanInput
	for _, entry := range idx.Entries {
		if !entry.Mode.IsFile() {
			continue
		}

		blob, err := repo.BlobObject(entry.Hash)
		if err != nil {
			// Index entries can reference blobs not yet in the object
			// store; skip rather than fail the whole staged scan.
			continue
		}

		r, err := blob.Reader()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(r)
		_ = r.Close()
		if err != nil {
			continue
		}

		input.Files = append(input.Files, scan.FileSource{Path: entry.Name, Inline: content})
	}

	return input, nil
}
