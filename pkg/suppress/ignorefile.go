package suppress

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// IgnoreEntry is a single parsed line from a .nosecretsignore file:
// either "nsi_<hex>" (applies to all paths) or "nsi_<hex>:<glob>".
type IgnoreEntry struct {
	HexPrefix string // lowercase, 12-64 hex chars, no "nsi_" prefix
	PathGlob  glob.Glob
	rawGlob   string
}

// IgnoreFile is the parsed, deduplicated set of entries from
// .nosecretsignore. Interactive editing appends lines without sorting
// or deduplicating, so the parser tolerates (and silently collapses)
// duplicates — it is treated as a set, never an ordered list.
type IgnoreFile struct {
	Entries []IgnoreEntry
}

var ignoreLineRe = regexp.MustCompile(`^nsi_[0-9a-f]{12,64}(:(.+))?$`)

// ParseIgnoreFile parses the line-oriented .nosecretsignore format.
// Blank lines and lines starting with "#" are comments. Malformed lines
// produce a warning string but never abort parsing.
func ParseIgnoreFile(data []byte) (*IgnoreFile, []string) {
	f := &IgnoreFile{}
	var warnings []string
	seen := make(map[string]struct{})

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		m := ignoreLineRe.FindStringSubmatch(trimmed)
		if m == nil {
			warnings = append(warnings, fmt.Sprintf("line %d: malformed ignore entry %q", i+1, trimmed))
			continue
		}

		hexPart := strings.TrimPrefix(trimmed, "nsi_")
		hexPrefix := hexPart
		var rawGlob string
		var g glob.Glob
		if colon := strings.IndexByte(hexPart, ':'); colon != -1 {
			hexPrefix = hexPart[:colon]
			rawGlob = hexPart[colon+1:]
			compiled, err := glob.Compile(rawGlob, '/')
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("line %d: malformed path glob %q: %v", i+1, rawGlob, err))
				continue
			}
			g = compiled
		}

		key := strings.ToLower(hexPrefix) + ":" + rawGlob
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		f.Entries = append(f.Entries, IgnoreEntry{
			HexPrefix: strings.ToLower(hexPrefix),
			PathGlob:  g,
			rawGlob:   rawGlob,
		})
	}

	return f, warnings
}

// Suppresses reports whether this entry suppresses a finding with the
// given fingerprint at the given path. Fingerprints are always a fixed
// 12 hex chars, but an ignore entry may carry a longer hash (up to 64
// chars), so the shorter of the two hex strings must be a prefix of the
// longer one. If the entry carries a path glob, path must match it too.
func (e IgnoreEntry) Suppresses(fingerprintHex, path string) bool {
	fp := strings.ToLower(strings.TrimPrefix(fingerprintHex, "nsi_"))
	if !hexPrefixMatch(fp, e.HexPrefix) {
		return false
	}
	if e.PathGlob == nil {
		return true
	}
	return e.PathGlob.Match(path)
}

// hexPrefixMatch reports whether one hex string is a prefix of the
// other, regardless of which is longer.
func hexPrefixMatch(a, b string) bool {
	if len(a) <= len(b) {
		return strings.HasPrefix(b, a)
	}
	return strings.HasPrefix(a, b)
}

// Append serializes a new ignore entry line, used by the `ignore`
// subcommand. Appending is tolerant of existing duplicates by design —
// the file is read as a set — but avoids writing an exact duplicate
// line when one already exists.
func (f *IgnoreFile) Append(fingerprint, pathGlob string) (line string, isDuplicate bool) {
	hex := strings.ToLower(strings.TrimPrefix(fingerprint, "nsi_"))
	line = "nsi_" + hex
	if pathGlob != "" {
		line += ":" + pathGlob
	}

	for _, e := range f.Entries {
		existing := "nsi_" + e.HexPrefix
		if e.rawGlob != "" {
			existing += ":" + e.rawGlob
		}
		if existing == line {
			return line, true
		}
	}
	return line, false
}
