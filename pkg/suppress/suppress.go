package suppress

import (
	"bytes"

	"github.com/gobwas/glob"

	"github.com/nosecrets/nosecrets/pkg/rules"
)

// Inline directive markers recognized on the matched line or the line
// immediately preceding it. Matched as plain substrings, not requiring
// any particular comment syntax.
const (
	markerIgnore = "@nosecrets-ignore"
	markerShort  = "@nsi"
)

// Decision is the outcome of running a candidate through every
// suppression stage, in order. Reason is empty when nothing suppressed
// the candidate.
type Decision struct {
	Suppressed bool
	Reason     string
}

// Evaluate applies the six suppression stages in their fixed precedence
// order: per-rule path filter, global path ignore, per-rule allow,
// global allow, fingerprint ignore file, inline directive. The first
// stage that suppresses wins; later stages are never consulted.
func Evaluate(cr *rules.CompiledRule, cfg *Config, ignoreFile *IgnoreFile, path string, capture []byte, fingerprint string, content []byte, matchStart int) Decision {
	if matchesPathFilter(cr, path) {
		return Decision{true, "rule path filter"}
	}
	if matchesGlobs(cfg.IgnorePaths, path) {
		return Decision{true, "global path ignore"}
	}
	if matchesRuleAllow(cr, capture) {
		return Decision{true, "rule allow"}
	}
	if matchesConfigAllow(cfg, capture) {
		return Decision{true, "global allow"}
	}
	if matchesIgnoreFile(ignoreFile, fingerprint, path) {
		return Decision{true, "fingerprint ignore file"}
	}
	if matchesInlineDirective(content, matchStart) {
		return Decision{true, "inline directive"}
	}
	return Decision{}
}

func matchesPathFilter(cr *rules.CompiledRule, path string) bool {
	if len(cr.PathInclude) > 0 && !matchesGlobs(cr.PathInclude, path) {
		return true
	}
	if matchesGlobs(cr.PathExclude, path) {
		return true
	}
	return false
}

func matchesGlobs(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func matchesRuleAllow(cr *rules.CompiledRule, capture []byte) bool {
	for _, re := range cr.AllowPattern {
		if re.Match(capture) {
			return true
		}
	}
	if cr.AllowValue != nil {
		if _, ok := cr.AllowValue[string(capture)]; ok {
			return true
		}
	}
	return false
}

func matchesConfigAllow(cfg *Config, capture []byte) bool {
	for _, re := range cfg.AllowPattern {
		if re.Match(capture) {
			return true
		}
	}
	if cfg.AllowValue != nil {
		if _, ok := cfg.AllowValue[string(capture)]; ok {
			return true
		}
	}
	return false
}

func matchesIgnoreFile(f *IgnoreFile, fingerprint, path string) bool {
	if f == nil {
		return false
	}
	for _, e := range f.Entries {
		if e.Suppresses(fingerprint, path) {
			return true
		}
	}
	return false
}

// matchesInlineDirective reports whether the line containing matchStart,
// or the line immediately preceding it, contains either inline marker.
func matchesInlineDirective(content []byte, matchStart int) bool {
	curLine := lineAt(content, matchStart)
	if bytes.Contains(curLine, []byte(markerIgnore)) || bytes.Contains(curLine, []byte(markerShort)) {
		return true
	}

	prevLine := previousLine(content, matchStart)
	if prevLine == nil {
		return false
	}
	return bytes.Contains(prevLine, []byte(markerIgnore)) || bytes.Contains(prevLine, []byte(markerShort))
}

// lineAt returns the maximal [\n\r]-delimited byte range containing offset.
func lineAt(content []byte, offset int) []byte {
	if offset < 0 || offset > len(content) {
		return nil
	}
	start := offset
	for start > 0 && content[start-1] != '\n' && content[start-1] != '\r' {
		start--
	}
	end := offset
	for end < len(content) && content[end] != '\n' && content[end] != '\r' {
		end++
	}
	return content[start:end]
}

// previousLine returns the line immediately before the one containing
// offset, or nil if offset's line is the first line.
func previousLine(content []byte, offset int) []byte {
	start := offset
	for start > 0 && content[start-1] != '\n' && content[start-1] != '\r' {
		start--
	}
	if start == 0 {
		return nil
	}

	// Walk back over the line-ending run (handles \r\n).
	end := start
	for end > 0 && (content[end-1] == '\n' || content[end-1] == '\r') {
		end--
	}
	if end == 0 {
		return nil
	}
	return lineAt(content, end-1)
}
