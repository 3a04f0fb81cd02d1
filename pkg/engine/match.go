// Package engine implements the Matcher, Validator, and Fingerprinter
// pipeline stages: turning prefiltered candidate rules into validated,
// fingerprinted candidates ready for suppression.
package engine

import (
	"github.com/nosecrets/nosecrets/pkg/rules"
)

// Candidate is a regex match prior to validation and suppression.
type Candidate struct {
	Path    string
	RuleID  string
	Start   int // byte offset of the full match, for line/column derivation
	End     int
	Capture []byte
}

// MatchEngine runs each candidate rule's pattern across a file's full
// content and extracts the designated capture group. Implementations
// never localize to prefilter keyword offsets — those are
// correctness-preserving hints only, used solely to select which
// rules to run, not where to look within the file.
type MatchEngine interface {
	// Match returns every Candidate produced by running the given
	// rules against content. ruleIdx lists the candidate rule indices
	// (from the prefilter) to evaluate; crs.Rules[i] for i in ruleIdx.
	Match(crs *rules.CompiledRuleSet, ruleIdx []int, path string, content []byte) []Candidate

	// Name identifies the engine for display and CLI selection.
	Name() string
}

// GoEngine runs the Go standard library's RE2-derived regexp package.
// This is the default engine: linear-time, no backtracking, and
// available without any external runtime dependency.
type GoEngine struct{}

// NewGoEngine constructs the default regexp-based match engine.
func NewGoEngine() *GoEngine { return &GoEngine{} }

func (e *GoEngine) Name() string { return "go" }

func (e *GoEngine) Match(crs *rules.CompiledRuleSet, ruleIdx []int, path string, content []byte) []Candidate {
	var out []Candidate
	for _, idx := range ruleIdx {
		cr := crs.Rules[idx]
		locs := cr.Regex.FindAllSubmatchIndex(content, -1)
		for _, loc := range locs {
			out = append(out, candidateFromLoc(cr, path, content, loc)...)
		}
	}
	return out
}

// candidateFromLoc extracts the designated capture group from one
// FindAllSubmatchIndex match. If the regex fails to provide the
// designated capture on this particular match, it is discarded
// silently, per the Matcher's contract.
func candidateFromLoc(cr *rules.CompiledRule, path string, content []byte, loc []int) []Candidate {
	groupStart := 2 * cr.Capture
	groupEnd := groupStart + 1
	if groupEnd >= len(loc) || loc[groupStart] < 0 || loc[groupEnd] < 0 {
		return nil
	}

	capture := make([]byte, loc[groupEnd]-loc[groupStart])
	copy(capture, content[loc[groupStart]:loc[groupEnd]])

	return []Candidate{{
		Path:    path,
		RuleID:  cr.ID,
		Start:   loc[0],
		End:     loc[1],
		Capture: capture,
	}}
}
