// Package prefilter implements the multi-pattern substring automaton that
// cheaply narrows a file's candidate rule set before any regex runs.
package prefilter

import (
	"sort"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// Automaton maps keyword hits over a file's bytes back to the set of
// rule indices that keyword belongs to. It is built once per
// CompiledRuleSet and shared read-only across all scan workers.
type Automaton struct {
	ac          ahocorasick.AhoCorasick
	patternToID []int // pattern index -> rule index (may repeat across keywords)
	alwaysOn    []int // rule indices with no keywords, always candidate
	empty       bool
}

// Keyword is a single lowercase literal contributed by a rule.
type Keyword struct {
	RuleIndex int
	Literal   string
}

// Build compiles the shared automaton from every rule's keyword set.
// Rules with no keywords are tracked separately as "always-on" and are
// never consulted through the automaton.
func Build(keywords []Keyword, alwaysOn []int) *Automaton {
	a := &Automaton{alwaysOn: alwaysOn}

	if len(keywords) == 0 {
		a.empty = true
		return a
	}

	patterns := make([]string, len(keywords))
	a.patternToID = make([]int, len(keywords))
	for i, kw := range keywords {
		patterns[i] = kw.Literal
		a.patternToID[i] = kw.RuleIndex
	}

	// StandardMatch is required for IterOverlappingByte below: the library
	// panics if overlapping iteration is attempted under any other match
	// kind. A presence-only prefilter has no use for leftmost-first/longest
	// disambiguation anyway — every keyword that occurs anywhere is a hit.
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.StandardMatch,
		DFA:                  true,
	})
	a.ac = builder.Build(patterns)
	return a
}

// CandidateRules returns the deduplicated, ascending-sorted set of rule
// indices that are candidates for the given file content: every rule
// whose keyword appears anywhere in content, plus every always-on rule.
func (a *Automaton) CandidateRules(content []byte) []int {
	seen := make(map[int]struct{}, len(a.alwaysOn)+8)
	for _, idx := range a.alwaysOn {
		seen[idx] = struct{}{}
	}

	if !a.empty && len(content) > 0 {
		iter := a.ac.IterOverlappingByte(content)
		for m := iter.Next(); m != nil; m = iter.Next() {
			seen[a.patternToID[m.Pattern()]] = struct{}{}
		}
	}

	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
