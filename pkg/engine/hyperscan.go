package engine

import (
	"fmt"
	"sync"

	"github.com/flier/gohs/hyperscan"

	"github.com/nosecrets/nosecrets/pkg/rules"
)

// HyperscanEngine uses Hyperscan/Vectorscan to quickly decide which
// candidate rules actually occur in a file before paying for a full
// regexp.FindAllSubmatchIndex pass. Hyperscan reports no capture
// groups, so once it confirms a rule fired the engine still runs that
// rule's Go regex over the whole file to extract the designated
// capture, exactly as GoEngine does for every candidate rule.
type HyperscanEngine struct {
	database    hyperscan.BlockDatabase
	scratchPool sync.Pool
	idToRule    []int // hyperscan pattern id -> rule index in the compiled set this engine was built from
}

// NewHyperscanEngine compiles a Hyperscan database over every rule in
// crs. Returns an error if any pattern fails to compile under
// Hyperscan's PCRE-subset syntax.
func NewHyperscanEngine(crs *rules.CompiledRuleSet) (*HyperscanEngine, error) {
	patterns := make([]*hyperscan.Pattern, len(crs.Rules))
	idToRule := make([]int, len(crs.Rules))
	for i, cr := range crs.Rules {
		p := hyperscan.NewPattern(cr.Pattern, hyperscan.DotAll|hyperscan.SingleMatch)
		p.Id = i
		patterns[i] = p
		idToRule[i] = i
	}

	for i, p := range patterns {
		if _, err := hyperscan.NewBlockDatabase(p); err != nil {
			return nil, &rules.ErrInvalidRule{ID: crs.Rules[i].ID, Cause: fmt.Errorf("compiling hyperscan pattern: %w", err)}
		}
	}

	db, err := hyperscan.NewBlockDatabase(patterns...)
	if err != nil {
		return nil, fmt.Errorf("compiling hyperscan database: %w", err)
	}

	e := &HyperscanEngine{database: db, idToRule: idToRule}
	e.scratchPool = sync.Pool{
		New: func() any {
			scratch, err := hyperscan.NewManagedScratch(db)
			if err != nil {
				return nil
			}
			return scratch
		},
	}
	return e, nil
}

func (e *HyperscanEngine) Name() string { return "hyperscan" }

// Close releases the Hyperscan database.
func (e *HyperscanEngine) Close() error {
	if e.database != nil {
		return e.database.Close()
	}
	return nil
}

func (e *HyperscanEngine) Match(crs *rules.CompiledRuleSet, ruleIdx []int, path string, content []byte) []Candidate {
	if e.database == nil {
		return nil
	}

	scratchIface := e.scratchPool.Get()
	if scratchIface == nil {
		return nil
	}
	scratch := scratchIface.(*hyperscan.Scratch)
	defer e.scratchPool.Put(scratch)

	want := make(map[int]struct{}, len(ruleIdx))
	for _, idx := range ruleIdx {
		want[idx] = struct{}{}
	}

	fired := make(map[int]struct{}, len(ruleIdx))
	_ = e.database.Scan(content, scratch, func(id uint, from, to uint64, flags uint, data any) error {
		ruleIdx := e.idToRule[id]
		if _, ok := want[ruleIdx]; ok {
			fired[ruleIdx] = struct{}{}
		}
		return nil
	}, nil)

	var out []Candidate
	for idx := range fired {
		cr := crs.Rules[idx]
		locs := cr.Regex.FindAllSubmatchIndex(content, -1)
		for _, loc := range locs {
			out = append(out, candidateFromLoc(cr, path, content, loc)...)
		}
	}
	return out
}
