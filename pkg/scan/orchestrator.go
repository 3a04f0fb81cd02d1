package scan

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nosecrets/nosecrets/pkg/engine"
	"github.com/nosecrets/nosecrets/pkg/rules"
	"github.com/nosecrets/nosecrets/pkg/suppress"
)

// DefaultPerFileTimeout is the per-file wall-clock cap enforced around
// the Matcher stage: if a pathological regex blows past this, the
// file's results are discarded and a RuleTimeout diagnostic is
// surfaced, but the scan continues with the next file.
const DefaultPerFileTimeout = 5 * time.Second

// ErrInterrupted is returned by Scan when the context is canceled
// (SIGINT) before the scan completes.
var ErrInterrupted = errors.New("scan interrupted")

// Scanner drives the end-to-end pipeline: Prefilter, Matcher, Validator,
// Suppressor, Fingerprinter, dedup, sort, per the Scan Orchestrator
// component's contract. The CompiledRuleSet and Config are shared
// read-only by every worker; no mutable state is touched during the
// scan phase beyond each worker's private scratch buffers.
type Scanner struct {
	Rules      *rules.CompiledRuleSet
	Config     *suppress.Config
	IgnoreFile *suppress.IgnoreFile
	Engine     engine.MatchEngine

	WorkerCount    int
	MmapThreshold  int64
	PerFileTimeout time.Duration
}

// NewScanner constructs a Scanner with the default worker width,
// mmap threshold, and per-file timeout.
func NewScanner(crs *rules.CompiledRuleSet, cfg *suppress.Config, ignoreFile *suppress.IgnoreFile, eng engine.MatchEngine) *Scanner {
	return &Scanner{
		Rules:          crs,
		Config:         cfg,
		IgnoreFile:     ignoreFile,
		Engine:         eng,
		WorkerCount:    runtime.NumCPU(),
		MmapThreshold:  DefaultMmapThreshold,
		PerFileTimeout: DefaultPerFileTimeout,
	}
}

// Result is the aggregate, deterministically ordered outcome of a scan.
type Result struct {
	Findings     []Finding
	Diagnostics  []Diagnostic
	FilesScanned int64
	FilesSkipped int64
	TotalBytes   int64
	Interrupted  bool
}

type perFileResult struct {
	findings   []Finding
	diagnostic *Diagnostic
	bytes      int64
	skipped    bool
}

// Scan walks input, dispatching each file to a worker pool of width
// min(WorkerCount, len(input.Files)). Workers share no mutable state; a
// file is scanned to completion or skipped as a unit. If ctx is
// canceled, the orchestrator stops dispatching new files and returns
// ErrInterrupted with an empty Findings slice — per spec, no partial
// findings are ever emitted on interrupt.
func (s *Scanner) Scan(ctx context.Context, input ScanInput) (Result, error) {
	width := s.WorkerCount
	if width <= 0 {
		width = 1
	}
	if width > len(input.Files) {
		width = len(input.Files)
	}
	if width < 1 {
		width = 1
	}

	jobs := make(chan FileSource)
	results := make(chan perFileResult, len(input.Files))

	var wg sync.WaitGroup
	for i := 0; i < width; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				results <- s.scanOne(src)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, src := range input.Files {
			select {
			case <-ctx.Done():
				return
			case jobs <- src:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var all Result
	var unsorted []Finding

	for r := range results {
		if r.skipped {
			all.FilesSkipped++
			continue
		}
		all.FilesScanned++
		all.TotalBytes += r.bytes
		if r.diagnostic != nil {
			all.Diagnostics = append(all.Diagnostics, *r.diagnostic)
			continue
		}
		unsorted = append(unsorted, r.findings...)
	}

	if ctx.Err() != nil {
		all.Interrupted = true
		all.Findings = nil
		return all, ErrInterrupted
	}

	sortFindings(unsorted)
	all.Findings = dedupFindings(unsorted)
	return all, nil
}

// dedupFindings keeps the first occurrence of each (rule_id, path,
// fingerprint, line) key, in the already-sorted (path, line, column,
// rule_id) order. Duplicates across different paths are retained —
// only exact (rule, path, fingerprint, line) repeats collapse.
func dedupFindings(sorted []Finding) []Finding {
	seen := make(map[string]struct{}, len(sorted))
	out := make([]Finding, 0, len(sorted))
	for _, f := range sorted {
		key := f.RuleID + "\x00" + f.Path + "\x00" + f.Fingerprint + "\x00" + itoa(f.Line)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

func (s *Scanner) scanOne(src FileSource) perFileResult {
	content, release, err := readContent(src, s.MmapThreshold)
	if err != nil {
		return perFileResult{diagnostic: &Diagnostic{Kind: DiagFileReadError, Path: src.Path, Err: err}}
	}
	defer release()

	if isBinary(content) {
		return perFileResult{skipped: true}
	}

	ruleIdx := s.Rules.Prefilter.CandidateRules(content)
	if len(ruleIdx) == 0 {
		return perFileResult{bytes: int64(len(content))}
	}

	candidates, diag := matchWithTimeout(s.Engine, s.Rules, ruleIdx, src.Path, content, s.PerFileTimeout)
	if diag != nil {
		return perFileResult{bytes: int64(len(content)), diagnostic: diag}
	}

	findings := make([]Finding, 0, len(candidates))
	for _, c := range candidates {
		cr := s.Rules.ByID[c.RuleID]
		if !engine.Validate(cr, c.Capture) {
			continue
		}

		fp := engine.Fingerprint(c.Capture)
		decision := suppress.Evaluate(cr, s.Config, s.IgnoreFile, c.Path, c.Capture, fp, content, c.Start)
		if decision.Suppressed {
			continue
		}

		line, col := lineColumn(content, c.Start)
		findings = append(findings, Finding{
			RuleID:          cr.ID,
			RuleName:        cr.Name,
			Severity:        cr.Severity,
			Path:            c.Path,
			Line:            line,
			Column:          col,
			Fingerprint:     fp,
			RedactedPreview: engine.RedactedPreview(c.Capture),
			rawSecret:       c.Capture,
		})
	}

	return perFileResult{findings: findings, bytes: int64(len(content))}
}

// matchWithTimeout runs the match engine rule-by-rule in a background
// goroutine so a pathological pattern can be bounded by timeout without
// the regex engine itself supporting cancellation. If the deadline
// passes, the whole file's result is discarded and a RuleTimeout
// diagnostic names whichever rule was executing when the timer fired.
func matchWithTimeout(eng engine.MatchEngine, crs *rules.CompiledRuleSet, ruleIdx []int, path string, content []byte, timeout time.Duration) ([]engine.Candidate, *Diagnostic) {
	var current atomic.Value
	current.Store("")

	done := make(chan []engine.Candidate, 1)
	go func() {
		var all []engine.Candidate
		for _, idx := range ruleIdx {
			current.Store(crs.Rules[idx].ID)
			all = append(all, eng.Match(crs, []int{idx}, path, content)...)
		}
		done <- all
	}()

	select {
	case res := <-done:
		return res, nil
	case <-time.After(timeout):
		ruleID, _ := current.Load().(string)
		return nil, &Diagnostic{Kind: DiagRuleTimeout, Path: path, RuleID: ruleID}
	}
}

func sortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.RuleID < b.RuleID
	})
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
