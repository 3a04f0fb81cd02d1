// Package scan implements the Scan Orchestrator: it walks or receives a
// ScanInput, dispatches per-file work across a worker pool, enforces
// the binary-skip and memory-mapping policy, deduplicates findings, and
// emits them in a deterministic order.
package scan

import "github.com/nosecrets/nosecrets/pkg/rules"

// FileSource is one entry of a ScanInput: a path paired with either its
// on-disk location (read according to the size policy) or already-known
// content bytes (e.g. a staged Git blob).
type FileSource struct {
	Path   string
	Inline []byte // non-nil for in-memory content (e.g. --staged); bypasses disk I/O entirely
}

// ScanInput is the sequence of candidate files the orchestrator walks.
type ScanInput struct {
	Files []FileSource
}

// Finding is a surviving candidate scheduled for emission. rawSecret is
// unexported and therefore never marshaled to JSON or otherwise
// serialized; only Fingerprint and RedactedPreview leave the process.
type Finding struct {
	RuleID          string        `json:"rule_id"`
	RuleName        string        `json:"name"`
	Severity        rules.Severity `json:"severity"`
	Path            string        `json:"path"`
	Line            int           `json:"line"`
	Column          int           `json:"column"`
	Fingerprint     string        `json:"fingerprint"`
	RedactedPreview string        `json:"preview"`

	rawSecret []byte
}

// DiagnosticKind classifies a non-fatal, per-file diagnostic.
type DiagnosticKind string

const (
	DiagFileReadError DiagnosticKind = "file_read_error"
	DiagRuleTimeout   DiagnosticKind = "rule_timeout"
)

// Diagnostic is a non-fatal event surfaced during a scan. It never
// affects the exit code on its own.
type Diagnostic struct {
	Kind   DiagnosticKind
	Path   string
	RuleID string // set for DiagRuleTimeout
	Err    error  // set for DiagFileReadError
}
