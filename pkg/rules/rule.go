// Package rules defines the rule data model and compiles parsed rule
// tables into an executable CompiledRuleSet.
package rules

import (
	"embed"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed data/*.toml
var defaultRulesFS embed.FS

// Severity is the blocking weight of a rule's findings.
type Severity string

const (
	Critical Severity = "critical"
	High     Severity = "high"
	Medium   Severity = "medium"
	Low      Severity = "low"
)

func (s Severity) valid() bool {
	switch s {
	case Critical, High, Medium, Low:
		return true
	default:
		return false
	}
}

// Blocking reports whether findings of this severity block a commit on
// their own, ignoring the low_is_blocking configuration override.
func (s Severity) Blocking() bool {
	return s != Low
}

// Validate describes the structural constraints a capture must satisfy
// to survive the Validator stage.
type Validate struct {
	Prefix    []string `toml:"prefix"`
	Charset   string   `toml:"charset"`
	Length    *int     `toml:"length"`
	MinLength *int     `toml:"min_length"`
	MaxLength *int     `toml:"max_length"`
}

// Paths restricts which files a rule is a candidate for.
type Paths struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// Allow lists per-rule suppressions checked against the capture bytes.
type Allow struct {
	Patterns []string `toml:"patterns"`
	Values   []string `toml:"values"`
}

// Rule is a single pattern-matching rule as read from a TOML rule file.
type Rule struct {
	ID       string    `toml:"id"`
	Name     string    `toml:"name"`
	Severity Severity  `toml:"severity"`
	Pattern  string    `toml:"pattern"`
	Keywords []string  `toml:"keywords"`
	Capture  int       `toml:"capture"`
	Validate *Validate `toml:"validate"`
	Paths    *Paths    `toml:"paths"`
	Allow    *Allow    `toml:"allow"`
}

// ruleFile is the top-level TOML envelope: `[[rule]]` tables.
type ruleFile struct {
	Rule []Rule `toml:"rule"`
}

// ErrInvalidRule reports a rule that failed compilation, naming the
// offending rule id and the underlying cause.
type ErrInvalidRule struct {
	ID    string
	Cause error
}

func (e *ErrInvalidRule) Error() string {
	return fmt.Sprintf("invalid rule %q: %v", e.ID, e.Cause)
}

func (e *ErrInvalidRule) Unwrap() error { return e.Cause }

// LoadFile parses a TOML rule file's bytes into its raw Rule table.
// Unknown keys are rejected (strict schema, per the rule file's
// external interface contract).
func LoadFile(data []byte) ([]Rule, error) {
	dec := toml.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()

	var rf ruleFile
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("parsing rule file: %w", err)
	}
	for i := range rf.Rule {
		if rf.Rule[i].Capture == 0 {
			rf.Rule[i].Capture = 1
		}
	}
	return rf.Rule, nil
}

// LoadDefaultRules loads the built-in rule pack embedded at build time.
func LoadDefaultRules() ([]Rule, error) {
	entries, err := defaultRulesFS.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("reading embedded default rule directory: %w", err)
	}

	var all []Rule
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := defaultRulesFS.ReadFile("data/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading embedded default rule file %s: %w", entry.Name(), err)
		}
		parsed, err := LoadFile(data)
		if err != nil {
			return nil, fmt.Errorf("parsing embedded default rule file %s: %w", entry.Name(), err)
		}
		all = append(all, parsed...)
	}
	return all, nil
}
