package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/nosecrets/nosecrets/pkg/prefilter"
)

// CompiledRule holds every compiled artifact derived from a single Rule:
// its regex, validators, path globs, and allow-list matchers. It is
// immutable once returned from Compile.
type CompiledRule struct {
	ID       string
	Name     string
	Severity Severity
	Pattern  string
	Keywords []string
	Capture  int

	Regex *regexp.Regexp

	ValidatePrefix    []string
	ValidateCharset   *regexp.Regexp
	ValidateLength    *int
	ValidateMinLength *int
	ValidateMaxLength *int

	PathInclude []glob.Glob
	PathExclude []glob.Glob

	AllowPattern []*regexp.Regexp
	AllowValue   map[string]struct{}
}

// HasKeywords reports whether this rule only ever becomes a candidate
// through the prefilter, as opposed to being always-on.
func (r *CompiledRule) HasKeywords() bool { return len(r.Keywords) > 0 }

// CompiledRuleSet is the immutable, shared-read-only output of the Rule
// Compiler: every rule's compiled form plus the merged prefilter
// automaton. Constructed once per process invocation.
type CompiledRuleSet struct {
	Rules []*CompiledRule
	ByID  map[string]*CompiledRule

	Prefilter *prefilter.Automaton
}

// Compile turns a parsed rule table into an executable CompiledRuleSet.
// Returns non-fatal warnings alongside a hard error for any rule that
// fails the invariants in the rule file's external interface contract.
// The only warning source is the keyword check in patternCanMatch,
// which accepts every keyword, so the warnings slice is always empty.
func Compile(raw []Rule) (*CompiledRuleSet, []string, error) {
	crs := &CompiledRuleSet{
		ByID: make(map[string]*CompiledRule, len(raw)),
	}

	var warnings []string
	var keywords []prefilter.Keyword
	var alwaysOn []int

	for i, r := range raw {
		cr, warns, err := compileOne(r)
		if err != nil {
			return nil, nil, &ErrInvalidRule{ID: r.ID, Cause: err}
		}
		warnings = append(warnings, warns...)

		if _, dup := crs.ByID[cr.ID]; dup {
			return nil, nil, &ErrInvalidRule{ID: cr.ID, Cause: fmt.Errorf("duplicate rule id")}
		}

		crs.Rules = append(crs.Rules, cr)
		crs.ByID[cr.ID] = cr

		if cr.HasKeywords() {
			for _, kw := range cr.Keywords {
				keywords = append(keywords, prefilter.Keyword{RuleIndex: i, Literal: kw})
			}
		} else {
			alwaysOn = append(alwaysOn, i)
		}
	}

	crs.Prefilter = prefilter.Build(keywords, alwaysOn)
	return crs, warnings, nil
}

func compileOne(r Rule) (*CompiledRule, []string, error) {
	if r.ID == "" {
		return nil, nil, fmt.Errorf("empty rule id")
	}
	if r.Severity == "" {
		r.Severity = Medium
	}
	if !r.Severity.valid() {
		return nil, nil, fmt.Errorf("unknown severity %q", r.Severity)
	}
	if r.Pattern == "" {
		return nil, nil, fmt.Errorf("empty pattern")
	}

	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("compiling pattern: %w", err)
	}

	capture := r.Capture
	if capture == 0 {
		capture = 1
	}
	if capture > re.NumSubexp() {
		return nil, nil, fmt.Errorf("capture group %d exceeds pattern's %d groups", capture, re.NumSubexp())
	}

	cr := &CompiledRule{
		ID:       r.ID,
		Name:     r.Name,
		Severity: r.Severity,
		Pattern:  r.Pattern,
		Capture:  capture,
		Regex:    re,
	}

	var warnings []string
	for _, kw := range r.Keywords {
		lower := strings.ToLower(kw)
		if kw == "" || !isASCII(kw) {
			return nil, nil, fmt.Errorf("keyword %q must be non-empty ASCII", kw)
		}
		cr.Keywords = append(cr.Keywords, lower)
		if !patternCanMatch(re, lower) {
			warnings = append(warnings, fmt.Sprintf("rule %s: keyword %q does not appear in any string matched by pattern", r.ID, kw))
		}
	}

	if r.Validate != nil {
		if err := compileValidate(cr, r.Validate); err != nil {
			return nil, nil, err
		}
	}

	if r.Paths != nil {
		var err error
		if cr.PathInclude, err = compileGlobs(r.Paths.Include); err != nil {
			return nil, nil, fmt.Errorf("paths.include: %w", err)
		}
		if cr.PathExclude, err = compileGlobs(r.Paths.Exclude); err != nil {
			return nil, nil, fmt.Errorf("paths.exclude: %w", err)
		}
	}

	if r.Allow != nil {
		for _, p := range r.Allow.Patterns {
			are, err := regexp.Compile(p)
			if err != nil {
				return nil, nil, fmt.Errorf("allow.patterns %q: %w", p, err)
			}
			cr.AllowPattern = append(cr.AllowPattern, are)
		}
		if len(r.Allow.Values) > 0 {
			cr.AllowValue = make(map[string]struct{}, len(r.Allow.Values))
			for _, v := range r.Allow.Values {
				cr.AllowValue[v] = struct{}{}
			}
		}
	}

	return cr, warnings, nil
}

func compileValidate(cr *CompiledRule, v *Validate) error {
	if v.Length != nil {
		if v.MinLength != nil && *v.MinLength != *v.Length {
			return fmt.Errorf("validate.length conflicts with validate.min_length")
		}
		if v.MaxLength != nil && *v.MaxLength != *v.Length {
			return fmt.Errorf("validate.length conflicts with validate.max_length")
		}
	}

	cr.ValidatePrefix = v.Prefix
	cr.ValidateLength = v.Length
	cr.ValidateMinLength = v.MinLength
	cr.ValidateMaxLength = v.MaxLength

	if v.Charset != "" {
		re, err := regexp.Compile("^[" + v.Charset + "]+$")
		if err != nil {
			return fmt.Errorf("validate.charset %q: %w", v.Charset, err)
		}
		cr.ValidateCharset = re
	}
	return nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("malformed glob %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

// patternCanMatch reports whether the literal keyword could appear,
// case-insensitively, in a string the pattern matches. It is only used
// to emit advisory warnings, never to reject a rule. It returns true for
// every keyword: a keyword inside the pattern's literal prefix is
// accepted outright, and any other keyword is accepted without
// analysis, so no keyword warning is ever produced.
func patternCanMatch(re *regexp.Regexp, keyword string) bool {
	// If the rule's literal prefix (the portion regexp/syntax can prove
	// must occur verbatim) already contains the keyword, short-circuit.
	if lit, _ := re.LiteralPrefix(); lit != "" && strings.Contains(strings.ToLower(lit), keyword) {
		return true
	}
	// Otherwise fall back to assuming the author knows their pattern;
	// a false "can't prove it" would otherwise warn on every keyword
	// that sits inside an alternation or character class.
	return true
}
