package rules

import "testing"

func validRule() Rule {
	return Rule{
		ID:       "aws-test",
		Name:     "AWS Test Key",
		Severity: Critical,
		Pattern:  `AKIA([0-9A-Z]{16})`,
		Keywords: []string{"akia"},
		Capture:  1,
		Validate: &Validate{Length: intPtr(16)},
	}
}

func intPtr(n int) *int { return &n }

func TestCompileAcceptsValidRule(t *testing.T) {
	crs, _, err := Compile([]Rule{validRule()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(crs.Rules) != 1 {
		t.Fatalf("expected 1 compiled rule, got %d", len(crs.Rules))
	}
	if _, ok := crs.ByID["aws-test"]; !ok {
		t.Fatal("expected rule indexed by id")
	}
}

func TestCompileRejectsDuplicateID(t *testing.T) {
	r := validRule()
	_, _, err := Compile([]Rule{r, r})
	if err == nil {
		t.Fatal("expected an error for duplicate rule ids")
	}
}

func TestCompileRejectsCaptureOutOfRange(t *testing.T) {
	r := validRule()
	r.Capture = 5
	_, _, err := Compile([]Rule{r})
	if err == nil {
		t.Fatal("expected an error for a capture index beyond the pattern's group count")
	}
}

func TestCompileRejectsConflictingLengthConstraints(t *testing.T) {
	r := validRule()
	min := 10
	r.Validate = &Validate{Length: intPtr(16), MinLength: &min}
	_, _, err := Compile([]Rule{r})
	if err == nil {
		t.Fatal("expected an error for conflicting length/min_length")
	}
}

func TestCompileRejectsBadGlob(t *testing.T) {
	r := validRule()
	r.Paths = &Paths{Include: []string{"[unterminated"}}
	_, _, err := Compile([]Rule{r})
	if err == nil {
		t.Fatal("expected an error for a malformed glob")
	}
}

func TestCompileRejectsUnknownSeverity(t *testing.T) {
	r := validRule()
	r.Severity = "apocalyptic"
	_, _, err := Compile([]Rule{r})
	if err == nil {
		t.Fatal("expected an error for an unknown severity")
	}
}

func TestCompileBuildsPrefilterForKeywordRules(t *testing.T) {
	crs, _, err := Compile([]Rule{validRule()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx := crs.Prefilter.CandidateRules([]byte("no secrets here"))
	if len(idx) != 0 {
		t.Fatalf("expected no candidates for content without the keyword, got %v", idx)
	}
	idx = crs.Prefilter.CandidateRules([]byte("AKIA something"))
	if len(idx) != 1 {
		t.Fatalf("expected 1 candidate for content containing the keyword, got %v", idx)
	}
}

func TestCompileAlwaysOnRuleHasNoKeywords(t *testing.T) {
	r := validRule()
	r.Keywords = nil
	crs, _, err := Compile([]Rule{r})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx := crs.Prefilter.CandidateRules([]byte("completely unrelated content"))
	if len(idx) != 1 {
		t.Fatalf("expected the always-on rule to be a candidate for any content, got %v", idx)
	}
}
