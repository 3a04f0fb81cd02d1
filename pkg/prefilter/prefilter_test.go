package prefilter

import "testing"

func TestCandidateRulesMatchesKeyword(t *testing.T) {
	a := Build([]Keyword{
		{RuleIndex: 0, Literal: "akia"},
		{RuleIndex: 1, Literal: "ghp_"},
	}, nil)

	got := a.CandidateRules([]byte("export TOKEN=ghp_abcdef"))
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected candidate rule [1], got %v", got)
	}
}

func TestCandidateRulesIsCaseInsensitive(t *testing.T) {
	a := Build([]Keyword{{RuleIndex: 0, Literal: "akia"}}, nil)
	got := a.CandidateRules([]byte("key=AKIAEXAMPLE"))
	if len(got) != 1 {
		t.Fatalf("expected case-insensitive match, got %v", got)
	}
}

func TestCandidateRulesIncludesAlwaysOn(t *testing.T) {
	a := Build(nil, []int{7})
	got := a.CandidateRules([]byte("anything at all"))
	if len(got) != 1 || got[0] != 7 {
		t.Fatalf("expected always-on rule 7, got %v", got)
	}
}

func TestCandidateRulesEmptyContent(t *testing.T) {
	a := Build([]Keyword{{RuleIndex: 0, Literal: "akia"}}, []int{1})
	got := a.CandidateRules(nil)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only the always-on rule for empty content, got %v", got)
	}
}

func TestCandidateRulesDeduplicatesAcrossMultipleHits(t *testing.T) {
	a := Build([]Keyword{{RuleIndex: 0, Literal: "akia"}}, nil)
	got := a.CandidateRules([]byte("AKIA one AKIA two akia three"))
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected a single deduplicated candidate, got %v", got)
	}
}
