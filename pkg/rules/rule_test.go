package rules

import "testing"

func TestLoadFileRejectsUnknownFields(t *testing.T) {
	data := []byte(`
[[rule]]
id = "t1"
name = "Test"
pattern = "foo"
bogus_field = "nope"
`)
	if _, err := LoadFile(data); err == nil {
		t.Fatal("expected an error for an unknown field, got nil")
	}
}

func TestLoadFileDefaultsCapture(t *testing.T) {
	data := []byte(`
[[rule]]
id = "t1"
name = "Test"
pattern = "(foo)"
`)
	parsed, err := LoadFile(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(parsed))
	}
	if parsed[0].Capture != 1 {
		t.Fatalf("expected default capture 1, got %d", parsed[0].Capture)
	}
}

func TestLoadDefaultRules(t *testing.T) {
	rules, err := LoadDefaultRules()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) == 0 {
		t.Fatal("expected the embedded default rule pack to be non-empty")
	}

	seen := make(map[string]bool)
	for _, r := range rules {
		if r.ID == "" {
			t.Errorf("embedded rule %q has an empty id", r.Name)
		}
		if seen[r.ID] {
			t.Errorf("embedded rule id %q is duplicated", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestLoadDefaultRulesCompile(t *testing.T) {
	raw, err := LoadDefaultRules()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := Compile(raw); err != nil {
		t.Fatalf("embedded default rule pack failed to compile: %v", err)
	}
}

func TestSeverityBlocking(t *testing.T) {
	cases := []struct {
		sev      Severity
		blocking bool
	}{
		{Critical, true},
		{High, true},
		{Medium, true},
		{Low, false},
	}
	for _, c := range cases {
		if got := c.sev.Blocking(); got != c.blocking {
			t.Errorf("Severity(%q).Blocking() = %v, want %v", c.sev, got, c.blocking)
		}
	}
}
