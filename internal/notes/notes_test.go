package notes

import (
	"testing"
)

func TestExtract_Bullets(t *testing.T) {
	text := `# Learnings

- First insight.
- Second insight
  with a continuation line.
- [go] Always check errors.

Some trailing prose that is not a bullet.
`
	entries := Extract(text)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(entries), entries)
	}
	if entries[0].Text != "First insight." {
		t.Errorf("entry 0 = %q", entries[0].Text)
	}
	if entries[1].Text != "Second insight with a continuation line." {
		t.Errorf("continuation not joined: %q", entries[1].Text)
	}
	if entries[2].Tag != "go" || entries[2].Text != "Always check errors." {
		t.Errorf("tagged entry parsed wrong: %+v", entries[2])
	}
}

func TestExtract_NoBullets(t *testing.T) {
	if entries := Extract("Just prose.\n\nMore prose."); len(entries) != 0 {
		t.Errorf("got %d entries from prose, want 0", len(entries))
	}
}

func TestExtract_HeadingEndsEntry(t *testing.T) {
	text := "- A note\n## Go Learnings\n- Another note"
	entries := Extract(text)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Text != "A note" {
		t.Errorf("heading swallowed into entry: %q", entries[0].Text)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Use Exponential Backoff.", "use exponential backoff"},
		{"  use   exponential\tbackoff  ", "use exponential backoff"},
		{"use exponential backoff!", "use exponential backoff"},
		{"use exponential backoff", "use exponential backoff"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_IdentityForDedup(t *testing.T) {
	a := "Always pin dependency versions."
	b := "always   pin dependency versions"
	if Normalize(a) != Normalize(b) {
		t.Errorf("entries differing only in case/space/punctuation must normalize equal")
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	if s := Similarity("use exponential backoff", "Use exponential backoff."); s != 1.0 {
		t.Errorf("normalized-identical strings score %v, want 1.0", s)
	}
	if s := Similarity("aaaa", "zzzz"); s != 0 {
		t.Errorf("disjoint strings score %v, want 0", s)
	}
}

func TestSimilarity_SubstringContainment(t *testing.T) {
	// The metric must be monotone under substring containment: growing the
	// shared prefix cannot lower the score.
	short := Similarity("use exponential backoff", "use exponential backoff everywhere in the retry loop")
	shorter := Similarity("use backoff", "use exponential backoff everywhere in the retry loop")
	if short <= shorter {
		t.Errorf("longer containment scored %v, shorter %v", short, shorter)
	}
}

func TestIsDuplicate_NearIdentical(t *testing.T) {
	existing := []Entry{{Text: "Use exponential backoff on every retry loop"}}
	candidate := Entry{Text: "Use exponential backoff on every retry loop."}

	if !IsDuplicate(candidate, existing, DefaultThreshold) {
		t.Error("near-identical entry not flagged as duplicate")
	}
}

func TestIsDuplicate_SharedKeywordOnly(t *testing.T) {
	// Entries sharing only a common keyword must never be flagged.
	existing := []Entry{{Text: "Use pathlib for paths"}}
	candidate := Entry{Text: "Use structlog for logs"}

	if IsDuplicate(candidate, existing, DefaultThreshold) {
		t.Error("keyword-only overlap wrongly flagged as duplicate")
	}
}

func TestIsDuplicate_BiasTowardKeeping(t *testing.T) {
	// A genuinely different insight on the same topic stays.
	existing := []Entry{{Text: "Prefer table-driven tests for parsers"}}
	candidate := Entry{Text: "Prefer fuzz tests for parsers that accept untrusted input"}

	if IsDuplicate(candidate, existing, DefaultThreshold) {
		t.Error("borderline entry discarded; policy is to keep it")
	}
}

func TestIsDuplicate_ThresholdPinned(t *testing.T) {
	if DefaultThreshold != 0.85 {
		t.Fatalf("DefaultThreshold = %v, want 0.85", DefaultThreshold)
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	e := Entry{Tag: "go", Text: "Check errors."}
	line := Format(e)
	entries := Extract(line)
	if len(entries) != 1 {
		t.Fatalf("Format output did not re-extract: %q", line)
	}
	if entries[0].Tag != "go" || entries[0].Text != "Check errors." {
		t.Errorf("round trip mismatch: %+v", entries[0])
	}
}
