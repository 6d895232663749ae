// Package notes parses freeform learning files into discrete entries and
// detects near-duplicates between entries. Entry identity is normalized
// text, not raw bytes: capitalization, whitespace runs, and trailing
// punctuation never distinguish two entries.
package notes

import (
	"strings"
)

// DefaultThreshold is the similarity score at or above which a candidate
// entry counts as a near-duplicate of an existing one. Tunable constant,
// biased toward false negatives: losing a unique insight is worse than
// keeping a harmless near-duplicate.
const DefaultThreshold = 0.85

// Marker is the designated bullet character for note entries.
const Marker = "-"

// Entry is one bulleted note, optionally prefixed with an explicit
// [domain] tag.
type Entry struct {
	Tag  string // explicit domain tag, "" if none
	Text string // entry text without marker or tag
	Raw  string // full text as it appeared, continuations included
}

// Extract splits freeform text into one entry per top-level bulleted line.
// A line is a bullet if it begins with the marker after leading whitespace.
// Non-blank, non-heading lines under a bullet are continuations of that
// entry; a blank line, a heading, or the next bullet ends it.
func Extract(text string) []Entry {
	var entries []Entry
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		raw := strings.Join(current, "\n")
		entries = append(entries, parseEntry(raw))
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, Marker+" ") || trimmed == Marker:
			flush()
			current = []string{trimmed}
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			flush()
		default:
			if len(current) > 0 {
				current = append(current, trimmed)
			}
			// text outside any bullet is not an entry
		}
	}
	flush()

	return entries
}

// parseEntry strips the marker and an optional leading [tag] from a raw
// bullet block.
func parseEntry(raw string) Entry {
	text := strings.TrimSpace(strings.TrimPrefix(raw, Marker))
	text = strings.ReplaceAll(text, "\n", " ")

	var tag string
	if strings.HasPrefix(text, "[") {
		if end := strings.Index(text, "]"); end > 1 {
			tag = strings.ToLower(strings.TrimSpace(text[1:end]))
			text = strings.TrimSpace(text[end+1:])
		}
	}

	return Entry{Tag: tag, Text: text, Raw: raw}
}

// Format renders an entry back into a single bullet line.
func Format(e Entry) string {
	if e.Tag != "" {
		return Marker + " [" + e.Tag + "] " + e.Text
	}
	return Marker + " " + e.Text
}

// Normalize produces the comparison key for an entry's text: lowercased,
// whitespace runs collapsed to one space, terminal punctuation stripped.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ".!?,;:")
	return s
}

// Similarity scores two texts in [0, 1] using the Dice coefficient over
// character bigrams of their normalized forms. Identical strings score 1.0
// and strings with no shared bigrams score 0.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	if len(na) < 2 || len(nb) < 2 {
		return 0
	}

	ba := bigrams(na)
	bb := bigrams(nb)

	var overlap int
	for g, ca := range ba {
		if cb, ok := bb[g]; ok {
			overlap += min(ca, cb)
		}
	}

	total := len(na) - 1 + len(nb) - 1
	return 2 * float64(overlap) / float64(total)
}

func bigrams(s string) map[string]int {
	grams := make(map[string]int, len(s))
	for i := 0; i+2 <= len(s); i++ {
		grams[s[i:i+2]]++
	}
	return grams
}

// IsDuplicate reports whether the candidate is a near-duplicate of any
// existing entry at the given threshold. Borderline entries score below
// threshold and are kept.
func IsDuplicate(candidate Entry, existing []Entry, threshold float64) bool {
	for _, e := range existing {
		if Similarity(candidate.Text, e.Text) >= threshold {
			return true
		}
	}
	return false
}
