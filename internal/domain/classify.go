// Package domain assigns note entries to a domain bucket. Priority:
// explicit tag on the entry, then an optional caller override map, then
// keyword heuristics, then the caller's fallback. Classification never
// fails; "general" is the bucket of last resort.
package domain

import (
	"strings"

	"github.com/kokistudios/sower/internal/notes"
)

// General is the catch-all domain.
const General = "general"

// keywordTable maps each domain to case-insensitive trigger words.
// Checked in tableOrder so results are deterministic.
var keywordTable = map[string][]string{
	"go":         {"go", "golang", "goroutine", "gofmt", "channel", "interface"},
	"python":     {"python", "pip", "venv", "pytest", "pydantic", "asyncio"},
	"typescript": {"typescript", "tsconfig", "npm", "node", "react", "eslint"},
	"web":        {"html", "css", "http", "browser", "frontend", "api"},
	"infra":      {"docker", "kubernetes", "terraform", "ci", "deploy", "pipeline"},
	"testing":    {"test", "tests", "coverage", "mock", "fixture", "assertion"},
}

var tableOrder = []string{"go", "python", "typescript", "web", "infra", "testing"}

// Classify returns the domain tag for a note entry.
// Overrides remap explicit tags (tag -> domain) and may be nil.
func Classify(e notes.Entry, fallback string, overrides map[string]string) string {
	if e.Tag != "" {
		if mapped, ok := overrides[e.Tag]; ok && mapped != "" {
			return mapped
		}
		return e.Tag
	}

	words := entryWords(e.Text)
	for _, d := range tableOrder {
		for _, kw := range keywordTable[d] {
			if words[kw] {
				return d
			}
		}
	}

	if fallback != "" {
		return fallback
	}
	return General
}

// Known reports whether a domain has a keyword table entry.
func Known(domain string) bool {
	_, ok := keywordTable[domain]
	return ok || domain == General
}

func entryWords(text string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]`\"'")
		if w != "" {
			words[w] = true
		}
	}
	return words
}
