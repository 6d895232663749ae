// Package diffview renders a line-based unified diff between an expected
// (re-rendered canonical) artifact and the actual project artifact, and
// tags each diff with a merge recommendation. Diffs are purely textual;
// the inputs are natural-language markup, not code.
package diffview

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Recommendation tags a templated-artifact diff for the merge decision.
type Recommendation string

const (
	// Generalize: the local edit looks domain-neutral and is a candidate
	// for promotion into the canonical template.
	Generalize Recommendation = "generalize"
	// ProjectSpecific: every changed line carries a project literal; the
	// edit stays local.
	ProjectSpecific Recommendation = "project-specific"
	// Mixed: both kinds of lines changed. Always deferred to a human,
	// never auto-split.
	Mixed Recommendation = "mixed"
)

type lineOp struct {
	kind    byte // ' ', '-', '+'
	oldLine int
	newLine int
	text    string
}

// Unified returns the unified diff from expected to actual, with the given
// number of context lines. Identical inputs produce the empty string.
// Output is byte-stable for identical inputs.
func Unified(path, expected, actual string, contextLines int) string {
	if expected == actual {
		return ""
	}

	ops := lineOps(expected, actual)

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)

	hunks := groupHunks(ops, contextLines)
	for _, h := range hunks {
		oldStart, oldCount, newStart, newCount := h.counts()
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
		for _, op := range h.ops {
			b.WriteByte(op.kind)
			b.WriteString(op.text)
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// Recommend classifies the local edit. literals are the project's binding
// values; a changed line containing one is project-specific, a changed line
// containing none is a generalization candidate.
func Recommend(expected, actual string, literals []string) Recommendation {
	var specific, neutral bool
	for _, op := range lineOps(expected, actual) {
		if op.kind == ' ' || strings.TrimSpace(op.text) == "" {
			continue
		}
		if containsAnyLiteral(op.text, literals) {
			specific = true
		} else {
			neutral = true
		}
	}

	switch {
	case specific && neutral:
		return Mixed
	case specific:
		return ProjectSpecific
	default:
		return Generalize
	}
}

func containsAnyLiteral(line string, literals []string) bool {
	for _, lit := range literals {
		if lit != "" && strings.Contains(line, lit) {
			return true
		}
	}
	return false
}

// lineOps computes line-level operations using go-diff's line mode.
// DiffTimeout is disabled so identical inputs always yield identical ops.
func lineOps(expected, actual string) []lineOp {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	a, b, lines := dmp.DiffLinesToChars(expected, actual)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var ops []lineOp
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, lineOp{' ', oldLine, newLine, text})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, lineOp{'-', oldLine, 0, text})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, lineOp{'+', 0, newLine, text})
				newLine++
			}
		}
	}
	return ops
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

type hunk struct {
	ops []lineOp
}

func (h hunk) counts() (oldStart, oldCount, newStart, newCount int) {
	oldStart, newStart = 0, 0
	for _, op := range h.ops {
		if op.kind != '+' {
			if oldStart == 0 {
				oldStart = op.oldLine
			}
			oldCount++
		}
		if op.kind != '-' {
			if newStart == 0 {
				newStart = op.newLine
			}
			newCount++
		}
	}
	if oldStart == 0 {
		oldStart = 1
	}
	if newStart == 0 {
		newStart = 1
	}
	return oldStart, oldCount, newStart, newCount
}

// groupHunks collapses long unchanged stretches, keeping contextLines of
// context around each changed region. Regions whose context windows touch
// are merged into one hunk.
func groupHunks(ops []lineOp, contextLines int) []hunk {
	var changes []int
	for i, op := range ops {
		if op.kind != ' ' {
			changes = append(changes, i)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	var hunks []hunk
	start := max(changes[0]-contextLines, 0)
	end := min(changes[0]+contextLines, len(ops)-1)
	for _, c := range changes[1:] {
		if c-contextLines <= end+1 {
			end = min(c+contextLines, len(ops)-1)
			continue
		}
		hunks = append(hunks, hunk{ops: ops[start : end+1]})
		start = c - contextLines
		end = min(c+contextLines, len(ops)-1)
	}
	hunks = append(hunks, hunk{ops: ops[start : end+1]})
	return hunks
}
