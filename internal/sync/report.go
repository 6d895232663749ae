// Package sync orchestrates the two propagation flows between the canonical
// store and a seeded project: push (canonical -> project) and harvest
// (project -> canonical). Every run produces a Report; nothing is written
// without passing the dry-run and confirmation gates.
package sync

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kokistudios/sower/internal/diffview"
)

// Direction names a sync flow.
type Direction string

const (
	DirectionPush    Direction = "push"
	DirectionHarvest Direction = "harvest"
)

// Outcome records what happened to one artifact during a run.
type Outcome string

const (
	// OutcomeWritten: the artifact was (or, in dry-run, would be) written.
	OutcomeWritten Outcome = "written"
	// OutcomeSkipped: the artifact was deliberately left alone.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeConflict: local edits blocked the write.
	OutcomeConflict Outcome = "conflict"
	// OutcomeReported: surfaced for a human decision, never written.
	OutcomeReported Outcome = "reported"
)

// NoteFinding is one harvested note entry, already classified and deduped.
type NoteFinding struct {
	Domain    string `json:"domain"`
	Entry     string `json:"entry"`
	Duplicate bool   `json:"duplicate"`
}

// DiffFinding describes the divergence of one templated artifact.
type DiffFinding struct {
	Path            string                  `json:"path"`
	Diff            string                  `json:"diff,omitempty"`
	Recommendation  diffview.Recommendation `json:"recommendation,omitempty"`
	LocallyModified bool                    `json:"locally_modified"`
	Outcome         Outcome                 `json:"outcome"`
}

// Report is the full outcome of one sync run for one project.
type Report struct {
	RunID     string    `json:"run_id"`
	ProjectID string    `json:"project_id"`
	Direction Direction `json:"direction"`
	DryRun    bool      `json:"dry_run"`
	StartedAt time.Time `json:"started_at"`

	Notes []NoteFinding `json:"notes,omitempty"`
	Diffs []DiffFinding `json:"diffs,omitempty"`

	Added   []string `json:"added,omitempty"`
	Deleted []string `json:"deleted,omitempty"`
	Skipped []string `json:"skipped,omitempty"`

	// Confirmed is false when the user declined the apply gate.
	Confirmed bool `json:"confirmed"`
}

func newReport(projectID string, dir Direction, dryRun bool) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		ProjectID: projectID,
		Direction: dir,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
		Confirmed: true,
	}
}

// Conflicts returns the paths whose write was blocked by local edits.
func (r *Report) Conflicts() []string {
	var out []string
	for _, d := range r.Diffs {
		if d.Outcome == OutcomeConflict {
			out = append(out, d.Path)
		}
	}
	return out
}

// Written returns the paths written (or that would be written in dry-run).
func (r *Report) Written() []string {
	var out []string
	for _, d := range r.Diffs {
		if d.Outcome == OutcomeWritten {
			out = append(out, d.Path)
		}
	}
	return out
}

// NewNotes returns the harvested entries that are not duplicates, grouped by
// domain in sorted order.
func (r *Report) NewNotes() map[string][]string {
	grouped := map[string][]string{}
	for _, n := range r.Notes {
		if !n.Duplicate {
			grouped[n.Domain] = append(grouped[n.Domain], n.Entry)
		}
	}
	return grouped
}

// Summary renders a one-paragraph account of the run for the confirm prompt.
func (r *Report) Summary() string {
	var parts []string
	if n := len(r.Written()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d artifact(s) to write", n))
	}
	grouped := r.NewNotes()
	if len(grouped) > 0 {
		domains := make([]string, 0, len(grouped))
		total := 0
		for d, entries := range grouped {
			domains = append(domains, d)
			total += len(entries)
		}
		sort.Strings(domains)
		parts = append(parts, fmt.Sprintf("%d new note(s) for %s", total, strings.Join(domains, ", ")))
	}
	if n := len(r.Conflicts()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d conflict(s) left untouched", n))
	}
	if len(parts) == 0 {
		return "nothing to apply"
	}
	return strings.Join(parts, "; ")
}
