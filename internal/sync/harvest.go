package sync

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kokistudios/sower/internal/diffview"
	"github.com/kokistudios/sower/internal/domain"
	"github.com/kokistudios/sower/internal/drift"
	"github.com/kokistudios/sower/internal/manifest"
	"github.com/kokistudios/sower/internal/notes"
	"github.com/kokistudios/sower/internal/render"
	"github.com/kokistudios/sower/internal/store"
)

// Harvest gathers local improvements out of a project: new note entries flow
// into the canonical learnings collections, and edits to templated artifacts
// surface as diffs for a human to fold back by hand. Project files are never
// modified; only the manifest's last_harvest timestamp moves.
func Harvest(st *store.Store, projectRoot string, opts Options) (*Report, error) {
	m, err := manifest.Load(projectRoot)
	if err != nil {
		return nil, err
	}

	report := newReport(m.ProjectID, DirectionHarvest, opts.DryRun)

	records, unreadable := drift.Detect(projectRoot, m, managedPaths())
	for _, s := range unreadable {
		report.Skipped = append(report.Skipped, s.Path)
	}
	for _, r := range drift.Filter(records, drift.Added) {
		report.Added = append(report.Added, r.Path)
	}
	for _, r := range drift.Filter(records, drift.Deleted) {
		report.Deleted = append(report.Deleted, r.Path)
	}

	harvestNotes(st, m, projectRoot, records, report)
	if !opts.NotesOnly {
		harvestDiffs(st, m, projectRoot, records, report)
	}

	if opts.DryRun {
		return report, nil
	}

	pending := report.NewNotes()
	if len(pending) > 0 {
		if !opts.confirmed(report) {
			report.Confirmed = false
			return report, nil
		}

		lock, err := AcquireLock(st.Home)
		if err != nil {
			return report, err
		}
		defer lock.Release()

		domains := make([]string, 0, len(pending))
		for d := range pending {
			domains = append(domains, d)
		}
		sort.Strings(domains)
		for _, d := range domains {
			if err := appendEntries(st.LearningsPath(d), collectionHeading(d), pending[d]); err != nil {
				return report, err
			}
		}
	}

	now := time.Now().UTC()
	m.LastHarvest = &now
	if err := m.Save(projectRoot); err != nil {
		return report, err
	}
	return report, nil
}

// harvestNotes extracts the project's note entries, classifies each into a
// domain collection, and marks near-duplicates of canonical entries.
// An unmodified note document is a no-op: only modified or newly present
// documents carry anything to harvest.
func harvestNotes(st *store.Store, m *manifest.Manifest, projectRoot string, records []drift.Record, report *Report) {
	rec, tracked := drift.Of(records, render.LearningsRelPath)
	if !tracked || (rec.Kind != drift.Modified && rec.Kind != drift.Added) {
		return
	}

	data, err := os.ReadFile(filepath.Join(projectRoot, filepath.FromSlash(render.LearningsRelPath)))
	if err != nil {
		return
	}

	threshold := st.Config.Sync.DedupThreshold
	if threshold <= 0 {
		threshold = notes.DefaultThreshold
	}

	// Candidates dedupe against every collection a canonical entry could have
	// come from, not just the classified target: the seeded document carries
	// no tags, so a go-collection entry may well classify elsewhere.
	loaded := map[string]bool{}
	var existing []notes.Entry
	loadCollection := func(d string) {
		if loaded[d] {
			return
		}
		loaded[d] = true
		if data, err := os.ReadFile(st.LearningsPath(d)); err == nil {
			existing = append(existing, notes.Extract(string(data))...)
		}
	}
	loadCollection(domain.General)
	for _, d := range m.Domains {
		loadCollection(d)
	}

	for _, e := range notes.Extract(string(data)) {
		d := domain.Classify(e, domain.General, nil)
		loadCollection(d)

		entry := notes.Entry{Text: e.Text} // tag is implied by the collection
		dup := notes.IsDuplicate(entry, existing, threshold)
		report.Notes = append(report.Notes, NoteFinding{
			Domain:    d,
			Entry:     notes.Format(entry),
			Duplicate: dup,
		})
		if !dup {
			// accepted entries also dedupe the rest of this batch
			existing = append(existing, entry)
		}
	}
}

// harvestDiffs reports how locally modified templated artifacts diverge from
// their re-rendered canonical form. Findings are report-only: folding an
// improvement back into a template is a human decision.
func harvestDiffs(st *store.Store, m *manifest.Manifest, projectRoot string, records []drift.Record, report *Report) {
	rendered, err := render.All(st, m)
	if err != nil {
		return
	}

	literals := []string{m.ProjectID, m.Description}
	ctx := st.Config.Sync.DiffContextLines

	for _, r := range drift.Filter(records, drift.Modified) {
		if r.Path == render.LearningsRelPath {
			continue // notes flow through extraction, not diffs
		}
		expected, ok := rendered[r.Path]
		if !ok {
			continue
		}
		actual, err := os.ReadFile(filepath.Join(projectRoot, filepath.FromSlash(r.Path)))
		if err != nil {
			report.Skipped = append(report.Skipped, r.Path)
			continue
		}
		report.Diffs = append(report.Diffs, DiffFinding{
			Path:            r.Path,
			Diff:            diffview.Unified(r.Path, expected, string(actual), ctx),
			Recommendation:  diffview.Recommend(expected, string(actual), literals),
			LocallyModified: true,
			Outcome:         OutcomeReported,
		})
	}
}

func collectionHeading(d string) string {
	if d == domain.General {
		return "Learnings"
	}
	return strings.ToUpper(d[:1]) + d[1:] + " Learnings"
}
