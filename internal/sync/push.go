package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kokistudios/sower/internal/diffview"
	"github.com/kokistudios/sower/internal/domain"
	"github.com/kokistudios/sower/internal/drift"
	"github.com/kokistudios/sower/internal/ledger"
	"github.com/kokistudios/sower/internal/manifest"
	"github.com/kokistudios/sower/internal/notes"
	"github.com/kokistudios/sower/internal/render"
	"github.com/kokistudios/sower/internal/store"
)

// managedPaths are the project-relative locations sower owns.
func managedPaths() []string {
	return []string{
		render.InstructionsRelPath,
		render.PromptsRelDir,
		render.LearningsRelPath,
	}
}

// Push propagates the canonical artifacts into a project. Locally modified
// artifacts are never overwritten unless forced; they surface as conflicts
// with a diff and a merge recommendation. Conflicts do not fail the run.
func Push(st *store.Store, projectRoot string, opts Options) (*Report, error) {
	m, err := manifest.Load(projectRoot)
	if err != nil {
		return nil, err
	}

	canonVersion := st.Config.Canonical.Version
	if compareVersions(m.CanonicalVersion, canonVersion) > 0 && !opts.Force {
		return nil, fmt.Errorf(
			"project %s carries canonical v%s, newer than this store's v%s (use --force to push anyway)",
			m.ProjectID, m.CanonicalVersion, canonVersion)
	}

	report := newReport(m.ProjectID, DirectionPush, opts.DryRun)

	rendered, err := render.All(st, m)
	if err != nil {
		return nil, err
	}
	if opts.NotesOnly {
		learnings, ok := rendered[render.LearningsRelPath]
		rendered = map[string]string{}
		if ok {
			rendered[render.LearningsRelPath] = learnings
		}
	}

	records, unreadable := drift.Detect(projectRoot, m, managedPaths())
	for _, s := range unreadable {
		report.Skipped = append(report.Skipped, s.Path)
	}

	literals := []string{m.ProjectID, m.Description}
	ctx := st.Config.Sync.DiffContextLines

	writes := map[string]string{}
	var order []string
	stage := func(rel, content string) {
		writes[rel] = content
		order = append(order, rel)
	}

	paths := make([]string, 0, len(rendered))
	for rel := range rendered {
		paths = append(paths, rel)
	}
	sort.Strings(paths)

	for _, rel := range paths {
		expected := rendered[rel]
		rec, tracked := drift.Of(records, rel)
		if _, unread := skippedPath(unreadable, rel); unread {
			continue
		}

		// The note document is freeform, never regenerated: existing project
		// text stays verbatim and missing canonical entries are appended.
		if rel == render.LearningsRelPath {
			merged, changed, err := mergeLearnings(st, m, projectRoot, expected)
			if err != nil {
				report.Skipped = append(report.Skipped, rel)
				continue
			}
			if !changed {
				report.Skipped = append(report.Skipped, rel)
				continue
			}
			stage(rel, merged)
			if !tracked {
				report.Added = append(report.Added, rel)
			} else if rec.Kind == drift.Deleted {
				report.Deleted = append(report.Deleted, rel)
			}
			report.Diffs = append(report.Diffs, DiffFinding{
				Path:            rel,
				Outcome:         OutcomeWritten,
				LocallyModified: tracked && rec.Kind == drift.Modified,
			})
			continue
		}

		switch {
		case !tracked:
			// never seeded and absent on disk
			stage(rel, expected)
			report.Added = append(report.Added, rel)
			report.Diffs = append(report.Diffs, DiffFinding{Path: rel, Outcome: OutcomeWritten})

		case rec.Kind == drift.Unmodified:
			if m.ArtifactHashes[rel] == ledger.Fingerprint([]byte(expected)) {
				report.Skipped = append(report.Skipped, rel)
				continue
			}
			stage(rel, expected)
			report.Diffs = append(report.Diffs, DiffFinding{Path: rel, Outcome: OutcomeWritten})

		case rec.Kind == drift.Deleted:
			stage(rel, expected)
			report.Deleted = append(report.Deleted, rel)
			report.Diffs = append(report.Diffs, DiffFinding{Path: rel, Outcome: OutcomeWritten})

		case rec.Kind == drift.Modified || rec.Kind == drift.Added:
			actual, err := os.ReadFile(filepath.Join(projectRoot, filepath.FromSlash(rel)))
			if err != nil {
				report.Skipped = append(report.Skipped, rel)
				continue
			}
			if string(actual) == expected {
				// content already matches; only the ledger is behind
				stage(rel, expected)
				report.Diffs = append(report.Diffs, DiffFinding{Path: rel, Outcome: OutcomeWritten})
				continue
			}

			finding := DiffFinding{Path: rel, LocallyModified: true}
			switch {
			case opts.Force:
				stage(rel, expected)
				finding.Outcome = OutcomeWritten
			case opts.SkipModified:
				finding.Outcome = OutcomeSkipped
				report.Skipped = append(report.Skipped, rel)
			default:
				finding.Outcome = OutcomeConflict
				finding.Diff = diffview.Unified(rel, expected, string(actual), ctx)
				finding.Recommendation = diffview.Recommend(expected, string(actual), literals)
			}
			report.Diffs = append(report.Diffs, finding)
		}
	}

	if opts.DryRun {
		return report, nil
	}
	if len(writes) > 0 && !opts.confirmed(report) {
		report.Confirmed = false
		demoteWrites(report)
		return report, nil
	}

	if err := applyWrites(projectRoot, m, writes, order); err != nil {
		// fingerprints for artifacts that did land are already recorded;
		// persist them so the ledger matches the disk
		if saveErr := m.Save(projectRoot); saveErr != nil {
			return report, fmt.Errorf("%w (and manifest save failed: %v)", err, saveErr)
		}
		return report, err
	}

	now := time.Now().UTC()
	m.LastPush = &now
	m.CanonicalVersion = canonVersion
	if err := m.Save(projectRoot); err != nil {
		return report, err
	}
	return report, nil
}

// mergeLearnings appends canonical note entries missing from the project's
// note document. A project without the document yet gets the full composed
// one. Local entries are never removed or reordered.
func mergeLearnings(st *store.Store, m *manifest.Manifest, projectRoot, composed string) (string, bool, error) {
	path := filepath.Join(projectRoot, filepath.FromSlash(render.LearningsRelPath))
	actual, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return composed, true, nil
		}
		return "", false, err
	}

	threshold := st.Config.Sync.DedupThreshold
	if threshold <= 0 {
		threshold = notes.DefaultThreshold
	}

	existing := notes.Extract(string(actual))
	var appended []string
	collections := append([]string{domain.General}, m.Domains...)
	for _, d := range collections {
		data, err := os.ReadFile(st.LearningsPath(d))
		if err != nil {
			continue
		}
		for _, e := range notes.Extract(string(data)) {
			if notes.IsDuplicate(e, existing, threshold) {
				continue
			}
			tag := e.Tag
			if d != domain.General {
				tag = d
			}
			appended = append(appended, notes.Format(notes.Entry{Tag: tag, Text: e.Text}))
			existing = append(existing, e)
		}
	}

	if len(appended) == 0 {
		return string(actual), false, nil
	}

	out := string(actual)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + strings.Join(appended, "\n") + "\n", true, nil
}

func skippedPath(skipped []drift.Skipped, rel string) (drift.Skipped, bool) {
	for _, s := range skipped {
		if s.Path == rel {
			return s, true
		}
	}
	return drift.Skipped{}, false
}

// demoteWrites flips pending writes to skipped after a declined confirm.
func demoteWrites(r *Report) {
	for i := range r.Diffs {
		if r.Diffs[i].Outcome == OutcomeWritten {
			r.Diffs[i].Outcome = OutcomeSkipped
		}
	}
}
