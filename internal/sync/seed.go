package sync

import (
	"fmt"
	"sort"

	"github.com/kokistudios/sower/internal/manifest"
	"github.com/kokistudios/sower/internal/render"
	"github.com/kokistudios/sower/internal/store"
)

// Seed turns a directory into a managed project: it writes a fresh manifest
// pinned to the store's canonical version, then pushes the full artifact set.
func Seed(st *store.Store, projectRoot, id, description string, domains []string, opts Options) (*Report, error) {
	if manifest.Exists(projectRoot) && !opts.Force {
		return nil, fmt.Errorf("%s already exists in %s (use --force to reseed)", manifest.Filename, projectRoot)
	}

	m := manifest.New(id, description, domains, st.Config.Canonical.Version)
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if opts.DryRun {
		report := newReport(id, DirectionPush, true)
		rendered, err := render.All(st, m)
		if err != nil {
			return nil, err
		}
		paths := make([]string, 0, len(rendered))
		for rel := range rendered {
			paths = append(paths, rel)
		}
		sort.Strings(paths)
		for _, rel := range paths {
			report.Added = append(report.Added, rel)
			report.Diffs = append(report.Diffs, DiffFinding{Path: rel, Outcome: OutcomeWritten})
		}
		return report, nil
	}

	if err := m.Save(projectRoot); err != nil {
		return nil, err
	}

	// a fresh seed owns every artifact it writes
	opts.Force = true
	return Push(st, projectRoot, opts)
}
