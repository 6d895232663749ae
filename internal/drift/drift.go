// Package drift classifies every tracked artifact of a project against the
// manifest ledger: unmodified, modified, deleted, or newly present.
package drift

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kokistudios/sower/internal/ledger"
	"github.com/kokistudios/sower/internal/manifest"
)

// Kind is a change classification.
type Kind string

const (
	Unmodified Kind = "unmodified"
	Modified   Kind = "modified"
	Deleted    Kind = "deleted"
	Added      Kind = "added"
)

// Record classifies one project-relative path for this run.
// Records are transient and never persisted.
type Record struct {
	Path string
	Kind Kind
}

// Skipped marks a path that could not be read this run.
type Skipped struct {
	Path string
	Err  error
}

// Detect compares live file fingerprints against the manifest ledger and
// scans the managed locations for paths the ledger has never seen.
// managed entries are project-relative files or directories; a directory is
// scanned one level deep. Output order is not significant.
//
// A ledger path that is physically absent is always deleted, never added,
// even if a same-named entry reappears with different casing: path
// comparison is exact-string and case-sensitive.
func Detect(projectRoot string, m *manifest.Manifest, managed []string) ([]Record, []Skipped) {
	var records []Record
	var skipped []Skipped

	for rel, stored := range m.ArtifactHashes {
		abs := filepath.Join(projectRoot, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			// only confirmed absence is a deletion; an unreadable path is
			// recoverable and must not trigger restore-on-push
			if os.IsNotExist(err) {
				records = append(records, Record{Path: rel, Kind: Deleted})
			} else {
				skipped = append(skipped, Skipped{Path: rel, Err: err})
			}
			continue
		}
		if info.IsDir() {
			records = append(records, Record{Path: rel, Kind: Deleted})
			continue
		}
		current, err := ledger.HashFile(abs)
		if err != nil {
			skipped = append(skipped, Skipped{Path: rel, Err: err})
			continue
		}
		if current != stored {
			records = append(records, Record{Path: rel, Kind: Modified})
		} else {
			records = append(records, Record{Path: rel, Kind: Unmodified})
		}
	}

	for _, entry := range managed {
		abs := filepath.Join(projectRoot, filepath.FromSlash(entry))
		info, err := os.Stat(abs)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			if _, known := m.ArtifactHashes[entry]; !known {
				records = append(records, Record{Path: entry, Kind: Added})
			}
			continue
		}
		files, err := os.ReadDir(abs)
		if err != nil {
			skipped = append(skipped, Skipped{Path: entry, Err: err})
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			rel := strings.TrimSuffix(entry, "/") + "/" + f.Name()
			if _, known := m.ArtifactHashes[rel]; !known {
				records = append(records, Record{Path: rel, Kind: Added})
			}
		}
	}

	return records, skipped
}

// Of returns the record for a path, or a zero Record if absent.
func Of(records []Record, path string) (Record, bool) {
	for _, r := range records {
		if r.Path == path {
			return r, true
		}
	}
	return Record{}, false
}

// Filter returns the records of one kind.
func Filter(records []Record, kind Kind) []Record {
	var out []Record
	for _, r := range records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
