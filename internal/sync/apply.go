package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kokistudios/sower/internal/ledger"
	"github.com/kokistudios/sower/internal/manifest"
)

// Options controls a sync run. The zero value is an interactive-less,
// non-destructive run: no force, no dry-run, auto-confirmed.
type Options struct {
	// DryRun reports everything and writes nothing, not even timestamps.
	DryRun bool
	// Force overwrites locally modified artifacts on push.
	Force bool
	// SkipModified silently leaves locally modified artifacts alone.
	SkipModified bool
	// NotesOnly restricts the run to the learnings document.
	NotesOnly bool
	// Confirm gates the apply phase. Nil means proceed. Returning false
	// aborts the apply; the report is still produced.
	Confirm func(summary string) bool
}

// confirmed runs the gate. Dry-run never asks: there is nothing to apply.
func (o Options) confirmed(r *Report) bool {
	if o.DryRun || o.Confirm == nil {
		return true
	}
	return o.Confirm(r.Summary())
}

// writeArtifact writes one project artifact atomically: parent directories
// first, then temp file + rename. Either the full new content lands at the
// path or the old content survives.
func writeArtifact(root, rel, content string) error {
	dest := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("cannot create directory for %s: %w", rel, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".sower-write-*")
	if err != nil {
		return fmt.Errorf("cannot stage write for %s: %w", rel, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cannot write %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot write %s: %w", rel, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot write %s: %w", rel, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot replace %s: %w", rel, err)
	}
	return nil
}

// applyWrites lands each pending artifact and records its fingerprint in the
// ledger. A failed write stops the loop; fingerprints recorded so far stay
// recorded because those files really are on disk.
func applyWrites(projectRoot string, m *manifest.Manifest, writes map[string]string, order []string) error {
	for _, rel := range order {
		content := writes[rel]
		if err := writeArtifact(projectRoot, rel, content); err != nil {
			return err
		}
		m.Record(rel, ledger.Fingerprint([]byte(content)))
	}
	return nil
}

// appendEntries appends formatted note bullets to a canonical learnings
// collection, creating the file with a heading when it does not exist yet.
func appendEntries(path, heading string, entries []string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	var b strings.Builder
	if len(existing) == 0 {
		b.WriteString("# " + heading + "\n")
	} else {
		b.Write(existing)
		if !strings.HasSuffix(string(existing), "\n") {
			b.WriteByte('\n')
		}
	}
	for _, e := range entries {
		b.WriteString(e + "\n")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".sower-notes-*")
	if err != nil {
		return fmt.Errorf("cannot stage %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot replace %s: %w", path, err)
	}
	return nil
}

// compareVersions orders two dotted-triple versions. Returns -1, 0, or 1.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < 3 && i < len(as) && i < len(bs); i++ {
		ai, _ := strconv.Atoi(as[i])
		bi, _ := strconv.Atoi(bs[i])
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
	}
	return 0
}
