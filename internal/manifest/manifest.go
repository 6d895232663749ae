// Package manifest reads and writes the per-project sync record
// (.sower.yaml). The manifest carries the artifact ledger: the last-known
// fingerprint of every path sower manages inside the project.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Filename is the manifest file name inside a seeded project.
const Filename = ".sower.yaml"

var (
	projectIDRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	versionRe   = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// Manifest is the per-project sync record.
type Manifest struct {
	ProjectID        string            `yaml:"project_id"`
	Description      string            `yaml:"project_description,omitempty"`
	Domains          []string          `yaml:"domains"`
	CanonicalVersion string            `yaml:"canonical_version"`
	SeededAt         time.Time         `yaml:"seeded_at"`
	LastHarvest      *time.Time        `yaml:"last_harvest"`
	LastPush         *time.Time        `yaml:"last_push"`
	ArtifactHashes   map[string]string `yaml:"artifact_hashes"`
}

// New returns a manifest for a freshly seeded project.
func New(projectID, description string, domains []string, canonicalVersion string) *Manifest {
	return &Manifest{
		ProjectID:        projectID,
		Description:      description,
		Domains:          domains,
		CanonicalVersion: canonicalVersion,
		SeededAt:         time.Now().UTC(),
		ArtifactHashes:   map[string]string{},
	}
}

// Load reads and validates a project's manifest. A missing or corrupt
// manifest is a hard error: the caller must abort the run for this project.
func Load(projectRoot string) (*Manifest, error) {
	p := filepath.Join(projectRoot, Filename)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("no %s manifest found in %s — is this a seeded project?: %w", Filename, projectRoot, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", p, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", p, err)
	}
	if m.ArtifactHashes == nil {
		m.ArtifactHashes = map[string]string{}
	}
	return &m, nil
}

// Validate checks the manifest's structural invariants.
func (m *Manifest) Validate() error {
	if !projectIDRe.MatchString(m.ProjectID) {
		return fmt.Errorf("project_id %q must be a lowercase slug", m.ProjectID)
	}
	if len(m.Domains) == 0 {
		return fmt.Errorf("domains must not be empty")
	}
	if !versionRe.MatchString(m.CanonicalVersion) {
		return fmt.Errorf("canonical_version %q must be a dotted triple", m.CanonicalVersion)
	}
	return nil
}

// Record inserts or overwrites one ledger entry. Persistence is the
// caller's responsibility.
func (m *Manifest) Record(path, digest string) {
	if m.ArtifactHashes == nil {
		m.ArtifactHashes = map[string]string{}
	}
	m.ArtifactHashes[path] = digest
}

// Save writes the manifest atomically (temp file + rename) so a crash
// mid-write never leaves a half-written ledger.
func (m *Manifest) Save(projectRoot string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	dest := filepath.Join(projectRoot, Filename)
	tmp, err := os.CreateTemp(projectRoot, Filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp manifest: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// Exists reports whether a project already has a manifest.
func Exists(projectRoot string) bool {
	_, err := os.Stat(filepath.Join(projectRoot, Filename))
	return err == nil
}
