// Package project maintains the registry of seeded projects inside
// SOWER_HOME, the explicit collection batch operations iterate over.
// Each project is one frontmatter markdown record under projects/.
package project

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kokistudios/sower/internal/manifest"
	"github.com/kokistudios/sower/internal/store"
)

type Project struct {
	ID      string    `yaml:"id"`
	Path    string    `yaml:"path"`
	Domains []string  `yaml:"domains"`
	AddedAt time.Time `yaml:"added_at"`
}

func Filename(id string) string {
	return "PROJECT_" + strings.ToUpper(id) + ".md"
}

func (p *Project) Filename() string {
	return Filename(p.ID)
}

// Register adds a seeded project to the registry. The project must already
// carry a valid manifest; its identity and domains come from there.
func Register(s *store.Store, path string) (*Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("path does not exist or is not a directory: %s", absPath)
	}

	m, err := manifest.Load(absPath)
	if err != nil {
		return nil, err
	}

	recordPath := filepath.Join(s.Path("projects"), Filename(m.ProjectID))
	if _, err := os.Stat(recordPath); err == nil {
		return nil, fmt.Errorf("project already registered: %s", m.ProjectID)
	}

	p := &Project{
		ID:      m.ProjectID,
		Path:    absPath,
		Domains: m.Domains,
		AddedAt: time.Now().UTC(),
	}

	if err := save(s, p); err != nil {
		return nil, err
	}
	return p, nil
}

func save(s *store.Store, p *Project) error {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	fm, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(fmt.Sprintf("# %s\n\n", strings.ToUpper(p.ID)))
	buf.WriteString(fmt.Sprintf("- **Path:** `%s`\n", p.Path))
	buf.WriteString(fmt.Sprintf("- **Domains:** %s\n", strings.Join(p.Domains, ", ")))
	buf.WriteString(fmt.Sprintf("- **Added:** %s\n", p.AddedAt.Format("2006-01-02")))

	dest := filepath.Join(s.Path("projects"), p.Filename())
	if err := os.WriteFile(dest, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write project record: %w", err)
	}
	return nil
}

// List returns all registered projects.
func List(s *store.Store) ([]Project, error) {
	dir := s.Path("projects")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read projects directory: %w", err)
	}

	var projects []Project
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "PROJECT_") && strings.HasSuffix(name, ".md") {
			p, err := load(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			projects = append(projects, *p)
		}
	}
	return projects, nil
}

// Get returns a registered project by id.
func Get(s *store.Store, id string) (*Project, error) {
	p, err := load(filepath.Join(s.Path("projects"), Filename(id)))
	if err != nil {
		return nil, fmt.Errorf("project not found: %s", id)
	}
	return p, nil
}

func load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, "---") {
		return nil, fmt.Errorf("no frontmatter in project record")
	}

	rest := strings.TrimLeft(content[3:], " \t\r\n")
	endIdx := strings.Index(rest, "\n---")
	if endIdx == -1 {
		return nil, fmt.Errorf("unterminated frontmatter")
	}

	var p Project
	if err := yaml.Unmarshal([]byte(rest[:endIdx]), &p); err != nil {
		return nil, fmt.Errorf("invalid project frontmatter: %w", err)
	}
	return &p, nil
}

// Remove deletes a project from the registry. The project's own files are
// left untouched.
func Remove(s *store.Store, id string) error {
	p, err := Get(s, id)
	if err != nil {
		return err
	}
	return os.Remove(filepath.Join(s.Path("projects"), p.Filename()))
}

// CheckHealth verifies a registered project still looks like one.
func CheckHealth(p Project) []store.Issue {
	var issues []store.Issue

	info, err := os.Stat(p.Path)
	if err != nil {
		issues = append(issues, store.Issue{Severity: "error", Message: fmt.Sprintf("project %s: path does not exist: %s", p.ID, p.Path)})
		return issues
	}
	if !info.IsDir() {
		issues = append(issues, store.Issue{Severity: "error", Message: fmt.Sprintf("project %s: path is not a directory: %s", p.ID, p.Path)})
		return issues
	}
	if !manifest.Exists(p.Path) {
		issues = append(issues, store.Issue{Severity: "error", Message: fmt.Sprintf("project %s: manifest %s is missing", p.ID, manifest.Filename)})
	}
	return issues
}

// CheckAllHealth runs health checks over the whole registry.
func CheckAllHealth(s *store.Store) ([]store.Issue, error) {
	projects, err := List(s)
	if err != nil {
		return nil, err
	}
	var issues []store.Issue
	for _, p := range projects {
		issues = append(issues, CheckHealth(p)...)
	}
	return issues, nil
}
