package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CanonicalConfig identifies the canonical content set.
type CanonicalConfig struct {
	Version string `yaml:"version"`
}

// SyncConfig holds synchronization engine settings.
type SyncConfig struct {
	DedupThreshold   float64 `yaml:"dedup_threshold"`
	DiffContextLines int     `yaml:"diff_context_lines"`
}

// Config holds sower configuration.
type Config struct {
	Version   string          `yaml:"version"`
	Canonical CanonicalConfig `yaml:"canonical,omitempty"`
	Sync      SyncConfig      `yaml:"sync,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Canonical: CanonicalConfig{
			Version: "0.1.0",
		},
		Sync: SyncConfig{
			DedupThreshold:   0.85,
			DiffContextLines: 3,
		},
	}
}

// Store represents a loaded SOWER_HOME: the canonical template tree,
// learnings collections, and the registry of seeded projects.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// managedDirs are the directories every SOWER_HOME must contain.
var managedDirs = []string{
	"projects",
	"learnings",
	filepath.Join("templates", "instructions"),
	filepath.Join("templates", "prompts"),
}

// Home returns the SOWER_HOME path, respecting the SOWER_HOME env var.
func Home() string {
	if h := os.Getenv("SOWER_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".sower")
	}
	return filepath.Join(home, ".sower")
}

// starterBase is written on init so compose works before any rules exist.
const starterBase = `# Engineering Rules

Rules in this document apply to every project. Domain overlays below add to
them and must never restate or contradict a base rule.
`

const starterLearnings = `# Learnings

- Record one insight per bullet. Prefix with a [domain] tag when it is not general.
`

// Init creates the SOWER_HOME directory structure. An existing but empty
// directory is fine; only a home that already carries sower content is
// refused without --force.
func Init(home string, force bool) error {
	if initialized(home) && !force {
		return fmt.Errorf("SOWER_HOME already exists at %s (use --force to reinitialize)", home)
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}
	for _, d := range managedDirs {
		p := filepath.Join(home, d)
		if err := os.MkdirAll(p, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	cfgPath := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	basePath := filepath.Join(home, "templates", "instructions", "base.md")
	if _, err := os.Stat(basePath); err != nil {
		if err := os.WriteFile(basePath, []byte(starterBase), 0644); err != nil {
			return fmt.Errorf("failed to write starter base: %w", err)
		}
	}
	learningsPath := filepath.Join(home, "learnings", "LEARNINGS.md")
	if _, err := os.Stat(learningsPath); err != nil {
		if err := os.WriteFile(learningsPath, []byte(starterLearnings), 0644); err != nil {
			return fmt.Errorf("failed to write starter learnings: %w", err)
		}
	}
	return nil
}

// initialized reports whether home already carries sower content:
// a config.yaml or any of the managed directories.
func initialized(home string) bool {
	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err == nil {
		return true
	}
	for _, d := range managedDirs {
		if _, err := os.Stat(filepath.Join(home, d)); err == nil {
			return true
		}
	}
	return false
}

// Load reads and validates an existing SOWER_HOME.
// Missing config fields are filled from defaults.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read SOWER_HOME config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return &Store{Home: home, Config: cfg}, nil
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	cfgPath := filepath.Join(s.Home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SetConfigValue sets a config value by dot-path key (e.g. "canonical.version").
func (s *Store) SetConfigValue(key, value string) error {
	switch key {
	case "canonical.version":
		s.Config.Canonical.Version = value
	case "sync.dedup_threshold":
		var f float64
		if _, err := fmt.Sscanf(value, "%g", &f); err != nil || f <= 0 || f > 1 {
			return fmt.Errorf("sync.dedup_threshold must be a number in (0, 1]")
		}
		s.Config.Sync.DedupThreshold = f
	case "sync.diff_context_lines":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 0 {
			return fmt.Errorf("sync.diff_context_lines must be a non-negative integer")
		}
		s.Config.Sync.DiffContextLines = n
	default:
		return fmt.Errorf("unknown config key: %s\nValid keys: canonical.version, sync.dedup_threshold, sync.diff_context_lines", key)
	}
	return s.SaveConfig()
}

// Path resolves a path within SOWER_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// InstructionsBasePath returns the canonical base rule document path.
func (s *Store) InstructionsBasePath() string {
	return s.Path("templates", "instructions", "base.md")
}

// InstructionsOverlayPath returns the overlay path for a domain.
func (s *Store) InstructionsOverlayPath(domain string) string {
	return s.Path("templates", "instructions", domain+".md")
}

// LearningsPath returns the canonical note collection for a domain.
// The "general" collection lives at learnings/LEARNINGS.md.
func (s *Store) LearningsPath(domain string) string {
	if domain == "" || domain == "general" {
		return s.Path("learnings", "LEARNINGS.md")
	}
	return s.Path("learnings", "LEARNINGS."+domain+".md")
}

// PromptTemplatesDir returns the canonical prompt template directory.
func (s *Store) PromptTemplatesDir() string {
	return s.Path("templates", "prompts")
}

// CheckHealth verifies SOWER_HOME structure integrity.
func CheckHealth(home string) []Issue {
	var issues []Issue

	for _, dir := range managedDirs {
		p := filepath.Join(home, dir)
		info, err := os.Stat(p)
		if err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("missing directory: %s", p)})
		} else if !info.IsDir() {
			issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", p)})
		}
	}

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
	} else {
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		}
	}

	if _, err := os.Stat(filepath.Join(home, "templates", "instructions", "base.md")); err != nil {
		issues = append(issues, Issue{"warning", "templates/instructions/base.md is missing; compose will fail until it exists"})
	}

	return issues
}

// FixIssues attempts to repair simple issues in SOWER_HOME.
func FixIssues(home string) []string {
	var fixed []string

	for _, dir := range managedDirs {
		p := filepath.Join(home, dir)
		if _, err := os.Stat(p); err != nil {
			if err := os.MkdirAll(p, 0755); err == nil {
				fixed = append(fixed, fmt.Sprintf("recreated missing directory: %s", dir))
			}
		}
	}

	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		cfg := DefaultConfig()
		data, _ := yaml.Marshal(cfg)
		if os.WriteFile(cfgPath, data, 0644) == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
	}

	basePath := filepath.Join(home, "templates", "instructions", "base.md")
	if _, err := os.Stat(basePath); err != nil {
		if os.WriteFile(basePath, []byte(starterBase), 0644) == nil {
			fixed = append(fixed, "recreated templates/instructions/base.md with starter content")
		}
	}

	return fixed
}
