package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitAndLoad(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".sower")
	if err := Init(home, false); err != nil {
		t.Fatalf("Init: %v", err)
	}

	for _, dir := range []string{"projects", "learnings", "templates/instructions", "templates/prompts"} {
		if _, err := os.Stat(filepath.Join(home, filepath.FromSlash(dir))); err != nil {
			t.Errorf("missing directory after Init: %s", dir)
		}
	}

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Config.Version != "1" {
		t.Errorf("Config.Version = %q, want %q", s.Config.Version, "1")
	}
	if s.Config.Sync.DedupThreshold != 0.85 {
		t.Errorf("DedupThreshold = %v, want 0.85", s.Config.Sync.DedupThreshold)
	}
	if s.Config.Canonical.Version != "0.1.0" {
		t.Errorf("Canonical.Version = %q, want 0.1.0", s.Config.Canonical.Version)
	}
}

func TestInit_ExistingEmptyDirectory(t *testing.T) {
	// t.TempDir() exists but is empty; Init must proceed into it.
	home := t.TempDir()
	if err := Init(home, false); err != nil {
		t.Fatalf("Init into empty existing directory: %v", err)
	}
	if _, err := Load(home); err != nil {
		t.Fatalf("Load after Init: %v", err)
	}
}

func TestInit_ExistingWithoutForce(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".sower")
	if err := Init(home, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := Init(home, false); err == nil {
		t.Fatal("expected error when reinitializing without force")
	}
	if err := Init(home, true); err != nil {
		t.Fatalf("Init with force: %v", err)
	}
}

func TestInit_WritesStarterContent(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".sower")
	if err := Init(home, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "templates", "instructions", "base.md")); err != nil {
		t.Error("base.md not written on Init")
	}
	if _, err := os.Stat(filepath.Join(home, "learnings", "LEARNINGS.md")); err != nil {
		t.Error("LEARNINGS.md not written on Init")
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing SOWER_HOME")
	}
}

func TestSetConfigValue(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".sower")
	if err := Init(home, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := s.SetConfigValue("canonical.version", "0.2.0"); err != nil {
		t.Fatalf("SetConfigValue: %v", err)
	}
	reloaded, err := Load(home)
	if err != nil {
		t.Fatalf("Load after set: %v", err)
	}
	if reloaded.Config.Canonical.Version != "0.2.0" {
		t.Errorf("canonical.version = %q, want 0.2.0", reloaded.Config.Canonical.Version)
	}

	if err := s.SetConfigValue("sync.dedup_threshold", "1.5"); err == nil {
		t.Error("expected error for out-of-range threshold")
	}
	if err := s.SetConfigValue("bogus.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestLearningsPath(t *testing.T) {
	s := &Store{Home: "/tmp/sower-home"}
	if got := s.LearningsPath("general"); got != filepath.Join(s.Home, "learnings", "LEARNINGS.md") {
		t.Errorf("general path = %q", got)
	}
	if got := s.LearningsPath("go"); got != filepath.Join(s.Home, "learnings", "LEARNINGS.go.md") {
		t.Errorf("go path = %q", got)
	}
}

func TestCheckHealthAndFix(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".sower")
	if err := Init(home, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if issues := CheckHealth(home); len(issues) != 0 {
		t.Errorf("fresh home reported issues: %v", issues)
	}

	os.RemoveAll(filepath.Join(home, "projects"))
	os.Remove(filepath.Join(home, "templates", "instructions", "base.md"))
	issues := CheckHealth(home)
	if len(issues) == 0 {
		t.Fatal("expected issues after damaging home")
	}

	fixed := FixIssues(home)
	if len(fixed) == 0 {
		t.Fatal("expected FixIssues to repair something")
	}
	if issues := CheckHealth(home); len(issues) != 0 {
		t.Errorf("issues remain after fix: %v", issues)
	}
}
