package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kokistudios/sower/internal/manifest"
	"github.com/kokistudios/sower/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	home := t.TempDir()
	if err := store.Init(home, false); err != nil {
		t.Fatalf("init store: %v", err)
	}
	s, err := store.Load(home)
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	return s
}

func seedProject(t *testing.T, id string, domains []string) string {
	t.Helper()
	root := t.TempDir()
	m := manifest.New(id, "a test project", domains, "0.1.0")
	if err := m.Save(root); err != nil {
		t.Fatalf("save manifest: %v", err)
	}
	return root
}

func TestRegisterAndGet(t *testing.T) {
	s := newStore(t)
	root := seedProject(t, "atlas", []string{"go", "web"})

	p, err := Register(s, root)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if p.ID != "atlas" {
		t.Errorf("ID = %q, want atlas", p.ID)
	}
	if len(p.Domains) != 2 {
		t.Errorf("Domains = %v, want [go web]", p.Domains)
	}

	got, err := Get(s, "atlas")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Path != p.Path {
		t.Errorf("Path = %q, want %q", got.Path, p.Path)
	}
}

func TestRegisterRequiresManifest(t *testing.T) {
	s := newStore(t)
	root := t.TempDir()

	if _, err := Register(s, root); err == nil {
		t.Fatal("expected error registering an unseeded directory")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := newStore(t)
	root := seedProject(t, "atlas", []string{"go"})

	if _, err := Register(s, root); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := Register(s, root); err == nil {
		t.Fatal("expected error on duplicate registration")
	}
}

func TestRecordFilename(t *testing.T) {
	s := newStore(t)
	root := seedProject(t, "atlas", []string{"go"})

	if _, err := Register(s, root); err != nil {
		t.Fatalf("Register: %v", err)
	}
	record := filepath.Join(s.Path("projects"), "PROJECT_ATLAS.md")
	data, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("record file not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "---\n") {
		t.Error("record missing frontmatter")
	}
}

func TestList(t *testing.T) {
	s := newStore(t)
	for _, id := range []string{"atlas", "borealis"} {
		root := seedProject(t, id, []string{"go"})
		if _, err := Register(s, root); err != nil {
			t.Fatalf("Register %s: %v", id, err)
		}
	}

	projects, err := List(s)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}
}

func TestRemove(t *testing.T) {
	s := newStore(t)
	root := seedProject(t, "atlas", []string{"go"})
	if _, err := Register(s, root); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := Remove(s, "atlas"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := Get(s, "atlas"); err == nil {
		t.Fatal("project still present after Remove")
	}
	// removal must not touch the project's own tree
	if !manifest.Exists(root) {
		t.Error("Remove deleted the project's manifest")
	}
}

func TestCheckHealth(t *testing.T) {
	s := newStore(t)
	root := seedProject(t, "atlas", []string{"go"})
	p, err := Register(s, root)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if issues := CheckHealth(*p); len(issues) != 0 {
		t.Errorf("healthy project reported issues: %v", issues)
	}

	os.Remove(filepath.Join(root, manifest.Filename))
	issues := CheckHealth(*p)
	if len(issues) != 1 || issues[0].Severity != "error" {
		t.Errorf("missing manifest not reported: %v", issues)
	}
}
