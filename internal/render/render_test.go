package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kokistudios/sower/internal/manifest"
	"github.com/kokistudios/sower/internal/store"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	home := filepath.Join(t.TempDir(), ".sower")
	if err := store.Init(home, false); err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	s, err := store.Load(home)
	if err != nil {
		t.Fatalf("store.Load: %v", err)
	}
	return s
}

func writeCanonical(t *testing.T, s *store.Store, rel, content string) {
	t.Helper()
	p := s.Path(filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestRender_Placeholders(t *testing.T) {
	b := Bindings{ProjectName: "atlas", ProjectDescription: "A mapping service"}
	out := Render("Hello, {{project_name}}!\n{{project_description}}", b)

	if out != "Hello, atlas!\nA mapping service" {
		t.Errorf("unexpected render output: %q", out)
	}
	if strings.Contains(out, "{{") {
		t.Errorf("placeholder tokens remain: %q", out)
	}
}

func TestRender_UnknownTokenPassesThrough(t *testing.T) {
	b := Bindings{ProjectName: "atlas"}
	template := "{{project_name}} uses {{some_other_syntax}} literally"
	out := Render(template, b)

	if !strings.Contains(out, "{{some_other_syntax}}") {
		t.Errorf("unknown token was corrupted: %q", out)
	}
	if !strings.Contains(out, "atlas") {
		t.Errorf("known token not replaced: %q", out)
	}
}

func TestRender_NoPlaceholders(t *testing.T) {
	template := "This is plain text without placeholders."
	if out := Render(template, Bindings{ProjectName: "x"}); out != template {
		t.Errorf("plain text changed: %q", out)
	}
}

func TestCompose_Ordering(t *testing.T) {
	out := Compose("base rules", []Overlay{
		{Title: "Go", Content: "go rules"},
		{Title: "Web", Content: "web rules"},
	})

	iBase := strings.Index(out, "base rules")
	iGo := strings.Index(out, "# Go")
	iWeb := strings.Index(out, "# Web")
	if !(iBase < iGo && iGo < iWeb) {
		t.Errorf("compose order wrong:\n%s", out)
	}
}

func TestComposeInstructions(t *testing.T) {
	s := setupStore(t)
	writeCanonical(t, s, "templates/instructions/base.md", "# Base\n\nGeneral rules.")
	writeCanonical(t, s, "templates/instructions/go.md", "Use gofmt.")

	m := manifest.New("atlas", "", []string{"go", "web"}, s.Config.Canonical.Version)
	out, err := ComposeInstructions(s, m)
	if err != nil {
		t.Fatalf("ComposeInstructions: %v", err)
	}

	if !strings.HasPrefix(out, "<!-- Generated by sower v"+s.Config.Canonical.Version) {
		t.Errorf("missing generated header:\n%s", out)
	}
	if !strings.Contains(out, "Domains: go, web") {
		t.Errorf("missing domains header:\n%s", out)
	}
	if !strings.Contains(out, "# Go") || !strings.Contains(out, "Use gofmt.") {
		t.Errorf("go overlay not composed:\n%s", out)
	}
	// web has no overlay file; it must be skipped without error
	if strings.Contains(out, "# Web") {
		t.Errorf("missing overlay produced a section:\n%s", out)
	}
}

func TestComposeInstructions_MissingBase(t *testing.T) {
	s := setupStore(t)
	os.Remove(s.InstructionsBasePath())

	m := manifest.New("atlas", "", []string{"go"}, "0.1.0")
	if _, err := ComposeInstructions(s, m); err == nil {
		t.Fatal("expected error when base.md is missing")
	}
}

func TestComposeLearnings(t *testing.T) {
	s := setupStore(t)
	writeCanonical(t, s, "learnings/LEARNINGS.md", "# Learnings\n\n- General tip.")
	writeCanonical(t, s, "learnings/LEARNINGS.go.md", "- Check errors.")

	m := manifest.New("atlas", "", []string{"go"}, "0.1.0")
	out := ComposeLearnings(s, m)

	if !strings.Contains(out, "- General tip.") {
		t.Errorf("general learnings missing:\n%s", out)
	}
	if !strings.Contains(out, "## Go Learnings") || !strings.Contains(out, "- Check errors.") {
		t.Errorf("domain learnings missing:\n%s", out)
	}
}

func TestAll(t *testing.T) {
	s := setupStore(t)
	writeCanonical(t, s, "templates/prompts/_impl.prompt.md", "# {{project_name}} Implementation\n\n{{project_description}}")

	m := manifest.New("atlas", "A mapping service", []string{"go"}, "0.1.0")
	rendered, err := All(s, m)
	if err != nil {
		t.Fatalf("All: %v", err)
	}

	if _, ok := rendered[InstructionsRelPath]; !ok {
		t.Error("instructions artifact missing from render set")
	}
	if _, ok := rendered[LearningsRelPath]; !ok {
		t.Error("learnings artifact missing from render set")
	}

	prompt, ok := rendered[".github/prompts/atlas_impl.prompt.md"]
	if !ok {
		t.Fatalf("prompt artifact missing, got paths: %v", keys(rendered))
	}
	if !strings.Contains(prompt, "# atlas Implementation") {
		t.Errorf("prompt not rendered: %q", prompt)
	}
	if strings.Contains(prompt, "{{project_") {
		t.Errorf("placeholder remains in prompt: %q", prompt)
	}
}

func keys(m map[string]string) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}
