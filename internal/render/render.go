// Package render produces the expected content of every templated artifact:
// placeholder substitution for prompt templates and base+overlay composition
// for the instructions and learnings documents.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kokistudios/sower/internal/manifest"
	"github.com/kokistudios/sower/internal/store"
)

// Project-relative paths of the artifacts sower manages.
const (
	InstructionsRelPath = ".github/copilot-instructions.md"
	PromptsRelDir       = ".github/prompts"
	LearningsRelPath    = "LEARNINGS.md"
)

// Placeholder tokens. Any other double-brace sequence passes through
// verbatim; templates may contain unrelated {{...}} syntax.
const (
	PlaceholderName        = "{{project_name}}"
	PlaceholderDescription = "{{project_description}}"
)

// Bindings are the values substituted into prompt templates.
type Bindings struct {
	ProjectName        string
	ProjectDescription string
}

// BindingsFor extracts template bindings from a project manifest.
func BindingsFor(m *manifest.Manifest) Bindings {
	return Bindings{
		ProjectName:        m.ProjectID,
		ProjectDescription: m.Description,
	}
}

// Render replaces every placeholder occurrence with its bound value.
// Unknown double-brace tokens are left untouched.
func Render(template string, b Bindings) string {
	out := strings.ReplaceAll(template, PlaceholderName, b.ProjectName)
	out = strings.ReplaceAll(out, PlaceholderDescription, b.ProjectDescription)
	return out
}

// Overlay is one titled fragment appended after a base document.
type Overlay struct {
	Title   string
	Content string
}

// Compose concatenates base followed by overlays in order, each introduced
// by a section marker. Overlays must not restate base rules; that convention
// is enforced by review, not here.
func Compose(base string, overlays []Overlay) string {
	var b strings.Builder
	b.WriteString(base)
	for _, o := range overlays {
		b.WriteString(fmt.Sprintf("\n\n# %s\n\n%s", o.Title, o.Content))
	}
	return b.String()
}

// ComposeInstructions builds the full rule document for a project:
// generated header, canonical base, then one overlay per selected domain
// that has a canonical overlay file.
func ComposeInstructions(st *store.Store, m *manifest.Manifest) (string, error) {
	base, err := os.ReadFile(st.InstructionsBasePath())
	if err != nil {
		return "", fmt.Errorf("base instructions not found: %w", err)
	}

	header := fmt.Sprintf(
		"<!-- Generated by sower v%s — Do not edit this header -->\n<!-- Domains: %s -->\n\n",
		st.Config.Canonical.Version, strings.Join(m.Domains, ", "))

	var overlays []Overlay
	for _, domain := range m.Domains {
		data, err := os.ReadFile(st.InstructionsOverlayPath(domain))
		if err != nil {
			continue // no overlay for this domain
		}
		overlays = append(overlays, Overlay{Title: titleCase(domain), Content: string(data)})
	}

	return header + Compose(string(base), overlays), nil
}

// ComposeLearnings builds the project's note document from the canonical
// general collection plus each selected domain's collection.
func ComposeLearnings(st *store.Store, m *manifest.Manifest) string {
	var content string
	if data, err := os.ReadFile(st.LearningsPath("general")); err == nil {
		content = string(data)
	}

	for _, domain := range m.Domains {
		data, err := os.ReadFile(st.LearningsPath(domain))
		if err != nil {
			continue
		}
		if content != "" {
			content += fmt.Sprintf("\n\n## %s Learnings\n\n%s", titleCase(domain), string(data))
		} else {
			content = string(data)
		}
	}

	return content
}

// All renders the complete expected artifact set for a project, keyed by
// project-relative path. Prompt templates are canonical files named
// _<name>.prompt.md; their rendered copies are prefixed with the project id.
func All(st *store.Store, m *manifest.Manifest) (map[string]string, error) {
	rendered := map[string]string{}

	instructions, err := ComposeInstructions(st, m)
	if err != nil {
		return nil, err
	}
	rendered[InstructionsRelPath] = instructions

	b := BindingsFor(m)
	entries, err := os.ReadDir(st.PromptTemplatesDir())
	if err == nil {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if strings.HasPrefix(e.Name(), "_") && strings.HasSuffix(e.Name(), ".prompt.md") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			data, err := os.ReadFile(filepath.Join(st.PromptTemplatesDir(), name))
			if err != nil {
				return nil, fmt.Errorf("cannot read prompt template %s: %w", name, err)
			}
			// _impl.prompt.md becomes <project>_impl.prompt.md
			target := PromptsRelDir + "/" + m.ProjectID + name
			rendered[target] = Render(string(data), b)
		}
	}

	rendered[LearningsRelPath] = ComposeLearnings(st, m)

	return rendered, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
