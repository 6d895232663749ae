package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown pretty-prints a learnings collection to stderr. Rendering
// is best-effort: any glamour failure falls back to the verbatim document,
// since a note collection must stay readable on a dumb terminal too.
func RenderMarkdown(md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(88),
		glamour.WithPreservedNewLines(),
	)
	if err == nil {
		out, rerr := r.Render(md)
		if rerr == nil {
			fmt.Fprint(os.Stderr, out)
			return
		}
	}
	fmt.Fprintln(os.Stderr, md)
}
