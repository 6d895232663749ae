package ui

import (
	"strings"
	"testing"
)

func TestBold_ContainsText(t *testing.T) {
	Init(true)
	if got := Bold("hello"); !strings.Contains(got, "hello") {
		t.Errorf("Bold output missing text: %q", got)
	}
}

func TestColorDisabled_PlainText(t *testing.T) {
	Init(true)
	defer Init(false)

	for name, fn := range map[string]func(string) string{
		"Bold":   Bold,
		"Dim":    Dim,
		"Red":    Red,
		"Green":  Green,
		"Yellow": Yellow,
	} {
		if got := fn("plain"); got != "plain" {
			t.Errorf("%s with color disabled = %q, want plain text", name, got)
		}
	}
}

func TestLoggerInitialized(t *testing.T) {
	Init(true)
	if Logger == nil {
		t.Fatal("Logger not initialized after Init")
	}
}

func TestLogo_NoErrors(t *testing.T) {
	Init(true)
	Logo()
	LogoWithTagline("seed canonical artifacts across projects")
}

func TestSpinner_StartStop(t *testing.T) {
	Init(true)
	s := NewSpinner("working")
	s.Stop()
	s.Stop() // repeated Stop must not panic
}

func TestRenderMarkdown_NoErrors(t *testing.T) {
	Init(true)
	RenderMarkdown("# Learnings\n\n- One insight per bullet.\n")
}
