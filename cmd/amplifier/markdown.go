package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// MarkdownRenderer renders assistant output as styled terminal markdown.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer sized to the terminal. plainText
// selects an uncolored style for non-TTY output.
func NewMarkdownRenderer(plainText bool) (*MarkdownRenderer, error) {
	// Terminal width drives word wrapping, capped for readability.
	termWidth := 80
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		termWidth = width - 4
		if termWidth > 120 {
			termWidth = 120
		}
	}

	var style glamour.TermRendererOption
	if plainText {
		style = glamour.WithStandardStyle("notty")
	} else {
		style = glamour.WithStandardStyle("dark")
	}

	renderer, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(termWidth),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	return &MarkdownRenderer{renderer: renderer}, nil
}

// Render renders markdown content to styled terminal output. Empty content
// renders to empty output; render failures fall back to the raw text.
func (mr *MarkdownRenderer) Render(content string) string {
	if content == "" {
		return ""
	}
	rendered, err := mr.renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
