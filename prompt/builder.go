package prompt

import (
	"fmt"
	"strings"
)

// Builder assembles a prompt from ordered parts.
type Builder struct {
	parts []string
}

// NewBuilder creates a new prompt builder
func NewBuilder() *Builder {
	return &Builder{
		parts: make([]string, 0),
	}
}

// Add adds a part to the prompt
func (b *Builder) Add(part string) *Builder {
	b.parts = append(b.parts, part)
	return b
}

// AddFormat adds a formatted part to the prompt
func (b *Builder) AddFormat(format string, args ...interface{}) *Builder {
	b.parts = append(b.parts, fmt.Sprintf(format, args...))
	return b
}

// AddSection adds a markdown section with an underlined title.
func (b *Builder) AddSection(title, content string) *Builder {
	b.parts = append(b.parts, fmt.Sprintf("## %s\n%s\n%s", title, strings.Repeat("-", len(title)), content))
	return b
}

// Len returns the number of parts added so far.
func (b *Builder) Len() int {
	return len(b.parts)
}

// Build returns the final prompt string
func (b *Builder) Build() string {
	return strings.Join(b.parts, "\n\n")
}

// Reset clears all parts
func (b *Builder) Reset() *Builder {
	b.parts = make([]string, 0)
	return b
}

// NormalizeText collapses runs of whitespace into single spaces. Chunk text
// extracted from PDFs carries hard line breaks mid-sentence; flattened text
// keeps evidence quotes matchable against the prompt.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
