package types

import (
	"strings"

	"github.com/google/uuid"
)

// Document is an immutable snapshot of source text. Every transformation
// yields a new Document sharing the lineage id with an incremented version.
type Document struct {
	id      string
	name    string
	text    string
	version int
}

// NewDocument starts a new lineage at version 0.
func NewDocument(name, text string) Document {
	return Document{
		id:   uuid.NewString(),
		name: name,
		text: text,
	}
}

func (d Document) ID() string      { return d.id }
func (d Document) Name() string    { return d.name }
func (d Document) Text() string    { return d.text }
func (d Document) Version() int    { return d.version }
func (d Document) IsZero() bool    { return d.id == "" }
func (d Document) Lines() []string { return strings.Split(d.text, "\n") }

// Next returns the successor snapshot holding text.
func (d Document) Next(text string) Document {
	return Document{
		id:      d.id,
		name:    d.name,
		text:    text,
		version: d.version + 1,
	}
}

// Position converts a byte offset into a 1-based line and column.
// Offsets past the end of the text clamp to the last position.
func (d Document) Position(offset int) LinePosition {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	line := 1 + strings.Count(d.text[:offset], "\n")
	lineStart := strings.LastIndexByte(d.text[:offset], '\n') + 1
	return LinePosition{Line: line, Column: offset - lineStart + 1}
}

// Slice returns the text covered by span, or "" when span is out of range.
func (d Document) Slice(span Span) string {
	if span.Start < 0 || span.End > len(d.text) || span.Start > span.End {
		return ""
	}
	return d.text[span.Start:span.End]
}
