package model

import "time"

// RawLine is one line of text read from a log source, before classification.
type RawLine struct {
	Text   string
	Source string // originating file path
	Line   int    // 1-based line number within Source, 0 when unknown
}

// Entry is a classified line.
type Entry struct {
	ObservedAt time.Time `json:"observed_at"`
	Source     string    `json:"source"`
	Line       int       `json:"line,omitempty"`
	Raw        string    `json:"raw"`
	Format     Format    `json:"format"`
	Record     Record    `json:"record"`
}

// Parsed reports whether any recognizer or the JSON fallback produced fields.
func (e Entry) Parsed() bool {
	return !e.Record.Empty()
}
