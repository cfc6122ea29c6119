package model

// Canonical record keys.
const (
	KeyLevel    = "level"
	KeyMessage  = "msg"
	KeySeverity = "severity"
)

// Record is the normalized form of one log line.
//
// Records produced by the textual recognizers hold string values only.
// Records produced by the JSON fallback keep every top-level key of the
// decoded object. An empty Record means nothing could be extracted.
type Record map[string]any

// Empty reports whether nothing was extracted from the line.
func (r Record) Empty() bool {
	return len(r) == 0
}

// Level returns the level value when it is a string.
func (r Record) Level() (string, bool) {
	s, ok := r[KeyLevel].(string)
	return s, ok
}

// Message returns the msg value when it is a string.
func (r Record) Message() (string, bool) {
	s, ok := r[KeyMessage].(string)
	return s, ok
}

// Clone returns a shallow copy so subscribers can't mutate each other's view.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
