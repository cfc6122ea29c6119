package parser

import (
	"errors"
	"fmt"
)

// Sink receives diagnostics about lines that could not be classified.
// *zap.SugaredLogger satisfies it.
type Sink interface {
	Debugw(msg string, keysAndValues ...any)
}

// NopSink discards diagnostics.
type NopSink struct{}

func (NopSink) Debugw(string, ...any) {}

// ErrUnrecognized is matched by every *UnrecognizedError.
var ErrUnrecognized = errors.New("line not recognized by any format")

// UnrecognizedError reports a line that matched no recognizer and could
// not be decoded as a JSON object.
type UnrecognizedError struct {
	Line string
	Err  error // JSON decode failure
}

func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("%v: %v", ErrUnrecognized, e.Err)
}

func (e *UnrecognizedError) Unwrap() []error {
	return []error{ErrUnrecognized, e.Err}
}
