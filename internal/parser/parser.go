package parser

import (
	"github.com/atikulmunna/lognorm/internal/model"
)

// Recognizer binds a line shape to an extraction rule for one logging convention.
type Recognizer interface {
	// Name identifies the recognizer in listings.
	Name() string
	// Format is the tag recorded on entries this recognizer classifies.
	Format() model.Format
	// Pattern is the source of the shape test, for auditing.
	Pattern() string
	// Recognize returns the extracted, normalized fields when the line
	// has this recognizer's shape.
	Recognize(line string) (model.Record, bool)
}

// Registry is an ordered chain of recognizers followed by the JSON fallback.
type Registry struct {
	recognizers []Recognizer
	json        *jsonFallback
}

// Option configures a Registry.
type Option func(*Registry)

// WithRecognizers appends recognizers after the built-in chain, in order.
func WithRecognizers(rs ...Recognizer) Option {
	return func(r *Registry) {
		r.recognizers = append(r.recognizers, rs...)
	}
}

// New returns a Registry holding the built-in chain plus any appended recognizers.
func New(opts ...Option) *Registry {
	r := &Registry{
		recognizers: Builtin(),
		json:        &jsonFallback{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recognizers returns the chain in priority order. The JSON fallback is not included.
func (r *Registry) Recognizers() []Recognizer {
	out := make([]Recognizer, len(r.recognizers))
	copy(out, r.recognizers)
	return out
}

// Parse classifies line. It returns an *UnrecognizedError when neither a
// recognizer nor the JSON fallback accepts the line.
func (r *Registry) Parse(line string) (model.Record, model.Format, error) {
	for _, rec := range r.recognizers {
		if fields, ok := rec.Recognize(line); ok {
			return fields, rec.Format(), nil
		}
	}

	fields, err := r.json.decode(line)
	if err != nil {
		return model.Record{}, model.FormatUnknown, &UnrecognizedError{Line: line, Err: err}
	}
	return fields, model.FormatJSON, nil
}

// Classify returns the normalized record for line. An unparseable line
// yields an empty record and one debug message on sink; sink may be nil.
func (r *Registry) Classify(line string, sink Sink) model.Record {
	rec, _ := r.ClassifyFormat(line, sink)
	return rec
}

// ClassifyFormat is Classify that also reports which format matched.
func (r *Registry) ClassifyFormat(line string, sink Sink) (model.Record, model.Format) {
	rec, format, err := r.Parse(line)
	if err != nil {
		if sink == nil {
			sink = NopSink{}
		}
		sink.Debugw("cannot parse line", "line", line, "error", err)
		return model.Record{}, model.FormatUnknown
	}
	return rec, format
}

var defaultRegistry = New()

// Classify classifies line with the built-in chain.
func Classify(line string, sink Sink) model.Record {
	return defaultRegistry.Classify(line, sink)
}
