package parser

import (
	"fmt"
	"regexp"

	"github.com/atikulmunna/lognorm/internal/model"
)

// PatternRecognizer matches a user-supplied regexp with named groups.
// Groups "level", "msg" and "message" fill the canonical keys; any other
// named group is copied verbatim.
type PatternRecognizer struct {
	name string
	re   *regexp.Regexp
}

// NewPatternRecognizer compiles pattern. The pattern is used as written,
// so anchor it if partial matches should be rejected.
func NewPatternRecognizer(name, pattern string) (*PatternRecognizer, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("format %q: invalid regex pattern: %w", name, err)
	}
	return &PatternRecognizer{name: name, re: re}, nil
}

func (p *PatternRecognizer) Name() string         { return p.name }
func (p *PatternRecognizer) Format() model.Format { return model.FormatCustom }
func (p *PatternRecognizer) Pattern() string      { return p.re.String() }

func (p *PatternRecognizer) Recognize(line string) (model.Record, bool) {
	m := p.re.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	rec := make(model.Record)
	for i, name := range p.re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		switch name {
		case "message", model.KeyMessage:
			rec[model.KeyMessage] = m[i]
		default:
			rec[name] = m[i]
		}
	}
	return normalize(rec), true
}
