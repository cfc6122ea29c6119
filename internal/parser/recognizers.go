package parser

import (
	"regexp"
	"strings"

	"github.com/atikulmunna/lognorm/internal/model"
)

// regexRecognizer is a Recognizer whose shape test is an anchored regexp.
type regexRecognizer struct {
	name    string
	format  model.Format
	re      *regexp.Regexp
	extract func(m []string) model.Record
}

func (r *regexRecognizer) Name() string         { return r.name }
func (r *regexRecognizer) Format() model.Format { return r.format }
func (r *regexRecognizer) Pattern() string      { return r.re.String() }

func (r *regexRecognizer) Recognize(line string) (model.Record, bool) {
	m := r.re.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return normalize(r.extract(m)), true
}

// klog: level letter, MMDD HH:MM:SS.ffffff, thread id, file:line], message.
const klogPattern = `^\s*` +
	`(\w)` + // 1: level letter
	`(\d{2})(\d{2})\s(\d{2}):(\d{2}):(\d{2})\.(\d{6})` + // 2-7: timestamp
	`\s+(\d+)` + // 8: thread id
	`\s(.+):(\d+)\]\s` + // 9-10: file, line
	`(.*?)` + // 11: message
	`\s*$`

var klogLevels = map[string]string{
	"E": "error",
	"I": "info",
	"W": "warn",
	"F": "fatal",
}

// extractKlog sets no level for letters outside klogLevels; the line still counts as klog.
func extractKlog(m []string) model.Record {
	rec := model.Record{model.KeyMessage: m[11]}
	if lvl, ok := klogLevels[m[1]]; ok {
		rec[model.KeyLevel] = lvl
	}
	return rec
}

const (
	isoMillisTimestamp = `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z`
	epochTimestamp     = `\d{1}\.\d+e\+\d{2}`
)

// wordLevelPattern is the logr/zap console shape: timestamp, LEVEL, source, message.
func wordLevelPattern(timestamp string) string {
	return `^\s*` +
		`(` + timestamp + `)` + // 1: timestamp
		`\s+([A-Z]+)` + // 2: level
		`\s+(\S+)` + // 3: source
		`\s+(.*?)` + // 4: message
		`\s*$`
}

func extractWordLevel(m []string) model.Record {
	return model.Record{
		model.KeyLevel:   strings.ToLower(m[2]),
		model.KeyMessage: m[4],
	}
}

// logrus text formatter. The message runs to the first quote not preceded
// by a backslash whose remainder still completes the line.
const logrusPattern = `^\s*` +
	`time="(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z)"` + // 1: timestamp
	`\s+level=([a-z]+)` + // 2: level
	`\s+msg="(.*?[^\\])"` + // 3: message
	`.*` +
	`\s+(src="(.*?)")?` + // 4-5: src
	`\s*$`

func extractLogrus(m []string) model.Record {
	return model.Record{
		model.KeyLevel:   m[2],
		model.KeyMessage: m[3],
	}
}

// Builtin returns the built-in recognizers in priority order.
//
// logr-alt currently accepts exactly the lines logr accepts, so logr always
// wins. It stays as a separate link so the two conventions can diverge.
func Builtin() []Recognizer {
	return []Recognizer{
		&regexRecognizer{
			name:    "klog",
			format:  model.FormatKlog,
			re:      regexp.MustCompile(klogPattern),
			extract: extractKlog,
		},
		&regexRecognizer{
			name:    "logr",
			format:  model.FormatLogr,
			re:      regexp.MustCompile(wordLevelPattern(isoMillisTimestamp)),
			extract: extractWordLevel,
		},
		&regexRecognizer{
			name:    "logr-epoch",
			format:  model.FormatLogrEpoch,
			re:      regexp.MustCompile(wordLevelPattern(epochTimestamp)),
			extract: extractWordLevel,
		},
		&regexRecognizer{
			name:    "logrus",
			format:  model.FormatLogrus,
			re:      regexp.MustCompile(logrusPattern),
			extract: extractLogrus,
		},
		&regexRecognizer{
			name:    "logr-alt",
			format:  model.FormatLogrAlt,
			re:      regexp.MustCompile(wordLevelPattern(isoMillisTimestamp)),
			extract: extractWordLevel,
		},
	}
}
