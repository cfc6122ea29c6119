package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atikulmunna/lognorm/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Renderer writes classified entries to an output stream.
type Renderer interface {
	Render(entry model.Entry) error
}

// New returns the renderer registered under name ("text" or "json").
func New(name string, w io.Writer) (Renderer, error) {
	if w == nil {
		w = os.Stdout
	}
	switch name {
	case "", "text":
		return NewTextRenderer(w), nil
	case "json":
		return NewJSONRenderer(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", name)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleDebug = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))            // yellow
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
	styleFatal = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("196")).
			Bold(true) // white on red
	styleSource  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true) // cyan
	styleUnknown = lipgloss.NewStyle().Faint(true).Italic(true)
)

// TextRenderer prints one line per entry with level-based colors.
// Unparseable lines are printed raw in a faint style.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(entry model.Entry) error {
	src := entry.Source
	if src != "" {
		src = filepath.Base(src)
		if entry.Line > 0 {
			src = fmt.Sprintf("%s:%d", src, entry.Line)
		}
		src = styleSource.Render(src) + " "
	}

	if !entry.Parsed() {
		_, err := fmt.Fprintf(r.w, "%s%s %s\n", src, styleLevelTag("", true), styleUnknown.Render(entry.Raw))
		return err
	}

	level, _ := entry.Record.Level()
	msg, ok := entry.Record.Message()
	if !ok {
		msg = entry.Raw
	}
	_, err := fmt.Fprintf(r.w, "%s%s %s\n", src, styleLevelTag(level, false), msg)
	return err
}

func styleLevelTag(level string, unparsed bool) string {
	if unparsed {
		return styleUnknown.Render(fmt.Sprintf("%-5s", "?"))
	}
	if level == "" {
		level = "-"
	}
	padded := fmt.Sprintf("%-5s", strings.ToUpper(level))
	switch level {
	case "debug", "trace":
		return styleDebug.Render(padded)
	case "warn", "warning":
		return styleWarn.Render(padded)
	case "error":
		return styleError.Render(padded)
	case "fatal", "panic":
		return styleFatal.Render(padded)
	default:
		return styleInfo.Render(padded)
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each entry as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(entry model.Entry) error {
	return r.enc.Encode(entry)
}

// ---------------------------------------------------------------------------
// Filtering
// ---------------------------------------------------------------------------

// LevelFilter passes through entries whose level is one of levels.
// An empty level list passes everything.
type LevelFilter struct {
	next   Renderer
	levels map[string]bool
}

// FilterLevels wraps next so that only entries at the given levels are rendered.
func FilterLevels(next Renderer, levels []string) Renderer {
	if len(levels) == 0 {
		return next
	}
	set := make(map[string]bool, len(levels))
	for _, l := range levels {
		set[strings.ToLower(strings.TrimSpace(l))] = true
	}
	return &LevelFilter{next: next, levels: set}
}

func (f *LevelFilter) Render(entry model.Entry) error {
	level, ok := entry.Record.Level()
	if !ok || !f.levels[level] {
		return nil
	}
	return f.next.Render(entry)
}
