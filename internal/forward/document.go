package forward

import (
	"context"
	"time"

	"github.com/atikulmunna/lognorm/internal/model"
)

// Document is the form in which an entry leaves the process.
type Document struct {
	RunID      string       `json:"run_id"`
	Source     string       `json:"source"`
	Line       int          `json:"line,omitempty"`
	Format     string       `json:"format"`
	Level      string       `json:"level,omitempty"`
	Message    string       `json:"msg,omitempty"`
	Record     model.Record `json:"record"`
	Raw        string       `json:"raw"`
	ObservedAt time.Time    `json:"observed_at"`
}

// NewDocument flattens entry for indexing.
func NewDocument(runID string, entry model.Entry) Document {
	level, _ := entry.Record.Level()
	msg, _ := entry.Record.Message()
	return Document{
		RunID:      runID,
		Source:     entry.Source,
		Line:       entry.Line,
		Format:     entry.Format.String(),
		Level:      level,
		Message:    msg,
		Record:     entry.Record,
		Raw:        entry.Raw,
		ObservedAt: entry.ObservedAt,
	}
}

// Publisher ships batches of documents to an external system.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, docs []Document) error
	Close() error
}
