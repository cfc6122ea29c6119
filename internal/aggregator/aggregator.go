package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atikulmunna/lognorm/internal/model"
	"github.com/google/uuid"
)

// DefaultFailLevels are the levels that make a run count as failed.
var DefaultFailLevels = []string{"error", "fatal"}

// ErrFailingLevel is returned by Err when a failing level was seen.
var ErrFailingLevel = errors.New("log contains failing level")

// epsWindow is the number of one-second buckets the event rate is averaged over.
const epsWindow = 5

// Failure describes the first line whose level is a failing level.
type Failure struct {
	Source  string `json:"source"`
	Line    int    `json:"line,omitempty"`
	Format  string `json:"format"`
	Level   string `json:"level"`
	Message string `json:"msg,omitempty"`
	Raw     string `json:"raw"`
}

// Stats holds a point-in-time snapshot of a run.
type Stats struct {
	RunID        string           `json:"run_id"`
	Uptime       string           `json:"uptime"`
	TotalLines   int64            `json:"total_lines"`
	Unparseable  int64            `json:"unparseable"`
	LevelLess    int64            `json:"level_less"`
	Failures     int64            `json:"failures"`
	FirstFailure *Failure         `json:"first_failure,omitempty"`
	EPS          float64          `json:"eps"`
	LevelCounts  map[string]int64 `json:"level_counts"`
	FormatCounts map[string]int64 `json:"format_counts"`
	DroppedLogs  int64            `json:"dropped_logs"`
	FilesWatched int              `json:"files_watched"`
}

// Config parameterizes an Aggregator. Zero values are usable.
type Config struct {
	RunID      string   // generated when empty
	FailLevels []string // DefaultFailLevels when nil
	Dropped    func() int64
	FileCount  func() int
}

// Aggregator counts classified entries and remembers the first failure.
// It is safe for concurrent use.
type Aggregator struct {
	mu         sync.RWMutex
	runID      string
	startTime  time.Time
	failLevels map[string]bool
	dropped    func() int64
	fileCount  func() int

	total        int64
	unparseable  int64
	levelLess    int64
	failures     int64
	firstFailure *Failure
	levelCounts  map[string]int64
	formatCounts map[string]int64
	rate         rateWindow
}

// New creates an Aggregator.
func New(cfg Config) *Aggregator {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.FailLevels == nil {
		cfg.FailLevels = DefaultFailLevels
	}
	if cfg.Dropped == nil {
		cfg.Dropped = func() int64 { return 0 }
	}
	if cfg.FileCount == nil {
		cfg.FileCount = func() int { return 0 }
	}

	fail := make(map[string]bool, len(cfg.FailLevels))
	for _, l := range cfg.FailLevels {
		fail[strings.ToLower(strings.TrimSpace(l))] = true
	}

	return &Aggregator{
		runID:        cfg.RunID,
		startTime:    time.Now(),
		failLevels:   fail,
		dropped:      cfg.Dropped,
		fileCount:    cfg.FileCount,
		levelCounts:  make(map[string]int64),
		formatCounts: make(map[string]int64),
	}
}

// RunID identifies this run in reports and forwarded documents.
func (a *Aggregator) RunID() string { return a.runID }

// IsFailing reports whether rec carries a failing level.
func (a *Aggregator) IsFailing(rec model.Record) bool {
	lvl, ok := rec.Level()
	return ok && a.failLevels[lvl]
}

// Record adds an entry and reports whether its level is a failing level.
func (a *Aggregator) Record(entry model.Entry) bool {
	failing := a.IsFailing(entry.Record)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.formatCounts[entry.Format.String()]++
	a.rate.add(time.Now())

	switch lvl, ok := entry.Record.Level(); {
	case entry.Record.Empty():
		a.unparseable++
	case !ok:
		a.levelLess++
	default:
		a.levelCounts[lvl]++
	}

	if failing {
		a.failures++
		if a.firstFailure == nil {
			lvl, _ := entry.Record.Level()
			msg, _ := entry.Record.Message()
			a.firstFailure = &Failure{
				Source:  entry.Source,
				Line:    entry.Line,
				Format:  entry.Format.String(),
				Level:   lvl,
				Message: msg,
				Raw:     entry.Raw,
			}
		}
	}
	return failing
}

// Failed reports whether any failing level has been recorded.
func (a *Aggregator) Failed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.failures > 0
}

// Err returns nil for a clean run, or an error wrapping ErrFailingLevel
// that points at the first failing line.
func (a *Aggregator) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.firstFailure == nil {
		return nil
	}
	f := a.firstFailure
	return fmt.Errorf("%w: %d line(s), first at %s:%d (%s): %s",
		ErrFailingLevel, a.failures, f.Source, f.Line, f.Level, f.Raw)
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	levels := make(map[string]int64, len(a.levelCounts))
	for k, v := range a.levelCounts {
		levels[k] = v
	}
	formats := make(map[string]int64, len(a.formatCounts))
	for k, v := range a.formatCounts {
		formats[k] = v
	}

	var first *Failure
	if a.firstFailure != nil {
		f := *a.firstFailure
		first = &f
	}

	return Stats{
		RunID:        a.runID,
		Uptime:       time.Since(a.startTime).Truncate(time.Second).String(),
		TotalLines:   a.total,
		Unparseable:  a.unparseable,
		LevelLess:    a.levelLess,
		Failures:     a.failures,
		FirstFailure: first,
		EPS:          a.rate.perSecond(time.Now()),
		LevelCounts:  levels,
		FormatCounts: formats,
		DroppedLogs:  a.dropped(),
		FilesWatched: a.fileCount(),
	}
}

// Start consumes entries until ctx is done or entries is closed.
func (a *Aggregator) Start(ctx context.Context, entries <-chan model.Entry) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			a.Record(entry)
		}
	}
}

// rateWindow counts arrivals in epsWindow one-second buckets keyed by
// Unix second, so memory stays constant however many lines are recorded.
type rateWindow struct {
	secs   [epsWindow]int64
	counts [epsWindow]int64
}

func (w *rateWindow) add(now time.Time) {
	sec := now.Unix()
	i := sec % epsWindow
	if w.secs[i] != sec {
		w.secs[i] = sec
		w.counts[i] = 0
	}
	w.counts[i]++
}

// perSecond averages the buckets that fall inside the last epsWindow seconds.
func (w *rateWindow) perSecond(now time.Time) float64 {
	sec := now.Unix()
	var total int64
	for i := range w.secs {
		if age := sec - w.secs[i]; age >= 0 && age < epsWindow {
			total += w.counts[i]
		}
	}
	return float64(total) / epsWindow
}
