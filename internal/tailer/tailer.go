package tailer

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atikulmunna/lognorm/internal/model"
	"github.com/atikulmunna/lognorm/internal/watcher"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	saveInterval     = 5 * time.Second
	reconnectRetries = 5
	reconnectDelay   = time.Second
)

// Tailer reads lines appended to watched files and emits them as RawLine values.
type Tailer struct {
	mu        sync.Mutex
	files     map[string]*trackedFile
	out       chan model.RawLine
	ckpt      *Checkpoint
	watch     *watcher.Watcher
	log       *zap.Logger
	fromStart bool
}

type trackedFile struct {
	path    string
	file    *os.File
	reader  *bufio.Reader
	offset  int64 // byte offset just past the last complete line
	line    int   // lines emitted so far
	partial string
}

// Config tunes a Tailer.
type Config struct {
	// FromStart reads files without a checkpoint from the beginning
	// instead of from their current end.
	FromStart bool
}

// New creates a Tailer fed by w's events.
func New(w *watcher.Watcher, ckpt *Checkpoint, cfg Config, log *zap.Logger) *Tailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tailer{
		files:     make(map[string]*trackedFile),
		out:       make(chan model.RawLine, 512),
		ckpt:      ckpt,
		watch:     w,
		log:       log.Named("tailer"),
		fromStart: cfg.FromStart,
	}
}

// Lines returns the channel where complete lines are sent.
func (t *Tailer) Lines() <-chan model.RawLine {
	return t.out
}

// Start processes watcher events until ctx is done. It closes Lines on return.
func (t *Tailer) Start(ctx context.Context) {
	defer close(t.out)

	for _, p := range t.watch.Paths() {
		t.openFile(p, false)
		t.readNewLines(ctx, p)
	}

	saveTicker := time.NewTicker(saveInterval)
	defer saveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.saveCheckpoint()
			t.closeAll()
			return

		case ev, ok := <-t.watch.Events:
			if !ok {
				t.saveCheckpoint()
				t.closeAll()
				return
			}
			t.handleEvent(ctx, ev)

		case <-saveTicker.C:
			t.saveCheckpoint()
		}
	}
}

func (t *Tailer) handleEvent(ctx context.Context, ev watcher.Event) {
	switch {
	case ev.Op&fsnotify.Write != 0:
		t.readNewLines(ctx, ev.Path)

	case ev.Op&fsnotify.Create != 0:
		t.openFile(ev.Path, true)
		t.readNewLines(ctx, ev.Path)

	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		t.closeFile(ev.Path)
		go t.reconnect(ctx, ev.Path)
	}
}

// openFile starts tracking path. A checkpointed position wins; otherwise
// the file is read from the start when fresh is set or the tailer was
// configured FromStart, and from its end otherwise.
func (t *Tailer) openFile(path string, fresh bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.files[path]; exists {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		t.log.Warn("cannot open file", zap.String("path", path), zap.Error(err))
		return
	}

	var (
		offset int64
		line   int
	)
	if saved, savedLine, ok := t.ckpt.Get(path); ok && !fresh {
		offset, line = saved, savedLine
		if fi, err := f.Stat(); err == nil && fi.Size() < offset {
			offset, line = 0, 0 // truncated while we were away
		}
	} else if !fresh && !t.fromStart {
		offset, _ = f.Seek(0, io.SeekEnd)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		t.log.Warn("cannot seek", zap.String("path", path), zap.Int64("offset", offset), zap.Error(err))
		_ = f.Close()
		return
	}

	t.files[path] = &trackedFile{
		path:   path,
		file:   f,
		reader: bufio.NewReader(f),
		offset: offset,
		line:   line,
	}
}

// readNewLines emits every complete line up to EOF. A trailing fragment
// without a newline is held until the rest of it arrives.
func (t *Tailer) readNewLines(ctx context.Context, path string) {
	t.mu.Lock()
	tf, ok := t.files[path]
	t.mu.Unlock()
	if !ok {
		return
	}

	if fi, err := tf.file.Stat(); err == nil && fi.Size() < tf.offset+int64(len(tf.partial)) {
		t.log.Info("file truncated, reading from start", zap.String("path", path))
		if _, err := tf.file.Seek(0, io.SeekStart); err != nil {
			return
		}
		tf.reader.Reset(tf.file)
		tf.offset, tf.line, tf.partial = 0, 0, ""
	}

	for {
		chunk, err := tf.reader.ReadString('\n')
		if err != nil {
			tf.partial += chunk
			if !errors.Is(err, io.EOF) {
				t.log.Warn("read error", zap.String("path", path), zap.Error(err))
			}
			break
		}

		text := tf.partial + chunk
		tf.offset += int64(len(text))
		tf.partial = ""
		tf.line++

		raw := model.RawLine{
			Text:   strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r"),
			Source: path,
			Line:   tf.line,
		}
		select {
		case t.out <- raw:
		case <-ctx.Done():
			return
		}
	}

	t.ckpt.Set(path, tf.offset, tf.line)
}

func (t *Tailer) closeFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tf, ok := t.files[path]; ok {
		_ = tf.file.Close()
		delete(t.files, path)
	}
}

// reconnect polls for a rotated file to reappear and follows the new file from its start.
func (t *Tailer) reconnect(ctx context.Context, path string) {
	for i := 0; i < reconnectRetries; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
		if _, err := os.Stat(path); err == nil {
			if err := t.watch.ReWatch(path); err != nil {
				t.log.Warn("cannot re-watch rotated file", zap.String("path", path), zap.Error(err))
			}
			t.openFile(path, true)
			t.log.Info("reconnected to rotated file", zap.String("path", path))
			return
		}
	}
	t.log.Warn("gave up reconnecting", zap.String("path", path), zap.Int("retries", reconnectRetries))
}

func (t *Tailer) saveCheckpoint() {
	if err := t.ckpt.Save(); err != nil {
		t.log.Warn("checkpoint save failed", zap.Error(err))
	}
}

func (t *Tailer) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for path, tf := range t.files {
		_ = tf.file.Close()
		delete(t.files, path)
	}
}
