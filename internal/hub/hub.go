package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atikulmunna/lognorm/internal/metrics"
	"github.com/atikulmunna/lognorm/internal/model"
	"github.com/atikulmunna/lognorm/internal/parser"
	"go.uber.org/zap"
)

const subscriberBuffer = 1024

// Hub classifies raw lines once and broadcasts the resulting entries to all subscribers.
type Hub struct {
	registry    *parser.Registry
	input       <-chan model.RawLine
	log         *zap.Logger
	mu          sync.RWMutex
	subscribers []chan model.Entry
	stopped     bool
	dropped     atomic.Int64
}

// New creates a Hub reading from input. Diagnostics about unparseable
// lines go to log at debug level.
func New(input <-chan model.RawLine, registry *parser.Registry, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		registry: registry,
		input:    input,
		log:      log.Named("hub"),
	}
}

// Subscribe returns a buffered channel that receives every entry.
// The channel is closed when the hub stops; after that, Subscribe
// returns an already closed channel.
func (h *Hub) Subscribe() <-chan model.Entry {
	ch := make(chan model.Entry, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		close(ch)
		return ch
	}
	h.subscribers = append(h.subscribers, ch)
	return ch
}

// Unsubscribe detaches ch and closes it. Unknown channels are ignored.
func (h *Hub) Unsubscribe(ch <-chan model.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sub := range h.subscribers {
		if sub == ch {
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Subscribers returns the number of attached subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns the total number of entries dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Start reads, classifies and broadcasts until ctx is done or input is closed.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	sink := h.log.Sugar()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-h.input:
			if !ok {
				return
			}
			rec, format := h.registry.ClassifyFormat(raw.Text, sink)
			metrics.LinesClassified.WithLabelValues(format.String()).Inc()
			h.broadcast(model.Entry{
				ObservedAt: time.Now(),
				Source:     raw.Source,
				Line:       raw.Line,
				Raw:        raw.Text,
				Format:     format,
				Record:     rec,
			})
		}
	}
}

// broadcast gives each subscriber its own copy of the record. A full
// subscriber channel drops the entry for that subscriber only.
func (h *Hub) broadcast(entry model.Entry) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i, ch := range h.subscribers {
		e := entry
		if i > 0 {
			e.Record = entry.Record.Clone()
		}
		select {
		case ch <- e:
		default:
			n := h.dropped.Add(1)
			metrics.HubDropped.Inc()
			h.log.Warn("dropped entry for slow consumer", zap.Int64("total_dropped", n))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
	h.stopped = true
}
