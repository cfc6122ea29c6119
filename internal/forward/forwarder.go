package forward

import (
	"context"
	"fmt"
	"time"

	"github.com/atikulmunna/lognorm/internal/metrics"
	"github.com/atikulmunna/lognorm/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Config controls batching and the target publisher.
type Config struct {
	Kind          string // "", "kafka" or "opensearch"
	BatchSize     int
	FlushInterval time.Duration
	Kafka         KafkaConfig
	OpenSearch    OpenSearchConfig
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type OpenSearchConfig struct {
	Addresses   []string
	IndexPrefix string
}

// NewPublisher builds the publisher selected by cfg.Kind. It returns nil
// with no error when forwarding is disabled.
func NewPublisher(cfg Config) (Publisher, error) {
	switch cfg.Kind {
	case "":
		return nil, nil
	case "kafka":
		pub, err := NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		return pub, nil
	case "opensearch":
		pub, err := NewOpenSearchPublisher(cfg.OpenSearch.Addresses, cfg.OpenSearch.IndexPrefix)
		if err != nil {
			return nil, err
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown forward kind %q (want kafka or opensearch)", cfg.Kind)
	}
}

// Forwarder batches entries and hands them to a Publisher. A batch is
// flushed when it reaches BatchSize or FlushInterval elapses.
type Forwarder struct {
	pub           Publisher
	runID         string
	batchSize     int
	flushInterval time.Duration
	log           *zap.Logger
}

// NewForwarder wraps pub. Non-positive batch settings fall back to 500 entries and 1s.
func NewForwarder(pub Publisher, runID string, cfg Config, log *zap.Logger) *Forwarder {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	return &Forwarder{
		pub:           pub,
		runID:         runID,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		log:           log.Named("forward").With(zap.String("target", pub.Name())),
	}
}

// Run consumes entries until the channel closes or ctx is done, flushing
// whatever is pending before it returns. Publish failures are logged and
// the batch is discarded.
func (f *Forwarder) Run(ctx context.Context, entries <-chan model.Entry) {
	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	batch := make([]Document, 0, f.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		f.publish(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flush(shutCtx)
			cancel()
			return
		case entry, ok := <-entries:
			if !ok {
				flush(ctx)
				return
			}
			batch = append(batch, NewDocument(f.runID, entry))
			if len(batch) >= f.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

func (f *Forwarder) publish(ctx context.Context, batch []Document) {
	target := f.pub.Name()
	timer := prometheus.NewTimer(metrics.ForwardDuration.WithLabelValues(target))
	err := f.pub.Publish(ctx, batch)
	timer.ObserveDuration()

	if err != nil {
		metrics.ForwardedEntries.WithLabelValues(target, "error").Add(float64(len(batch)))
		f.log.Error("publish failed", zap.Int("batch", len(batch)), zap.Error(err))
		return
	}
	metrics.ForwardedEntries.WithLabelValues(target, "ok").Add(float64(len(batch)))
	f.log.Debug("published batch", zap.Int("batch", len(batch)))
}

// Close releases the publisher.
func (f *Forwarder) Close() error {
	return f.pub.Close()
}
