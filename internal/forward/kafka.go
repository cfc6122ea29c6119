package forward

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes each document as one message keyed by its source file.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: no topic configured")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}, nil
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, docs []Document) error {
	msgs, err := kafkaMessages(docs)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func kafkaMessages(docs []Document) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, len(docs))
	for i, doc := range docs {
		value, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal document %s:%d: %w", doc.Source, doc.Line, err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(doc.Source),
			Value: value,
			Time:  doc.ObservedAt,
		}
	}
	return msgs, nil
}
