package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"fedcore/internal/profile/models"
)

// Producer is the subset of *kgo.Client used to publish notifications.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// ProduceMetrics counts broker writes.
type ProduceMetrics interface {
	IncProduced(result string)
}

// KafkaNotifier publishes each notify_entity call as one record keyed by the
// recipient, so every recipient's notifications stay ordered within a
// partition. The event id travels as a header for consumer-side deduplication.
type KafkaNotifier struct {
	producer Producer
	topic    string
	logger   *slog.Logger
	metrics  ProduceMetrics
}

type KafkaOption func(*KafkaNotifier)

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(k *KafkaNotifier) {
		k.logger = logger
	}
}

func WithKafkaMetrics(m ProduceMetrics) KafkaOption {
	return func(k *KafkaNotifier) {
		k.metrics = m
	}
}

func NewKafkaNotifier(producer Producer, topic string, opts ...KafkaOption) *KafkaNotifier {
	k := &KafkaNotifier{producer: producer, topic: topic}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// NotifyEntity blocks until the broker acknowledges the record.
func (k *KafkaNotifier) NotifyEntity(ctx context.Context, n models.EntityNotification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(n.Entity),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(n.EventID.String())},
			{Key: "source_entity", Value: []byte(n.SourceEntity)},
		},
	}
	if err := k.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		k.count("error")
		return fmt.Errorf("produce notification for %s: %w", n.Entity, err)
	}
	k.count("ok")
	if k.logger != nil {
		k.logger.DebugContext(ctx, "notification produced",
			"recipient", n.Entity,
			"event_id", n.EventID,
			"topic", k.topic,
		)
	}
	return nil
}

func (k *KafkaNotifier) count(result string) {
	if k.metrics != nil {
		k.metrics.IncProduced(result)
	}
}
