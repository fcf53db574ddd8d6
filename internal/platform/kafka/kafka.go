package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Config describes the broker connection.
type Config struct {
	Brokers      []string
	ClientID     string
	ProduceLimit time.Duration
}

// New creates a franz-go client. Records are acknowledged by all in-sync
// replicas and retried idempotently.
func New(cfg Config) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	if cfg.ProduceLimit > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(cfg.ProduceLimit))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return client, nil
}

// Health pings the seed brokers.
func Health(ctx context.Context, client *kgo.Client) error {
	return client.Ping(ctx)
}

// EnsureTopic creates topic when it does not exist.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}
