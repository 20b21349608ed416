package breach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaNotifier publishes breach alerts to a Kafka topic so downstream
// paging and case-management consumers can react. Alerts are keyed by
// breach id for per-incident ordering.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

// NewKafkaNotifier connects to the brokers and ensures the alert topic
// exists before the first breach needs it.
func NewKafkaNotifier(ctx context.Context, brokers []string, topic string) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create alert topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("create alert topic: %w", resp.Err)
	}

	return &KafkaNotifier{client: client, topic: topic}, nil
}

func (n *KafkaNotifier) Alert(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode breach alert: %w", err)
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(alert.BreachID.String()),
		Value: payload,
	}
	if err := n.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish breach alert: %w", err)
	}
	return nil
}

// Close flushes and releases the Kafka client.
func (n *KafkaNotifier) Close() {
	n.client.Close()
}
