// Package kafka publishes audit events to a Kafka topic. The topic is the
// durable audit trail; consumers (compliance, ops) are out of scope here.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"onsd/internal/audit"
)

// Store implements audit.Store by producing one JSON message per event,
// keyed by the affected entity key so per-entity ordering survives
// partitioning.
type Store struct {
	client *kgo.Client
	topic  string
}

// New connects a producer to the given brokers. The caller owns the
// lifecycle and must Close the store on shutdown.
func New(brokers []string, topic string) (*Store, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Store{client: client, topic: topic}, nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Key),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.client.Close()
}
