package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/lei/runci/internal/models"
)

// KafkaSink publishes run results to a Kafka-compatible broker
// (Kafka, Redpanda). Records are keyed by ref so results for one branch
// land on one partition in order.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// runEnvelope is the published payload
type runEnvelope struct {
	RunID    string            `json:"run_id"`
	Pipeline string            `json:"pipeline"`
	Event    models.Event      `json:"event"`
	Result   *models.RunResult `json:"result"`
}

// NewKafkaSink creates a sink producing to topic on the given brokers
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

// Publish produces the run result synchronously
func (s *KafkaSink) Publish(ctx context.Context, run *models.Run, result *models.RunResult) error {
	payload, err := json.Marshal(runEnvelope{
		RunID:    run.RunID,
		Pipeline: run.Pipeline,
		Event:    run.Event,
		Result:   result,
	})
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(run.Event.Ref),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce run result: %w", err)
	}
	return nil
}

// Close shuts the producer down
func (s *KafkaSink) Close() error {
	s.client.Close()
	return nil
}
