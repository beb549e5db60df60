// Package redpanda publishes interview lifecycle events to a Kafka-compatible
// broker so downstream consumers (analytics, notifications) can react to them.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// DefaultTopic receives every interview event unless configured otherwise.
const DefaultTopic = "interview-events"

// syncProducer is the slice of *kgo.Client the publisher uses.
type syncProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Publisher implements domain.EventPublisher on top of franz-go.
// Records are keyed by interview id so one interview's events stay ordered.
type Publisher struct {
	client syncProducer
	topic  string
}

var _ domain.EventPublisher = (*Publisher)(nil)

// NewPublisher connects an idempotent producer with OpenTelemetry hooks and
// makes sure the topic exists.
func NewPublisher(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.new_publisher: no seed brokers provided")
	}
	if topic == "" {
		topic = DefaultTopic
	}

	kotelService := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
	)))
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RequestRetries(10),
		kgo.DialTimeout(10*time.Second),
		kgo.ProducerBatchMaxBytes(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.new_publisher: %w", err)
	}
	if err := ensureTopic(ctx, client, topic, 1, 1); err != nil {
		// Another replica may have created it, or the broker forbids admin calls.
		slog.Warn("failed to ensure events topic", slog.String("topic", topic), slog.Any("error", err))
	}
	slog.Info("redpanda publisher ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Publisher{client: client, topic: topic}, nil
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string { return p.topic }

// Publish writes evt synchronously.
func (p *Publisher) Publish(ctx context.Context, evt domain.InterviewEvent) error {
	rec, err := p.record(evt)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("op=redpanda.publish: %w", err)
	}
	return nil
}

func (p *Publisher) record(evt domain.InterviewEvent) (*kgo.Record, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.publish: marshal: %w", err)
	}
	return &kgo.Record{
		Topic: p.topic,
		Key:   []byte(evt.InterviewID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(evt.Type)},
			{Key: "user_id", Value: []byte(evt.UserID)},
		},
		Timestamp: evt.OccurredAt,
	}, nil
}

// Close flushes and closes the client.
func (p *Publisher) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}

// Noop discards events. It is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, domain.InterviewEvent) error { return nil }
