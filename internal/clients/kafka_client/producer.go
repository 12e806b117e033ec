package kafka_client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/sentilyst/internal/clients/kafka_client/utils"
	"github.com/spacesedan/sentilyst/internal/models"
)

// EventProducer publishes completed analyses. Delivery is awaited per event
// so a failure can be logged against the query that caused it.
type EventProducer struct {
	producer *kafka.Producer
	topic    string
}

func NewEventProducer(cfg KafkaConfig) (*EventProducer, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...",
		slog.String("broker", cfg.Broker),
		slog.String("topic", cfg.topic()))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     cfg.Broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	ep := &EventProducer{producer: p, topic: cfg.topic()}
	go ep.logEvents()

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return ep, nil
}

// logEvents drains client-level events; per-message reports go to the
// delivery channel passed to Produce.
func (ep *EventProducer) logEvents() {
	for e := range ep.producer.Events() {
		if kerr, ok := e.(kafka.Error); ok {
			slog.Warn("[KafkaClient] Producer error",
				slog.String("code", kerr.Code().String()),
				slog.String("error", kerr.Error()))
		}
	}
}

func (ep *EventProducer) PublishAnalysis(ctx context.Context, event models.AnalysisEvent) error {
	payload, err := utils.SerializeToJSON(event)
	if err != nil {
		return fmt.Errorf("[KafkaClient] failed to serialize event: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &ep.topic, Partition: kafka.PartitionAny},
		Key:            utils.EventKey(event.Query),
		Value:          payload,
	}

	var lastErr error
	for i := 0; i < MAX_RETRIES; i++ {
		lastErr = ep.produce(ctx, msg)
		if lastErr == nil {
			slog.Debug("[KafkaClient] Published analysis event",
				slog.String("topic", ep.topic),
				slog.String("query", event.Query))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("[KafkaClient] Failed to produce message, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", lastErr.Error()))
	}

	return fmt.Errorf("[KafkaClient] failed to publish after %d attempts: %w", MAX_RETRIES, lastErr)
}

func (ep *EventProducer) produce(ctx context.Context, msg *kafka.Message) error {
	delivery := make(chan kafka.Event, 1)
	if err := ep.producer.Produce(msg, delivery); err != nil {
		return err
	}

	timer := time.NewTimer(DELIVERY_TIMEOUT)
	defer timer.Stop()

	select {
	case e := <-delivery:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", e)
		}
		return m.TopicPartition.Error
	case <-timer.C:
		return fmt.Errorf("delivery report not received within %s", DELIVERY_TIMEOUT)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ep *EventProducer) Close() {
	slog.Info("[KafkaClient] Flushing Kafka producer before shutdown...")
	if remaining := ep.producer.Flush(FLUSH_TIMEOUT_MS); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	ep.producer.Close()
	slog.Info("[KafkaClient] Kafka producer shut down")
}
