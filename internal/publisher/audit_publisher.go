package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"audit-trail-service/internal/domain"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	log "github.com/sirupsen/logrus"
)

const serviceName = "audit-trail-service"

// entryEvent is the message value written for every committed audit entry.
type entryEvent struct {
	Service     string             `json:"service"`
	PublishedAt time.Time          `json:"published_at"`
	Entry       *domain.AuditEntry `json:"entry"`
}

type AuditPublisher struct {
	producer        *kafka.Producer
	topic           string
	deliveryTimeout time.Duration
}

func NewAuditPublisher(bootstrapServers, topic string, deliveryTimeout time.Duration) (*AuditPublisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": bootstrapServers})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.WithField("topic", topic).Info("Audit Kafka producer created")

	return &AuditPublisher{producer: p, topic: topic, deliveryTimeout: deliveryTimeout}, nil
}

// Publish sends entry keyed by its subject so all entries of one record land
// on the same partition in order. It waits for the delivery report.
func (p *AuditPublisher) Publish(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil {
		return fmt.Errorf("audit trail entry is nil")
	}

	msg, err := p.message(entry, time.Now().UTC())
	if err != nil {
		return err
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := p.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	timer := time.NewTimer(p.deliveryTimeout)
	defer timer.Stop()

	select {
	case e := <-deliveryChan:
		report, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected event type: %T", e)
		}
		if report.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", report.TopicPartition.Error)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("delivery timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// message builds the Kafka record of entry.
func (p *AuditPublisher) message(entry *domain.AuditEntry, publishedAt time.Time) (*kafka.Message, error) {
	payload, err := json.Marshal(entryEvent{
		Service:     serviceName,
		PublishedAt: publishedAt,
		Entry:       entry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit trail entry: %w", err)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(entry.SubjectType + ":" + entry.SubjectKey),
		Value:          payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(entry.Kind)},
			{Key: "subject_type", Value: []byte(entry.SubjectType)},
		},
	}, nil
}

func (p *AuditPublisher) Close() {
	log.Info("Closing audit Kafka producer...")
	p.producer.Flush(15 * 1000)
	p.producer.Close()
}
