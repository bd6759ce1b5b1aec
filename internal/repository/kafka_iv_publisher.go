package repository

import (
	"context"

	"ImpVol/internal/domain/models"
	"ImpVol/internal/domain/repository"
	pkgkafka "ImpVol/pkg/kafka"
	"ImpVol/pkg/logger"
)

// batchPublisher is the part of pkg/kafka.Producer used here.
type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaIVPublisher implements IVPublisher for Kafka. Records are keyed by option symbol.
type KafkaIVPublisher struct {
	producer batchPublisher
	topic    string
}

func NewKafkaIVPublisher(producer batchPublisher, topic string) repository.IVPublisher {
	return &KafkaIVPublisher{producer: producer, topic: topic}
}

func (p *KafkaIVPublisher) Publish(ctx context.Context, rec *models.IVRecord) error {
	return p.PublishBatch(ctx, []*models.IVRecord{rec})
}

func (p *KafkaIVPublisher) PublishBatch(ctx context.Context, recs []*models.IVRecord) error {
	msgs := make([]pkgkafka.Message, 0, len(recs))
	for _, r := range recs {
		if r == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(r.Symbol), Value: r})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the producer is shared and closed by its owner.
func (p *KafkaIVPublisher) Close() error { return nil }

// KafkaDigestSink publishes aggregated log entries to a topic.
type KafkaDigestSink struct {
	producer batchPublisher
	topic    string
}

func NewKafkaDigestSink(producer batchPublisher, topic string) *KafkaDigestSink {
	return &KafkaDigestSink{producer: producer, topic: topic}
}

func (s *KafkaDigestSink) PublishDigest(ctx context.Context, entries []logger.DigestEntry) error {
	return s.producer.PublishBatch(ctx, s.topic, []pkgkafka.Message{{Value: entries}})
}
