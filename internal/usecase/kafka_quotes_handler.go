package usecase

import (
	"context"
	"encoding/json"
	"time"

	"ImpVol/internal/domain/models"
	domrepo "ImpVol/internal/domain/repository"
	mid "ImpVol/internal/middleware"
	pkgkafka "ImpVol/pkg/kafka"
)

// KafkaQuotesHandler consumes JSON option quotes and hands them to the processor.
type KafkaQuotesHandler struct {
	topic   string
	proc    mid.Proc
	metrics domrepo.Metrics
}

func NewKafkaQuotesHandler(topic string, proc mid.Proc, metrics domrepo.Metrics) *KafkaQuotesHandler {
	return &KafkaQuotesHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaQuotesHandler) Topic() string { return h.topic }

// Handle rejects undecodable or invalid quotes so the consumer can dead-letter them.
func (h *KafkaQuotesHandler) Handle(ctx context.Context, b []byte) error {
	var q models.OptionQuote
	if err := json.Unmarshal(b, &q); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if err := mid.ValidateQuote(&q); err != nil {
		h.metrics.RecordError("consumer_validate")
		return err
	}
	if !q.QuoteTime.IsZero() {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(q.QuoteTime).Seconds())
	}
	if err := h.proc.Process(ctx, &q); err != nil {
		h.metrics.RecordError("consumer_process")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaQuotesHandler)(nil)
