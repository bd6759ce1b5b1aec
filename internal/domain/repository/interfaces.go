package repository

import (
	"context"
	"time"

	"ImpVol/internal/domain/models"
)

// QuoteStream is a live source of option quotes.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.OptionQuote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type IVPublisher interface {
	Publish(ctx context.Context, rec *models.IVRecord) error
	PublishBatch(ctx context.Context, recs []*models.IVRecord) error
	Close() error
}

type IVStorage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, rec *models.IVRecord) error
	StoreBatch(ctx context.Context, recs []*models.IVRecord) error
	History(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.IVRecord, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordImpliedVol(symbol string, iv float64)
	RecordLatency(op string, seconds float64)
}
