package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ImpVol/internal/domain/models"
)

type fakeMetrics struct {
	mu     sync.Mutex
	sent   map[string]int
	errors map[string]int
	ivs    map[string]float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{sent: map[string]int{}, errors: map[string]int{}, ivs: map[string]float64{}}
}

func (m *fakeMetrics) RecordMessageSent(backend, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[backend]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordImpliedVol(symbol string, iv float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ivs[symbol] = iv
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type fakePublisher struct {
	mu      sync.Mutex
	recs    []*models.IVRecord
	batches int
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, r *models.IVRecord) error {
	return p.PublishBatch(context.Background(), []*models.IVRecord{r})
}

func (p *fakePublisher) PublishBatch(_ context.Context, rs []*models.IVRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.recs = append(p.recs, rs...)
	p.batches++
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) written() (recs, batches int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.recs), p.batches
}

type fakeStore struct {
	fakePublisher
}

func (s *fakeStore) Init(context.Context) error { return nil }

func (s *fakeStore) Store(ctx context.Context, r *models.IVRecord) error { return s.Publish(ctx, r) }

func (s *fakeStore) StoreBatch(ctx context.Context, rs []*models.IVRecord) error {
	return s.PublishBatch(ctx, rs)
}

func (s *fakeStore) History(context.Context, string, time.Time, time.Time, int) ([]*models.IVRecord, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) Health(context.Context) error { return nil }

// observedAt is exactly 365 days before the 2025-03-21 expiry instant.
var observedAt = time.Date(2024, 3, 21, 21, 30, 0, 0, time.UTC)

const atmCallPrice = "10.450583572185565"

func quote(symbol string, typ models.OptionType, last string) models.OptionQuote {
	return models.OptionQuote{
		Symbol:     symbol,
		Underlying: "XYZ",
		Type:       typ,
		Strike:     decimal.NewFromInt(100),
		Spot:       decimal.NewFromInt(100),
		Last:       decimal.RequireFromString(last),
		Expiry:     "2025-03-21",
		QuoteTime:  observedAt,
		Rate:       0.05,
	}
}
