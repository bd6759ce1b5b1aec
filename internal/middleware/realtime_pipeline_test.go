package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ImpVol/internal/domain/models"
)

type countingMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *countingMetrics) RecordMessageSent(string, string) {}
func (m *countingMetrics) RecordImpliedVol(string, float64) {}
func (m *countingMetrics) RecordLatency(string, float64)    {}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}

func (m *countingMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type flakyProc struct {
	mu    sync.Mutex
	fails int
	got   []string
}

func (p *flakyProc) Process(_ context.Context, q *models.OptionQuote) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails > 0 {
		p.fails--
		return errors.New("downstream unavailable")
	}
	p.got = append(p.got, q.Symbol)
	return nil
}

func (p *flakyProc) delivered() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.got...)
}

func validQuote(symbol string) *models.OptionQuote {
	return &models.OptionQuote{
		Symbol: symbol,
		Type:   models.Call,
		Strike: decimal.NewFromInt(100),
		Spot:   decimal.NewFromInt(101),
		Last:   decimal.NewFromFloat(3.5),
		Expiry: "2025-06-20",
	}
}

func TestValidateQuote(t *testing.T) {
	if err := ValidateQuote(validQuote("A")); err != nil {
		t.Fatalf("valid quote rejected: %v", err)
	}
	bad := []func(*models.OptionQuote){
		func(q *models.OptionQuote) { q.Symbol = "" },
		func(q *models.OptionQuote) { q.Type = 0 },
		func(q *models.OptionQuote) { q.Spot = decimal.Zero },
		func(q *models.OptionQuote) { q.Strike = decimal.NewFromInt(-1) },
		func(q *models.OptionQuote) { q.Bid = decimal.NewFromInt(-1) },
		func(q *models.OptionQuote) { q.Expiry = "" },
	}
	for i, mutate := range bad {
		q := validQuote("A")
		mutate(q)
		if err := ValidateQuote(q); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
	if err := ValidateQuote(nil); err == nil {
		t.Fatalf("expected error for nil quote")
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc, m := &flakyProc{}, &countingMetrics{}
	p := NewRealtimePipeline(proc, m, WithMinInterval(time.Second))
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	ctx := context.Background()
	for _, sym := range []string{"A", "A", "B"} {
		if err := p.Process(ctx, validQuote(sym)); err != nil {
			t.Fatalf("process %s: %v", sym, err)
		}
	}
	now = now.Add(time.Second)
	if err := p.Process(ctx, validQuote("A")); err != nil {
		t.Fatalf("process: %v", err)
	}

	got := proc.delivered()
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "A" {
		t.Fatalf("delivered %v", got)
	}
	if m.count("pipeline_throttle") != 1 {
		t.Fatalf("throttle count %d", m.count("pipeline_throttle"))
	}
}

func TestPipelineBuffersAndRetries(t *testing.T) {
	proc, m := &flakyProc{fails: 2}, &countingMetrics{}
	p := NewRealtimePipeline(proc, m,
		WithMinInterval(0),
		WithBufferSize(4),
		WithBackoff(Backoff{Min: time.Millisecond, Max: 5 * time.Millisecond}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.Process(ctx, validQuote("A")); err == nil {
		t.Fatalf("expected downstream error")
	}
	if p.Buffered() != 1 {
		t.Fatalf("quote not buffered")
	}

	p.Start(ctx)
	defer p.Stop()
	for len(proc.delivered()) == 0 {
		select {
		case <-ctx.Done():
			t.Fatalf("buffered quote never delivered")
		case <-time.After(time.Millisecond):
		}
	}
	if m.count("pipeline_flush") != 1 {
		t.Fatalf("flush failures %d", m.count("pipeline_flush"))
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Min: 100 * time.Millisecond, Max: time.Second}
	want := []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second}
	for attempt, w := range want {
		if got := b.Delay(attempt); got != w {
			t.Fatalf("attempt %d: got %v want %v", attempt, got, w)
		}
	}
}
