package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ImpVol/internal/domain/models"
	mid "ImpVol/internal/middleware"
)

// scriptedStream fails its first session with an error, then serves quotes.
type scriptedStream struct {
	mu         sync.Mutex
	sessions   int
	reconnects int
	quotes     []models.OptionQuote
	connected  bool
}

func (s *scriptedStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *scriptedStream) Subscribe(context.Context) error { return nil }

func (s *scriptedStream) Read(context.Context) (<-chan *models.OptionQuote, <-chan error) {
	s.mu.Lock()
	s.sessions++
	first := s.sessions == 1
	s.mu.Unlock()

	qCh := make(chan *models.OptionQuote, len(s.quotes))
	errCh := make(chan error, 1)
	if first {
		errCh <- errors.New("connection reset")
		close(errCh)
		close(qCh)
		return qCh, errCh
	}
	for i := range s.quotes {
		qCh <- &s.quotes[i]
	}
	return qCh, errCh
}

func (s *scriptedStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *scriptedStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

type syncProc struct {
	mu  sync.Mutex
	got []string
}

func (p *syncProc) Process(_ context.Context, q *models.OptionQuote) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, q.Symbol)
	return nil
}

func (p *syncProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

func TestQuoteCollectorReconnectsAndForwards(t *testing.T) {
	stream := &scriptedStream{quotes: []models.OptionQuote{
		quote("A", models.Call, "5"),
		quote("B", models.Put, "5"),
	}}
	proc, m := &syncProc{}, newFakeMetrics()
	pipe := mid.NewRealtimePipeline(proc, m, mid.WithMinInterval(0))
	c := NewQuoteCollector(stream, proc, m, pipe, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !c.IsConnected() {
		t.Fatalf("expected connected")
	}

	for proc.count() < 2 {
		select {
		case <-ctx.Done():
			t.Fatalf("quotes not forwarded, got %d", proc.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	stream.mu.Lock()
	reconnects := stream.reconnects
	stream.mu.Unlock()
	if reconnects != 1 || m.errorCount("stream") != 1 {
		t.Fatalf("reconnects=%d stream errors=%d", reconnects, m.errorCount("stream"))
	}

	cancel()
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if c.IsConnected() {
		t.Fatalf("expected closed stream")
	}
}
