package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ImpVol/internal/domain/models"
	drepo "ImpVol/internal/domain/repository"
	"ImpVol/pkg/logger"
)

// batchProcessor is the part of QuoteProcessor a QuoteBatcher flushes into.
type batchProcessor interface {
	ProcessBatch(ctx context.Context, quotes []*models.OptionQuote) error
}

// QuoteBatcher accumulates quotes and hands them to ProcessBatch once size
// quotes are buffered or the flush interval passes, whichever comes first.
// A failed batch is counted and logged, then dropped.
type QuoteBatcher struct {
	proc    batchProcessor
	size    int
	every   time.Duration
	metrics drepo.Metrics
	log     *logger.Logger

	mu   sync.Mutex
	buf  []*models.OptionQuote
	stop chan struct{}
	done chan struct{}
}

func NewQuoteBatcher(proc batchProcessor, size int, every time.Duration, metrics drepo.Metrics, log *logger.Logger) *QuoteBatcher {
	if size < 1 {
		size = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &QuoteBatcher{
		proc:    proc,
		size:    size,
		every:   every,
		metrics: metrics,
		log:     log.With(logger.String("component", "quote_batcher")),
		buf:     make([]*models.OptionQuote, 0, size),
	}
}

// Process buffers q and flushes synchronously when the batch is full.
func (b *QuoteBatcher) Process(ctx context.Context, q *models.OptionQuote) error {
	if q == nil {
		return fmt.Errorf("quote is nil")
	}
	b.mu.Lock()
	b.buf = append(b.buf, q)
	var batch []*models.OptionQuote
	if len(b.buf) >= b.size {
		batch = b.take()
	}
	b.mu.Unlock()

	if batch != nil {
		b.flush(ctx, batch)
	}
	return nil
}

// Flush writes whatever is buffered.
func (b *QuoteBatcher) Flush(ctx context.Context) {
	b.mu.Lock()
	batch := b.take()
	b.mu.Unlock()
	if len(batch) > 0 {
		b.flush(ctx, batch)
	}
}

// Pending is the number of buffered quotes.
func (b *QuoteBatcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// take must be called with mu held.
func (b *QuoteBatcher) take() []*models.OptionQuote {
	batch := b.buf
	b.buf = make([]*models.OptionQuote, 0, b.size)
	return batch
}

func (b *QuoteBatcher) flush(ctx context.Context, batch []*models.OptionQuote) {
	if err := b.proc.ProcessBatch(ctx, batch); err != nil {
		b.metrics.RecordError("batch_flush")
		b.log.Warn("batch dropped", logger.Int("quotes", len(batch)), logger.Error(err))
	}
}

// Start flushes partial batches every interval until ctx ends or Stop is called.
func (b *QuoteBatcher) Start(ctx context.Context) {
	if b.every <= 0 || b.stop != nil {
		return
	}
	b.stop, b.done = make(chan struct{}), make(chan struct{})
	go func() {
		defer close(b.done)
		t := time.NewTicker(b.every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stop:
				return
			case <-t.C:
				b.Flush(ctx)
			}
		}
	}()
}

// Stop ends the interval flushes and writes the remainder with ctx.
func (b *QuoteBatcher) Stop(ctx context.Context) {
	if b.stop != nil {
		close(b.stop)
		<-b.done
		b.stop = nil
	}
	b.Flush(ctx)
}
