package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ImpVol/internal/domain/models"
	domrepo "ImpVol/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, q *models.OptionQuote) error
}

// RealtimePipeline sits between the quote feed and the processor.
// It validates, throttles per symbol, and buffers quotes the processor rejected.
type RealtimePipeline struct {
	proc        Proc
	metrics     domrepo.Metrics
	minInterval time.Duration
	bufCh       chan *models.OptionQuote
	stopCh      chan struct{}
	done        chan struct{}
	started     bool
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	backoff     Backoff
	now         func() time.Time
}

type PipelineOption func(*RealtimePipeline)

// WithMinInterval sets the minimum spacing between two quotes of one symbol.
// Zero disables throttling.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *RealtimePipeline) {
		if d >= 0 {
			p.minInterval = d
		}
	}
}

// WithBufferSize sets the buffer used while downstream is failing.
func WithBufferSize(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.bufCh = make(chan *models.OptionQuote, n)
		}
	}
}

// WithBackoff replaces the retry schedule of the flush loop.
func WithBackoff(b Backoff) PipelineOption {
	return func(p *RealtimePipeline) { p.backoff = b }
}

func NewRealtimePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		proc:        proc,
		metrics:     metrics,
		minInterval: 250 * time.Millisecond,
		bufCh:       make(chan *models.OptionQuote, 1024),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
		limiters:    make(map[string]*rate.Limiter),
		backoff:     Backoff{Min: 50 * time.Millisecond, Max: 2 * time.Second},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches background flushing of buffered quotes.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flush(ctx)
}

func (p *RealtimePipeline) flush(ctx context.Context) {
	defer close(p.done)
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case q := <-p.bufCh:
			if err := p.proc.Process(ctx, q); err != nil {
				attempt++
				p.metrics.RecordError("pipeline_flush")
				select {
				case <-time.After(p.backoff.Delay(attempt)):
				case <-ctx.Done():
					return
				case <-p.stopCh:
					return
				}
				select {
				case p.bufCh <- q:
				default:
					p.metrics.RecordError("pipeline_buffer_drop")
				}
				continue
			}
			attempt = 0
		}
	}
}

// Stop stops the background flushing and waits for it to exit.
func (p *RealtimePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.done
}

// Buffered returns the number of quotes waiting for a retry.
func (p *RealtimePipeline) Buffered() int { return len(p.bufCh) }

// Process validates, throttles and forwards q, buffering it when downstream fails.
// Throttled quotes are dropped without error.
func (p *RealtimePipeline) Process(ctx context.Context, q *models.OptionQuote) error {
	start := time.Now()
	if err := ValidateQuote(q); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(q.Symbol) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, q); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- q:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// ValidateQuote rejects quotes that cannot be priced at all.
func ValidateQuote(q *models.OptionQuote) error {
	if q == nil {
		return errors.New("quote nil")
	}
	if q.Symbol == "" {
		return errors.New("symbol empty")
	}
	if !q.Type.Valid() {
		return fmt.Errorf("%s: invalid option type", q.Symbol)
	}
	if !q.Spot.IsPositive() || !q.Strike.IsPositive() {
		return fmt.Errorf("%s: spot and strike must be positive", q.Symbol)
	}
	if q.Bid.IsNegative() || q.Ask.IsNegative() || q.Last.IsNegative() {
		return fmt.Errorf("%s: negative price", q.Symbol)
	}
	if q.Expiry == "" {
		return fmt.Errorf("%s: expiry empty", q.Symbol)
	}
	return nil
}

func (p *RealtimePipeline) allow(symbol string) bool {
	if p.minInterval <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	lim, ok := p.limiters[symbol]
	if !ok {
		lim = rate.NewLimiter(rate.Every(p.minInterval), 1)
		p.limiters[symbol] = lim
	}
	return lim.AllowN(p.now(), 1)
}

// Backoff is a capped exponential delay schedule.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// Delay returns Min·2^(attempt-1), capped at Max. Attempts start at 1.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Min
	for i := 1; i < attempt && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		d = b.Max
	}
	return d
}
