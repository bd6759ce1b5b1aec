package usecase

import (
	"context"
	"time"

	"ImpVol/internal/domain/models"
	drepo "ImpVol/internal/domain/repository"
	mid "ImpVol/internal/middleware"
	"ImpVol/pkg/logger"
)

// buffering is implemented by processors that hold quotes back, such as QuoteBatcher.
type buffering interface {
	Start(ctx context.Context)
	Stop(ctx context.Context)
}

// QuoteCollector streams quotes from a feed into the processor.
type QuoteCollector struct {
	stream  drepo.QuoteStream
	proc    mid.Proc
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline
	backoff mid.Backoff
	log     *logger.Logger
}

// NewQuoteCollector creates a collector. When pipe is nil quotes go straight to proc.
func NewQuoteCollector(stream drepo.QuoteStream, proc mid.Proc, metrics drepo.Metrics, pipe *mid.RealtimePipeline, log *logger.Logger) *QuoteCollector {
	if log == nil {
		log = logger.Nop()
	}
	return &QuoteCollector{
		stream:  stream,
		proc:    proc,
		metrics: metrics,
		pipe:    pipe,
		backoff: mid.Backoff{Min: time.Second, Max: 30 * time.Second},
		log:     log.With(logger.String("component", "quote_collector")),
	}
}

func (c *QuoteCollector) IsConnected() bool { return c.stream.IsConnected() }

func (c *QuoteCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if b, ok := c.proc.(buffering); ok {
		b.Start(ctx)
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	qCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, qCh, errCh)
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context, qCh <-chan *models.OptionQuote, errCh <-chan error) {
	for {
		if qCh == nil && errCh == nil {
			var ok bool
			if qCh, errCh, ok = c.reconnect(ctx); !ok {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err == nil {
				continue
			}
			c.metrics.RecordError("stream")
			c.log.Warn("quote stream failed", logger.Error(err))
			qCh, errCh = nil, nil
		case q, ok := <-qCh:
			if !ok {
				qCh = nil
				continue
			}
			if q == nil {
				continue
			}
			c.handle(ctx, q)
		}
	}
}

func (c *QuoteCollector) handle(ctx context.Context, q *models.OptionQuote) {
	var err error
	if c.pipe != nil {
		err = c.pipe.Process(ctx, q)
	} else {
		err = c.proc.Process(ctx, q)
	}
	if err != nil {
		c.log.Debug("quote not processed", logger.String("symbol", q.Symbol), logger.Error(err))
	}
}

// reconnect retries until the stream is back or ctx ends.
func (c *QuoteCollector) reconnect(ctx context.Context) (<-chan *models.OptionQuote, <-chan error, bool) {
	for attempt := 1; ; attempt++ {
		err := c.stream.Reconnect(ctx)
		if err == nil {
			c.log.Info("quote stream reconnected", logger.Int("attempt", attempt))
			qCh, errCh := c.stream.Read(ctx)
			return qCh, errCh, true
		}
		c.metrics.RecordError("stream_reconnect")
		c.log.Warn("reconnect failed", logger.Int("attempt", attempt), logger.Error(err))
		select {
		case <-ctx.Done():
			return nil, nil, false
		case <-time.After(c.backoff.Delay(attempt)):
		}
	}
}

// Shutdown drains the pipeline into the processor, flushes a buffering
// processor and closes the stream.
func (c *QuoteCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	if b, ok := c.proc.(buffering); ok {
		b.Stop(ctx)
	}
	return c.stream.Close()
}
