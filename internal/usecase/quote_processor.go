package usecase

import (
	"context"
	"fmt"
	"time"

	"ImpVol/internal/domain/models"
	drepo "ImpVol/internal/domain/repository"
	domsvc "ImpVol/internal/domain/service"
	"ImpVol/pkg/logger"
)

// QuoteProcessor solves quotes and routes the records to the configured backend.
type QuoteProcessor struct {
	calc    domsvc.Calculator
	cfg     models.SolverConfig
	pub     drepo.IVPublisher
	store   drepo.IVStorage
	metrics drepo.Metrics
	backend string
	log     *logger.Logger
	now     func() time.Time
}

func NewQuoteProcessor(
	calc domsvc.Calculator,
	cfg models.SolverConfig,
	pub drepo.IVPublisher,
	store drepo.IVStorage,
	metrics drepo.Metrics,
	backend string,
	log *logger.Logger,
) *QuoteProcessor {
	if log == nil {
		log = logger.Nop()
	}
	return &QuoteProcessor{
		calc:    calc,
		cfg:     cfg,
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		log:     log,
		now:     time.Now,
	}
}

// Process solves a single quote and routes the record. Quotes without a
// timestamp are observed now.
func (p *QuoteProcessor) Process(ctx context.Context, q *models.OptionQuote) error {
	if q == nil {
		return fmt.Errorf("quote is nil")
	}
	start := time.Now()
	rec := p.solve(ctx, q)

	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, rec)
	case "clickhouse":
		err = p.store.Store(ctx, rec)
	case "none", "":
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process quote %s: %w", q.Symbol, err)
	}

	p.metrics.RecordMessageSent(p.backendLabel(), rec.Symbol)
	if rec.Converged() {
		p.metrics.RecordImpliedVol(rec.Symbol, rec.ImpliedVol)
	} else {
		p.log.Debug("quote not solved",
			logger.String("symbol", rec.Symbol),
			logger.String("status", string(rec.Status)),
			logger.String("reason", rec.Reason))
	}
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch solves quotes and routes the records in one write.
func (p *QuoteProcessor) ProcessBatch(ctx context.Context, quotes []*models.OptionQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	start := time.Now()
	recs := make([]*models.IVRecord, 0, len(quotes))
	for _, q := range quotes {
		if q != nil {
			recs = append(recs, p.solve(ctx, q))
		}
	}

	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, recs)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, recs)
	case "none", "":
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, r := range recs {
		p.metrics.RecordMessageSent(p.backendLabel(), r.Symbol)
		if r.Converged() {
			p.metrics.RecordImpliedVol(r.Symbol, r.ImpliedVol)
		}
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

func (p *QuoteProcessor) solve(ctx context.Context, q *models.OptionQuote) *models.IVRecord {
	observed := q.QuoteTime
	if observed.IsZero() {
		observed = p.now()
	}
	return p.calc.SolveQuote(ctx, *q, observed, p.cfg)
}

func (p *QuoteProcessor) backendLabel() string {
	if p.backend == "" {
		return "none"
	}
	return p.backend
}

var _ domsvc.QuoteProcessor = (*QuoteProcessor)(nil)
