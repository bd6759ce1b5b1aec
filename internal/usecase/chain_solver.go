package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"ImpVol/internal/domain/models"
	domsvc "ImpVol/internal/domain/service"
	"ImpVol/internal/services/ivsolver"
)

// ChainSolver solves quotes concurrently with a bounded number of workers.
type ChainSolver struct {
	calc    domsvc.Calculator
	workers int
}

func NewChainSolver(calc domsvc.Calculator, workers int) *ChainSolver {
	if workers <= 0 {
		workers = 1
	}
	return &ChainSolver{calc: calc, workers: workers}
}

// SolveChain returns one record per quote, in input order. A failing quote
// only affects its own record; the error is for bad settings or cancellation.
func (s *ChainSolver) SolveChain(ctx context.Context, quotes []models.OptionQuote, observed time.Time, cfg models.SolverConfig) ([]*models.IVRecord, error) {
	if err := ivsolver.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	out := make([]*models.IVRecord, len(quotes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range quotes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.calc.SolveQuote(gctx, quotes[i], observed, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summarize counts records per status.
func Summarize(recs []*models.IVRecord) map[models.SolveStatus]int {
	out := make(map[models.SolveStatus]int, 4)
	for _, r := range recs {
		if r != nil {
			out[r.Status]++
		}
	}
	return out
}

var _ domsvc.ChainSolver = (*ChainSolver)(nil)
