package service

import (
	"context"
	"time"

	"ImpVol/internal/domain/models"
)

// Calculator prices options and inverts market prices to implied volatility.
type Calculator interface {
	Price(ctx context.Context, in models.PricingInputs) (models.PriceResult, error)
	Solve(ctx context.Context, marketPrice float64, in models.ContractInputs, cfg models.SolverConfig) (models.IVResult, error)
	SolveQuote(ctx context.Context, q models.OptionQuote, observed time.Time, cfg models.SolverConfig) *models.IVRecord
}

// ChainSolver solves many quotes independently. Output order follows input order.
type ChainSolver interface {
	SolveChain(ctx context.Context, quotes []models.OptionQuote, observed time.Time, cfg models.SolverConfig) ([]*models.IVRecord, error)
}

// QuoteProcessor solves a quote and hands the result to the configured backend.
type QuoteProcessor interface {
	Process(ctx context.Context, q *models.OptionQuote) error
}
