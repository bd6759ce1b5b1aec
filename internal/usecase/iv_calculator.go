package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"ImpVol/internal/domain/models"
	domsvc "ImpVol/internal/domain/service"
	"ImpVol/internal/service/cache"
	svcmetrics "ImpVol/internal/service/metrics"
	"ImpVol/internal/services/features"
	"ImpVol/internal/services/ivsolver"
	"ImpVol/internal/services/pricing"
	"ImpVol/pkg/logger"
)

// IVCalculator prices options and solves implied volatilities.
// Solve results are cached when a cache is configured.
type IVCalculator struct {
	cache    cache.BytesCache
	cacheTTL time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewIVCalculator(c cache.BytesCache, ttl time.Duration, log *logger.Logger) *IVCalculator {
	if log == nil {
		log = logger.Nop()
	}
	return &IVCalculator{cache: c, cacheTTL: ttl, log: log, now: time.Now}
}

func (c *IVCalculator) Price(_ context.Context, in models.PricingInputs) (models.PriceResult, error) {
	p, err := pricing.Price(in)
	if err != nil {
		return models.PriceResult{}, err
	}
	g, err := pricing.Greeks(in)
	if err != nil {
		return models.PriceResult{}, err
	}
	return models.PriceResult{Inputs: in, Price: p, Greeks: g}, nil
}

// Solve inverts marketPrice. Invalid contract inputs and malformed solver
// settings are returned as errors; every other outcome is an IVResult.
func (c *IVCalculator) Solve(ctx context.Context, marketPrice float64, in models.ContractInputs, cfg models.SolverConfig) (models.IVResult, error) {
	if err := in.Validate(); err != nil {
		return models.IVResult{}, err
	}
	solver, err := ivsolver.NewSolver(cfg)
	if err != nil {
		return models.IVResult{}, err
	}

	key := solveKey(marketPrice, in, cfg)
	if res, ok := c.lookup(ctx, key); ok {
		return res, nil
	}

	r := solver.Solve(marketPrice, in)
	observe(r, in.Type)
	res := models.NewIVResult(r)
	c.store(ctx, key, res)
	return res, nil
}

// SolveQuote solves one quote as observed at the given instant. It never
// fails: problems with the quote are reported in the record status.
func (c *IVCalculator) SolveQuote(_ context.Context, q models.OptionQuote, observed time.Time, cfg models.SolverConfig) *models.IVRecord {
	rec := &models.IVRecord{
		Symbol:        q.Symbol,
		Underlying:    q.Underlying,
		Type:          q.Type,
		Strike:        q.Strike.InexactFloat64(),
		Spot:          q.Spot.InexactFloat64(),
		Rate:          q.Rate,
		DividendYield: q.DividendYield,
		Moneyness:     features.Moneyness(q.Spot.InexactFloat64(), q.Strike.InexactFloat64()),
		QuoteTime:     q.QuoteTime,
		ComputedAt:    c.now().UTC(),
	}
	fail := func(err error) *models.IVRecord {
		rec.Status = models.StatusNotBracketable
		rec.Reason = err.Error()
		observe(models.NotBracketable{Err: err}, q.Type)
		return rec
	}

	mkt, ok := features.MarketPrice(q)
	if !ok {
		return fail(fmt.Errorf("%s: no bid/ask or last price", q.Symbol))
	}
	rec.MarketPrice = mkt.InexactFloat64()

	in, err := features.ContractFromQuote(q, observed)
	if err != nil {
		return fail(err)
	}
	rec.TimeToExpiry = in.TimeToExpiry
	if err := in.Validate(); err != nil {
		return fail(err)
	}
	solver, err := ivsolver.NewSolver(cfg)
	if err != nil {
		return fail(err)
	}

	r := solver.Solve(rec.MarketPrice, in)
	observe(r, q.Type)
	rec.Status = r.Status()
	rec.Reason = models.Describe(r)
	if conv, ok := r.(models.Converged); ok {
		rec.ImpliedVol = conv.Volatility
		rec.Iterations = conv.Iterations
		if g, err := pricing.Greeks(in.WithVolatility(conv.Volatility)); err == nil {
			rec.Greeks = &g
		}
	} else if nc, ok := r.(models.NotConverged); ok {
		rec.Iterations = nc.Iterations
	} else if _, ok := r.(models.BracketFailed); ok {
		rec.Reason = boundReason(rec.MarketPrice, in, rec.Reason)
	}
	return rec
}

// boundReason labels an unattainable price against the no-arbitrage range.
// Prices inside the range only missed the configured volatility bracket.
func boundReason(price float64, in models.ContractInputs, fallback string) string {
	lower, upper := features.ArbitrageBounds(in)
	switch {
	case price < lower:
		return fmt.Sprintf("price %.6g below no-arbitrage lower bound %.6g", price, lower)
	case price > upper:
		return fmt.Sprintf("price %.6g above no-arbitrage upper bound %.6g", price, upper)
	}
	return fmt.Sprintf("%s, inside no-arbitrage range [%.6g, %.6g]", fallback, lower, upper)
}

func (c *IVCalculator) lookup(ctx context.Context, key string) (models.IVResult, bool) {
	if c.cache == nil {
		return models.IVResult{}, false
	}
	b, ok, err := c.cache.GetBytes(ctx, key)
	if err != nil {
		c.log.Warn("solve cache read failed", logger.Error(err))
		svcmetrics.CacheLookups.WithLabelValues("error").Inc()
		return models.IVResult{}, false
	}
	if !ok {
		svcmetrics.CacheLookups.WithLabelValues("miss").Inc()
		return models.IVResult{}, false
	}
	var res models.IVResult
	if err := json.Unmarshal(b, &res); err != nil {
		svcmetrics.CacheLookups.WithLabelValues("error").Inc()
		return models.IVResult{}, false
	}
	svcmetrics.CacheLookups.WithLabelValues("hit").Inc()
	return res, true
}

func (c *IVCalculator) store(ctx context.Context, key string, res models.IVResult) {
	if c.cache == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.cache.SetBytes(ctx, key, b, c.cacheTTL); err != nil {
		c.log.Warn("solve cache write failed", logger.Error(err))
	}
}

// solveKey hashes everything the result depends on.
func solveKey(marketPrice float64, in models.ContractInputs, cfg models.SolverConfig) string {
	h := sha256.New()
	fmt.Fprintf(h, "%x|%x|%x|%x|%x|%x|%d|", marketPrice, in.Spot, in.Strike, in.TimeToExpiry, in.Rate, in.DividendYield, in.Type)
	fmt.Fprintf(h, "%x|%x|%x|%x|%x|%d", cfg.InitialVolLo, cfg.InitialVolHi, cfg.MaxVolHi, cfg.AbsTol, cfg.RelTol, cfg.MaxIterations)
	return "iv:" + hex.EncodeToString(h.Sum(nil))
}

func observe(r models.SolveResult, typ models.OptionType) {
	svcmetrics.SolverOutcomes.WithLabelValues(string(r.Status()), typ.String()).Inc()
	if conv, ok := r.(models.Converged); ok {
		svcmetrics.SolverIterations.Observe(float64(conv.Iterations))
	}
}

var _ domsvc.Calculator = (*IVCalculator)(nil)
