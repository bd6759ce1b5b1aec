package ivsolver

import (
	"fmt"
	"math"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"ImpVol/internal/domain/models"
	"ImpVol/internal/services/pricing"
)

var validate = validator.New()

// DefaultConfig returns the solver settings with every field at its default.
func DefaultConfig() models.SolverConfig {
	var cfg models.SolverConfig
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("ivsolver: default config: %v", err))
	}
	return cfg
}

// ValidateConfig checks the bracket and tolerance invariants of cfg.
func ValidateConfig(cfg models.SolverConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid solver config: %w", err)
	}
	return nil
}

// Solver inverts the Black-Scholes price over volatility.
// A Solver holds only its configuration and is safe for concurrent use.
type Solver struct {
	cfg models.SolverConfig
}

// NewSolver validates cfg and returns a Solver using it.
func NewSolver(cfg models.SolverConfig) (*Solver, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Solver{cfg: cfg}, nil
}

// MustNewSolver is like NewSolver but panics on an invalid config.
func MustNewSolver(cfg models.SolverConfig) *Solver {
	s, err := NewSolver(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Config returns the settings the solver was built with.
func (s *Solver) Config() models.SolverConfig { return s.cfg }

// SolveImpliedVolatility finds the volatility at which the model price of in equals marketPrice.
// It panics if cfg is malformed.
func SolveImpliedVolatility(marketPrice float64, in models.ContractInputs, cfg models.SolverConfig) models.SolveResult {
	return MustNewSolver(cfg).Solve(marketPrice, in)
}

// Solve finds the volatility at which the model price of in equals marketPrice.
//
// The initial bracket is widened by doubling its upper end, never beyond
// MaxVolHi, until the price error changes sign. Failures are returned as
// BracketFailed, NotConverged or NotBracketable, never as a panic.
func (s *Solver) Solve(marketPrice float64, in models.ContractInputs) models.SolveResult {
	if math.IsNaN(marketPrice) || math.IsInf(marketPrice, 0) {
		return models.NotBracketable{Err: fmt.Errorf("market price %v is not finite", marketPrice)}
	}
	if err := in.Validate(); err != nil {
		return models.NotBracketable{Err: err}
	}

	objective := func(vol float64) float64 {
		p, err := pricing.Price(in.WithVolatility(vol))
		if err != nil {
			return math.NaN()
		}
		return p - marketPrice
	}

	lo, hi := s.cfg.InitialVolLo, s.cfg.InitialVolHi
	fLo, fHi := objective(lo), objective(hi)
	for sameSign(fLo, fHi) && hi < s.cfg.MaxVolHi {
		hi = math.Min(2*hi, s.cfg.MaxVolHi)
		fHi = objective(hi)
	}

	switch {
	case math.IsNaN(fLo) || math.IsNaN(fHi):
		return models.NotBracketable{Err: fmt.Errorf("objective not finite on [%g, %g]", lo, hi)}
	case fLo == 0:
		return models.Converged{Volatility: lo}
	case fHi == 0:
		return models.Converged{Volatility: hi}
	case sameSign(fLo, fHi):
		return models.BracketFailed{Lo: lo, Hi: hi, FLo: fLo, FHi: fHi}
	}

	res := brent(objective, lo, hi, fLo, fHi, s.cfg.AbsTol, s.cfg.RelTol, s.cfg.MaxIterations)
	if !res.converged {
		return models.NotConverged{Lo: res.lo, Hi: res.hi, Estimate: res.root, Iterations: res.iterations}
	}
	return models.Converged{Volatility: res.root, Iterations: res.iterations}
}

// sameSign reports whether a and b are both non-zero with equal signs.
// It avoids forming a·b, which underflows to zero for tiny errors.
func sameSign(a, b float64) bool {
	return a != 0 && b != 0 && math.Signbit(a) == math.Signbit(b)
}
