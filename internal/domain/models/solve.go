package models

import "fmt"

// SolverConfig bounds the implied volatility search.
// Zero fields take the `default` tag value; invariants are the `validate` tags.
type SolverConfig struct {
	InitialVolLo  float64 `yaml:"initial_vol_lo" json:"initial_vol_lo" default:"1e-12" validate:"gt=0"`
	InitialVolHi  float64 `yaml:"initial_vol_hi" json:"initial_vol_hi" default:"50" validate:"gtfield=InitialVolLo"`
	MaxVolHi      float64 `yaml:"max_vol_hi" json:"max_vol_hi" default:"2000" validate:"gtefield=InitialVolHi"`
	AbsTol        float64 `yaml:"abs_tol" json:"abs_tol" default:"1e-12" validate:"gt=0"`
	RelTol        float64 `yaml:"rel_tol" json:"rel_tol" default:"1e-12" validate:"gt=0"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations" default:"200" validate:"gt=0"`
}

type SolveStatus string

const (
	StatusConverged      SolveStatus = "converged"
	StatusBracketFailed  SolveStatus = "bracket_failed"
	StatusNotConverged   SolveStatus = "not_converged"
	StatusNotBracketable SolveStatus = "not_bracketable"
)

func (s SolveStatus) String() string { return string(s) }

// UnmarshalText rejects unknown statuses so stored records stay comparable.
func (s *SolveStatus) UnmarshalText(b []byte) error {
	switch v := SolveStatus(b); v {
	case StatusConverged, StatusBracketFailed, StatusNotConverged, StatusNotBracketable:
		*s = v
		return nil
	}
	return fmt.Errorf("unknown solve status %q", string(b))
}

// SolveResult is one of Converged, BracketFailed, NotConverged or NotBracketable.
type SolveResult interface {
	Status() SolveStatus
	isSolveResult()
}

// Converged carries the volatility that reproduces the market price.
type Converged struct {
	Volatility float64
	Iterations int
}

// BracketFailed means no sign change of price(σ)-market was found on [Lo, Hi].
type BracketFailed struct {
	Lo, Hi   float64
	FLo, FHi float64
}

// NotConverged means the bracket was found but the iteration budget ran out.
// Estimate is the last iterate and must not be used as an implied volatility.
type NotConverged struct {
	Lo, Hi     float64
	Estimate   float64
	Iterations int
}

// NotBracketable means the objective could not be evaluated at all.
type NotBracketable struct {
	Err error
}

func (Converged) Status() SolveStatus      { return StatusConverged }
func (BracketFailed) Status() SolveStatus  { return StatusBracketFailed }
func (NotConverged) Status() SolveStatus   { return StatusNotConverged }
func (NotBracketable) Status() SolveStatus { return StatusNotBracketable }

func (Converged) isSolveResult()      {}
func (BracketFailed) isSolveResult()  {}
func (NotConverged) isSolveResult()   {}
func (NotBracketable) isSolveResult() {}

// Reason tells which side of the attainable price range the market price fell on.
func (b BracketFailed) Reason() string {
	switch {
	case b.FLo > 0 && b.FHi > 0:
		return "price below minimum-volatility value"
	case b.FLo < 0 && b.FHi < 0:
		return "price above maximum-volatility value"
	default:
		return "no sign change"
	}
}

func (n NotBracketable) Reason() string {
	if n.Err == nil {
		return "objective not evaluable"
	}
	return n.Err.Error()
}

func (n NotConverged) Reason() string {
	return fmt.Sprintf("not converged after %d iterations on [%g, %g]", n.Iterations, n.Lo, n.Hi)
}

// ImpliedVol returns the volatility when r is Converged.
func ImpliedVol(r SolveResult) (float64, bool) {
	c, ok := r.(Converged)
	return c.Volatility, ok
}

// Describe returns a short human readable reason for non-converged results, empty otherwise.
func Describe(r SolveResult) string {
	switch v := r.(type) {
	case BracketFailed:
		return v.Reason()
	case NotConverged:
		return v.Reason()
	case NotBracketable:
		return v.Reason()
	default:
		return ""
	}
}
