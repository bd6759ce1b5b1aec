package models

// Requests for the pricing HTTP endpoints. Defined in domain for consistency and reuse.

type PriceRequest struct {
	Type          string  `query:"type" json:"type" validate:"required,oneof=call put c p"`
	Spot          float64 `query:"spot" json:"spot" validate:"gt=0"`
	Strike        float64 `query:"strike" json:"strike" validate:"gt=0"`
	Volatility    float64 `query:"volatility" json:"volatility" validate:"gte=0"`
	TimeToExpiry  float64 `query:"time_to_expiry" json:"time_to_expiry" validate:"gt=0"`
	Rate          float64 `query:"rate" json:"rate"`
	DividendYield float64 `query:"dividend_yield" json:"dividend_yield" validate:"gte=0"`
}

// SolverOverrides replaces the service solver settings field by field; zero means keep.
type SolverOverrides struct {
	InitialVolLo  float64 `json:"initial_vol_lo" validate:"omitempty,gt=0"`
	InitialVolHi  float64 `json:"initial_vol_hi" validate:"omitempty,gt=0"`
	MaxVolHi      float64 `json:"max_vol_hi" validate:"omitempty,gt=0"`
	AbsTol        float64 `json:"abs_tol" validate:"omitempty,gt=0"`
	RelTol        float64 `json:"rel_tol" validate:"omitempty,gt=0"`
	MaxIterations int     `json:"max_iterations" validate:"omitempty,gt=0,lte=10000"`
}

// Apply returns base with the non-zero overrides copied in.
func (o SolverOverrides) Apply(base SolverConfig) SolverConfig {
	if o.InitialVolLo > 0 {
		base.InitialVolLo = o.InitialVolLo
	}
	if o.InitialVolHi > 0 {
		base.InitialVolHi = o.InitialVolHi
	}
	if o.MaxVolHi > 0 {
		base.MaxVolHi = o.MaxVolHi
	}
	if o.AbsTol > 0 {
		base.AbsTol = o.AbsTol
	}
	if o.RelTol > 0 {
		base.RelTol = o.RelTol
	}
	if o.MaxIterations > 0 {
		base.MaxIterations = o.MaxIterations
	}
	return base
}

type IVRequest struct {
	Type          string          `json:"type" validate:"required,oneof=call put c p"`
	MarketPrice   float64         `json:"market_price" validate:"gte=0"`
	Spot          float64         `json:"spot" validate:"gt=0"`
	Strike        float64         `json:"strike" validate:"gt=0"`
	TimeToExpiry  float64         `json:"time_to_expiry" validate:"omitempty,gt=0"`
	Expiry        string          `json:"expiry" validate:"omitempty,datetime=2006-01-02"`
	AsOf          string          `json:"as_of"` // RFC3339 or unix seconds; defaults to now
	Rate          float64         `json:"rate"`
	DividendYield float64         `json:"dividend_yield" validate:"gte=0"`
	Solver        SolverOverrides `json:"solver"`
}

type ChainRequest struct {
	Quotes []OptionQuote   `json:"quotes" validate:"required,min=1,max=5000"`
	AsOf   string          `json:"as_of"`
	Solver SolverOverrides `json:"solver"`
	Greeks bool            `json:"greeks"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}

// PriceResult is the value and sensitivities of one option.
type PriceResult struct {
	Inputs PricingInputs `json:"inputs"`
	Price  float64       `json:"price"`
	Greeks Greeks        `json:"greeks"`
}

// IVResult is the transport form of a SolveResult.
type IVResult struct {
	Status     SolveStatus `json:"status"`
	ImpliedVol float64     `json:"implied_vol,omitempty"`
	Iterations int         `json:"iterations,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Lo         float64     `json:"lo,omitempty"`
	Hi         float64     `json:"hi,omitempty"`
	FLo        float64     `json:"f_lo,omitempty"`
	FHi        float64     `json:"f_hi,omitempty"`
}

// NewIVResult flattens a SolveResult.
func NewIVResult(r SolveResult) IVResult {
	out := IVResult{Status: r.Status(), Reason: Describe(r)}
	switch v := r.(type) {
	case Converged:
		out.ImpliedVol = v.Volatility
		out.Iterations = v.Iterations
	case BracketFailed:
		out.Lo, out.Hi, out.FLo, out.FHi = v.Lo, v.Hi, v.FLo, v.FHi
	case NotConverged:
		out.Lo, out.Hi = v.Lo, v.Hi
		out.Iterations = v.Iterations
	}
	return out
}
