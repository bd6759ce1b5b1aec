package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptionQuote is a single observed option price from a feed, topic or CSV file.
type OptionQuote struct {
	Symbol        string          `json:"symbol" csv:"symbol"`
	Underlying    string          `json:"underlying" csv:"underlying"`
	Type          OptionType      `json:"type" csv:"type"`
	Strike        decimal.Decimal `json:"strike" csv:"strike"`
	Spot          decimal.Decimal `json:"spot" csv:"spot"`
	Bid           decimal.Decimal `json:"bid" csv:"bid"`
	Ask           decimal.Decimal `json:"ask" csv:"ask"`
	Last          decimal.Decimal `json:"last" csv:"last"`
	Expiry        string          `json:"expiry" csv:"expiry"` // YYYY-MM-DD
	QuoteTime     time.Time       `json:"quote_time" csv:"quote_time"`
	Rate          float64         `json:"rate" csv:"rate"`
	DividendYield float64         `json:"dividend_yield" csv:"dividend_yield"`
}

// IVRecord is the outcome of solving one quote. It is what gets stored and published.
type IVRecord struct {
	Symbol        string      `json:"symbol" csv:"symbol"`
	Underlying    string      `json:"underlying" csv:"underlying"`
	Type          OptionType  `json:"type" csv:"type"`
	Strike        float64     `json:"strike" csv:"strike"`
	Spot          float64     `json:"spot" csv:"spot"`
	MarketPrice   float64     `json:"market_price" csv:"market_price"`
	TimeToExpiry  float64     `json:"time_to_expiry" csv:"time_to_expiry"`
	Rate          float64     `json:"rate" csv:"rate"`
	DividendYield float64     `json:"dividend_yield" csv:"dividend_yield"`
	Moneyness     float64     `json:"moneyness" csv:"moneyness"`
	Status        SolveStatus `json:"status" csv:"status"`
	ImpliedVol    float64     `json:"implied_vol" csv:"implied_vol"`
	Iterations    int         `json:"iterations" csv:"iterations"`
	Reason        string      `json:"reason,omitempty" csv:"reason"`
	Greeks        *Greeks     `json:"greeks,omitempty" csv:"-"`
	QuoteTime     time.Time   `json:"quote_time" csv:"quote_time"`
	ComputedAt    time.Time   `json:"computed_at" csv:"computed_at"`
}

// Converged reports whether the record carries a usable implied volatility.
func (r *IVRecord) Converged() bool { return r.Status == StatusConverged }
