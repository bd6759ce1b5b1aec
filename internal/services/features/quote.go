package features

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"ImpVol/internal/domain/models"
	"ImpVol/pkg/util"
)

var two = decimal.NewFromInt(2)

// MarketPrice picks the price to invert: the bid/ask mid when the quote is
// two-sided and not crossed, otherwise the last trade.
func MarketPrice(q models.OptionQuote) (decimal.Decimal, bool) {
	if q.Bid.IsPositive() && q.Ask.GreaterThanOrEqual(q.Bid) {
		return q.Bid.Add(q.Ask).Div(two), true
	}
	if q.Last.IsPositive() {
		return q.Last, true
	}
	return decimal.Zero, false
}

// Moneyness is S/K.
func Moneyness(spot, strike float64) float64 {
	if strike <= 0 {
		return 0
	}
	return spot / strike
}

// ArbitrageBounds returns the no-arbitrage range of a European option price.
// Prices outside it cannot be produced by any volatility.
func ArbitrageBounds(c models.ContractInputs) (lower, upper float64) {
	fwdSpot := c.Spot * math.Exp(-c.DividendYield*c.TimeToExpiry)
	pvStrike := c.Strike * math.Exp(-c.Rate*c.TimeToExpiry)
	switch c.Type {
	case models.Call:
		return math.Max(fwdSpot-pvStrike, 0), fwdSpot
	case models.Put:
		return math.Max(pvStrike-fwdSpot, 0), pvStrike
	}
	return 0, 0
}

// ContractFromQuote converts a quote into solver inputs as observed at the given instant.
func ContractFromQuote(q models.OptionQuote, observed time.Time) (models.ContractInputs, error) {
	tte, err := util.TimeToExpiry(q.Expiry, observed)
	if err != nil {
		return models.ContractInputs{}, fmt.Errorf("%s: %w", q.Symbol, err)
	}
	return models.ContractInputs{
		Spot:          q.Spot.InexactFloat64(),
		Strike:        q.Strike.InexactFloat64(),
		TimeToExpiry:  tte,
		Rate:          q.Rate,
		DividendYield: q.DividendYield,
		Type:          q.Type,
	}, nil
}
