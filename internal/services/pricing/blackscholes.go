package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"ImpVol/internal/domain/models"
)

// normal is the standard normal distribution used for Φ and φ.
var normal = distuv.UnitNormal

// Price returns the Black-Scholes value of a European option with continuous dividend yield.
//
// With zero volatility the option is worth its discounted intrinsic value,
// max(S·e^(−qt) − K·e^(−rt), 0) for a call and the mirror image for a put.
func Price(in models.PricingInputs) (float64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	fwdSpot, pvStrike := discounted(in.ContractInputs)

	if in.Volatility == 0 {
		switch in.Type {
		case models.Call:
			return math.Max(fwdSpot-pvStrike, 0), nil
		case models.Put:
			return math.Max(pvStrike-fwdSpot, 0), nil
		}
	}

	d1, d2 := d1d2(in)
	switch in.Type {
	case models.Call:
		return fwdSpot*normal.CDF(d1) - pvStrike*normal.CDF(d2), nil
	case models.Put:
		return pvStrike*normal.CDF(-d2) - fwdSpot*normal.CDF(-d1), nil
	}
	// unreachable: Validate rejects other types
	return 0, &models.DomainError{Field: "type", Value: float64(in.Type), Reason: "must be call or put"}
}

// Parity returns call − put implied by put-call parity, S·e^(−qt) − K·e^(−rt).
func Parity(in models.ContractInputs) float64 {
	fwdSpot, pvStrike := discounted(in)
	return fwdSpot - pvStrike
}

// discounted returns S·e^(−qt) and K·e^(−rt).
func discounted(in models.ContractInputs) (float64, float64) {
	return in.Spot * math.Exp(-in.DividendYield*in.TimeToExpiry),
		in.Strike * math.Exp(-in.Rate*in.TimeToExpiry)
}

func d1d2(in models.PricingInputs) (float64, float64) {
	sqrtT := math.Sqrt(in.TimeToExpiry)
	volSqrtT := in.Volatility * sqrtT
	d1 := (math.Log(in.Spot/in.Strike) + (in.Rate-in.DividendYield+0.5*in.Volatility*in.Volatility)*in.TimeToExpiry) / volSqrtT
	return d1, d1 - volSqrtT
}
