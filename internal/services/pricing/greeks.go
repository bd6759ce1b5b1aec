package pricing

import (
	"math"

	"ImpVol/internal/domain/models"
)

// Greeks returns the Black-Scholes sensitivities of the option.
// At zero volatility they are those of the discounted intrinsic payoff.
func Greeks(in models.PricingInputs) (models.Greeks, error) {
	if err := in.Validate(); err != nil {
		return models.Greeks{}, err
	}
	t := in.TimeToExpiry
	divDisc := math.Exp(-in.DividendYield * t)
	fwdSpot, pvStrike := discounted(in.ContractInputs)

	if in.Volatility == 0 {
		var g models.Greeks
		switch in.Type {
		case models.Call:
			if fwdSpot > pvStrike {
				g.Delta = divDisc
				g.Rho = t * pvStrike
				g.Theta = in.DividendYield*fwdSpot - in.Rate*pvStrike
			}
		case models.Put:
			if pvStrike > fwdSpot {
				g.Delta = -divDisc
				g.Rho = -t * pvStrike
				g.Theta = in.Rate*pvStrike - in.DividendYield*fwdSpot
			}
		}
		return g, nil
	}

	d1, d2 := d1d2(in)
	sqrtT := math.Sqrt(t)
	pdf := normal.Prob(d1)

	g := models.Greeks{
		Gamma: divDisc * pdf / (in.Spot * in.Volatility * sqrtT),
		Vega:  fwdSpot * pdf * sqrtT,
	}
	decay := -fwdSpot * pdf * in.Volatility / (2 * sqrtT)
	switch in.Type {
	case models.Call:
		g.Delta = divDisc * normal.CDF(d1)
		g.Theta = decay - in.Rate*pvStrike*normal.CDF(d2) + in.DividendYield*fwdSpot*normal.CDF(d1)
		g.Rho = t * pvStrike * normal.CDF(d2)
	case models.Put:
		g.Delta = -divDisc * normal.CDF(-d1)
		g.Theta = decay + in.Rate*pvStrike*normal.CDF(-d2) - in.DividendYield*fwdSpot*normal.CDF(-d1)
		g.Rho = -t * pvStrike * normal.CDF(-d2)
	}
	return g, nil
}

// Vega is ∂price/∂σ; it is zero at σ=0.
func Vega(in models.PricingInputs) (float64, error) {
	g, err := Greeks(in)
	if err != nil {
		return 0, err
	}
	return g.Vega, nil
}
