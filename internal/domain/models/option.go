package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// OptionType is the exercise right of a European option.
type OptionType uint8

const (
	Call OptionType = iota + 1
	Put
)

func (t OptionType) String() string {
	switch t {
	case Call:
		return "call"
	case Put:
		return "put"
	default:
		return fmt.Sprintf("OptionType(%d)", uint8(t))
	}
}

// Valid reports whether t is Call or Put.
func (t OptionType) Valid() bool { return t == Call || t == Put }

// ParseOptionType accepts "call"/"put" and the one-letter forms "c"/"p", case-insensitive.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	default:
		return 0, fmt.Errorf("unknown option type %q", s)
	}
}

func (t OptionType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid option type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *OptionType) UnmarshalText(b []byte) error {
	v, err := ParseOptionType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ErrDomain is matched by every *DomainError via errors.Is.
var ErrDomain = errors.New("pricing domain error")

// DomainError reports a pricing input outside the model's domain.
type DomainError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("invalid %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *DomainError) Is(target error) bool { return target == ErrDomain }

// ContractInputs holds everything needed to price an option except the volatility.
type ContractInputs struct {
	Spot          float64    `json:"spot"`
	Strike        float64    `json:"strike"`
	TimeToExpiry  float64    `json:"time_to_expiry"` // years
	Rate          float64    `json:"rate"`
	DividendYield float64    `json:"dividend_yield"`
	Type          OptionType `json:"type"`
}

// WithVolatility returns the full pricing inputs for the given volatility.
func (c ContractInputs) WithVolatility(vol float64) PricingInputs {
	return PricingInputs{ContractInputs: c, Volatility: vol}
}

func (c ContractInputs) Validate() error {
	switch {
	case !positive(c.Spot):
		return &DomainError{Field: "spot", Value: c.Spot, Reason: "must be positive and finite"}
	case !positive(c.Strike):
		return &DomainError{Field: "strike", Value: c.Strike, Reason: "must be positive and finite"}
	case !positive(c.TimeToExpiry):
		return &DomainError{Field: "time_to_expiry", Value: c.TimeToExpiry, Reason: "must be positive and finite"}
	case !finite(c.Rate):
		return &DomainError{Field: "rate", Value: c.Rate, Reason: "must be finite"}
	case !finite(c.DividendYield) || c.DividendYield < 0:
		return &DomainError{Field: "dividend_yield", Value: c.DividendYield, Reason: "must be non-negative and finite"}
	case !c.Type.Valid():
		return &DomainError{Field: "type", Value: float64(c.Type), Reason: "must be call or put"}
	}
	return nil
}

// PricingInputs are the Black-Scholes inputs of a single option.
type PricingInputs struct {
	ContractInputs
	Volatility float64 `json:"volatility"`
}

func (p PricingInputs) Validate() error {
	if err := p.ContractInputs.Validate(); err != nil {
		return err
	}
	if !finite(p.Volatility) || p.Volatility < 0 {
		return &DomainError{Field: "volatility", Value: p.Volatility, Reason: "must be non-negative and finite"}
	}
	return nil
}

// Greeks are first and second order sensitivities of the option value.
// Vega and Rho are per unit change (1.00 = 100 vol points / 100% rate), Theta is per year.
type Greeks struct {
	Delta float64 `json:"delta" csv:"delta"`
	Gamma float64 `json:"gamma" csv:"gamma"`
	Vega  float64 `json:"vega" csv:"vega"`
	Theta float64 `json:"theta" csv:"theta"`
	Rho   float64 `json:"rho" csv:"rho"`
}

func finite(v float64) bool   { return !math.IsNaN(v) && !math.IsInf(v, 0) }
func positive(v float64) bool { return finite(v) && v > 0 }
