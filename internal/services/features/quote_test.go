package features

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ImpVol/internal/domain/models"
)

func TestMarketPrice(t *testing.T) {
	cases := []struct {
		name     string
		bid, ask string
		last     string
		want     string
		ok       bool
	}{
		{"mid", "1.10", "1.30", "1.00", "1.2", true},
		{"crossed uses last", "1.30", "1.10", "1.25", "1.25", true},
		{"one sided uses last", "0", "1.10", "0.95", "0.95", true},
		{"nothing", "0", "0", "0", "0", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := models.OptionQuote{
				Bid:  decimal.RequireFromString(tc.bid),
				Ask:  decimal.RequireFromString(tc.ask),
				Last: decimal.RequireFromString(tc.last),
			}
			got, ok := MarketPrice(q)
			if ok != tc.ok || !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("got (%s, %v), want (%s, %v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestArbitrageBounds(t *testing.T) {
	c := models.ContractInputs{Spot: 100, Strike: 50, TimeToExpiry: 1, Rate: 0.05, Type: models.Call}
	lo, hi := ArbitrageBounds(c)
	if math.Abs(lo-(100-50*math.Exp(-0.05))) > 1e-12 || hi != 100 {
		t.Fatalf("call bounds = [%v, %v]", lo, hi)
	}
	c.Type = models.Put
	lo, hi = ArbitrageBounds(c)
	if lo != 0 || math.Abs(hi-50*math.Exp(-0.05)) > 1e-12 {
		t.Fatalf("put bounds = [%v, %v]", lo, hi)
	}
}

func TestMoneyness(t *testing.T) {
	if Moneyness(110, 100) != 1.1 || Moneyness(1, 0) != 0 {
		t.Fatalf("unexpected moneyness")
	}
}

func TestContractFromQuote(t *testing.T) {
	q := models.OptionQuote{
		Symbol: "SPY250321C00500000",
		Type:   models.Call,
		Strike: decimal.NewFromInt(500),
		Spot:   decimal.RequireFromString("512.25"),
		Expiry: "2025-03-21",
		Rate:   0.045,
	}
	observed := time.Date(2025, 3, 14, 21, 30, 0, 0, time.UTC)
	c, err := ContractFromQuote(q, observed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Spot != 512.25 || c.Strike != 500 || c.Type != models.Call || c.Rate != 0.045 {
		t.Fatalf("unexpected contract %+v", c)
	}
	if math.Abs(c.TimeToExpiry-7.0/365) > 1e-12 {
		t.Fatalf("tte = %v", c.TimeToExpiry)
	}

	q.Expiry = "next friday"
	if _, err := ContractFromQuote(q, observed); err == nil {
		t.Fatalf("expected error for bad expiry")
	}
}
