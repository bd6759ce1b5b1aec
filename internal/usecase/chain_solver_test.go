package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"ImpVol/internal/domain/models"
	"ImpVol/internal/services/ivsolver"
)

func TestSolveChainKeepsOrderAndIsolatesFailures(t *testing.T) {
	var quotes []models.OptionQuote
	for i := 0; i < 40; i++ {
		sym := fmt.Sprintf("Q%02d", i)
		switch i % 4 {
		case 0, 1:
			quotes = append(quotes, quote(sym, models.Call, atmCallPrice))
		case 2:
			quotes = append(quotes, quote(sym, models.Call, "150")) // above spot
		case 3:
			quotes = append(quotes, quote(sym, models.Call, "0")) // no price
		}
	}

	s := NewChainSolver(NewIVCalculator(nil, 0, nil), 4)
	recs, err := s.SolveChain(context.Background(), quotes, observedAt, ivsolver.DefaultConfig())
	if err != nil {
		t.Fatalf("solve chain: %v", err)
	}
	if len(recs) != len(quotes) {
		t.Fatalf("got %d records for %d quotes", len(recs), len(quotes))
	}
	for i, r := range recs {
		if r.Symbol != quotes[i].Symbol {
			t.Fatalf("record %d is %s, want %s", i, r.Symbol, quotes[i].Symbol)
		}
		var want models.SolveStatus
		switch i % 4 {
		case 0, 1:
			want = models.StatusConverged
			if math.Abs(r.ImpliedVol-0.2) > 1e-8 {
				t.Fatalf("record %d iv %v", i, r.ImpliedVol)
			}
		case 2:
			want = models.StatusBracketFailed
		case 3:
			want = models.StatusNotBracketable
		}
		if r.Status != want {
			t.Fatalf("record %d status %s, want %s", i, r.Status, want)
		}
	}

	sum := Summarize(recs)
	if sum[models.StatusConverged] != 20 || sum[models.StatusBracketFailed] != 10 || sum[models.StatusNotBracketable] != 10 {
		t.Fatalf("unexpected summary %v", sum)
	}
}

func TestSolveChainRejectsBadConfig(t *testing.T) {
	s := NewChainSolver(NewIVCalculator(nil, 0, nil), 2)
	cfg := ivsolver.DefaultConfig()
	cfg.InitialVolLo = 0
	if _, err := s.SolveChain(context.Background(), []models.OptionQuote{quote("A", models.Call, "5")}, observedAt, cfg); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestSolveChainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewChainSolver(NewIVCalculator(nil, 0, nil), 2)
	_, err := s.SolveChain(ctx, []models.OptionQuote{quote("A", models.Call, "5")}, observedAt, ivsolver.DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSolveChainEmpty(t *testing.T) {
	recs, err := NewChainSolver(NewIVCalculator(nil, 0, nil), 0).SolveChain(context.Background(), nil, observedAt, ivsolver.DefaultConfig())
	if err != nil || len(recs) != 0 {
		t.Fatalf("unexpected %v %v", recs, err)
	}
}
