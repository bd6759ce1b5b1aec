package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"ImpVol/internal/domain/models"
	"ImpVol/internal/services/ivsolver"
)

func newProcessor(backend string, pub *fakePublisher, store *fakeStore, m *fakeMetrics) *QuoteProcessor {
	return NewQuoteProcessor(NewIVCalculator(nil, 0, nil), ivsolver.DefaultConfig(), pub, store, m, backend, nil)
}

func TestQuoteProcessorRoutesByBackend(t *testing.T) {
	for _, backend := range []string{"kafka", "clickhouse"} {
		t.Run(backend, func(t *testing.T) {
			pub, store, m := &fakePublisher{}, &fakeStore{}, newFakeMetrics()
			p := newProcessor(backend, pub, store, m)
			q := quote("C1", models.Call, atmCallPrice)
			if err := p.Process(context.Background(), &q); err != nil {
				t.Fatalf("process: %v", err)
			}
			got := pub.recs
			if backend == "clickhouse" {
				got = store.recs
				if len(pub.recs) != 0 {
					t.Fatalf("kafka used for clickhouse backend")
				}
			} else if len(store.recs) != 0 {
				t.Fatalf("clickhouse used for kafka backend")
			}
			if len(got) != 1 || !got[0].Converged() {
				t.Fatalf("unexpected records %+v", got)
			}
			if m.sent[backend] != 1 || math.Abs(m.ivs["C1"]-0.2) > 1e-8 {
				t.Fatalf("metrics not recorded: %+v", m)
			}
		})
	}
}

func TestQuoteProcessorNoneBackend(t *testing.T) {
	m := newFakeMetrics()
	p := newProcessor("none", nil, nil, m)
	q := quote("C1", models.Call, atmCallPrice)
	if err := p.Process(context.Background(), &q); err != nil {
		t.Fatalf("process: %v", err)
	}
	if m.sent["none"] != 1 {
		t.Fatalf("metrics not recorded: %+v", m.sent)
	}
}

func TestQuoteProcessorErrors(t *testing.T) {
	m := newFakeMetrics()
	pub := &fakePublisher{err: errors.New("broker down")}
	p := newProcessor("kafka", pub, nil, m)
	q := quote("C1", models.Call, atmCallPrice)
	if err := p.Process(context.Background(), &q); err == nil {
		t.Fatalf("expected publish error")
	}
	if m.errorCount("process") != 1 {
		t.Fatalf("error not counted")
	}
	if err := p.Process(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil quote")
	}
	if err := newProcessor("s3", nil, nil, m).Process(context.Background(), &q); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestQuoteProcessorBatch(t *testing.T) {
	store, m := &fakeStore{}, newFakeMetrics()
	p := newProcessor("clickhouse", nil, store, m)
	a, b := quote("A", models.Call, atmCallPrice), quote("B", models.Call, "150")
	if err := p.ProcessBatch(context.Background(), []*models.OptionQuote{&a, nil, &b}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(store.recs) != 2 || store.recs[1].Status != models.StatusBracketFailed {
		t.Fatalf("unexpected records %+v", store.recs)
	}
	if _, ok := m.ivs["B"]; ok {
		t.Fatalf("failed solve must not record an implied vol")
	}
}
