package repository

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ImpVol/internal/domain/models"
	pkgkafka "ImpVol/pkg/kafka"
	"ImpVol/pkg/logger"
)

type recordingProducer struct {
	topic string
	msgs  []pkgkafka.Message
}

func (r *recordingProducer) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	r.topic = topic
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func TestKafkaIVPublisherKeysBySymbol(t *testing.T) {
	prod := &recordingProducer{}
	pub := NewKafkaIVPublisher(prod, "implied-vols")
	recs := []*models.IVRecord{
		{Symbol: "SPY250321C00500000", Type: models.Call, Status: models.StatusConverged, ImpliedVol: 0.18},
		nil,
		{Symbol: "SPY250321P00500000", Type: models.Put, Status: models.StatusBracketFailed},
	}
	if err := pub.PublishBatch(context.Background(), recs); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if prod.topic != "implied-vols" || len(prod.msgs) != 2 {
		t.Fatalf("unexpected publish %q %d", prod.topic, len(prod.msgs))
	}
	if string(prod.msgs[1].Key) != "SPY250321P00500000" {
		t.Fatalf("key = %s", prod.msgs[1].Key)
	}
	b, err := json.Marshal(prod.msgs[0].Value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"type":"call"`) || !strings.Contains(string(b), `"status":"converged"`) {
		t.Fatalf("unexpected payload %s", b)
	}
}

func TestKafkaDigestSink(t *testing.T) {
	prod := &recordingProducer{}
	sink := NewKafkaDigestSink(prod, "digest")
	if err := sink.PublishDigest(context.Background(), []logger.DigestEntry{{Level: "warn", Message: "x", Count: 3}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if prod.topic != "digest" || len(prod.msgs) != 1 {
		t.Fatalf("unexpected publish %q %d", prod.topic, len(prod.msgs))
	}
}

func TestBuildInsert(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	recs := []*models.IVRecord{
		{Symbol: "A", Type: models.Call, Status: models.StatusConverged, QuoteTime: now, ComputedAt: now, Iterations: 9},
		{Symbol: ""},
		{Symbol: "B", Type: models.Put, Status: models.StatusNotConverged, QuoteTime: now, ComputedAt: now, Iterations: 200},
	}
	q, args := buildInsert("impvol.implied_vols", recs)
	if !strings.HasPrefix(q, "INSERT INTO impvol.implied_vols (ts, computed_at, symbol") {
		t.Fatalf("unexpected query %s", q)
	}
	if strings.Count(q, "(?,") != 2 || len(args) != 32 {
		t.Fatalf("expected 2 rows, got %d placeholders and %d args", strings.Count(q, "(?,"), len(args))
	}
	if args[4] != "call" || args[20] != "put" {
		t.Fatalf("option types not rendered as text: %v %v", args[4], args[20])
	}
}

func TestIVSchemaMentionsTable(t *testing.T) {
	stmts := IVSchema("impvol", "implied_vols")
	if len(stmts) != 2 || !strings.Contains(stmts[1], "impvol.implied_vols") {
		t.Fatalf("unexpected schema %v", stmts)
	}
}

func TestDecodeEnumsRejectsUnknownStatus(t *testing.T) {
	var r models.IVRecord
	if err := decodeEnums(&r, "put", string(models.StatusNotConverged), 200); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Type != models.Put || r.Status != models.StatusNotConverged || r.Iterations != 200 {
		t.Fatalf("unexpected record %+v", r)
	}

	var bad models.IVRecord
	if err := decodeEnums(&bad, "call", "converged_maybe", 1); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if err := decodeEnums(&bad, "straddle", string(models.StatusConverged), 1); err == nil {
		t.Fatalf("expected error for unknown option type")
	}
}
