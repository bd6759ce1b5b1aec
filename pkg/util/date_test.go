package util

import (
	"math"
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestExpiryInstant(t *testing.T) {
	got, err := ExpiryInstant("2025-03-21")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 3, 21, 21, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if _, err := ExpiryInstant("21/03/2025"); err == nil {
		t.Fatalf("expected error for bad layout")
	}
}

func TestYearFraction(t *testing.T) {
	obs := time.Date(2024, 1, 1, 21, 30, 0, 0, time.UTC)
	if got := YearFraction(obs.Add(365*24*time.Hour), obs); got != 1 {
		t.Fatalf("365 days = %v years", got)
	}
	if got := YearFraction(obs.Add(-24*time.Hour), obs); got >= 0 {
		t.Fatalf("past expiry should be negative, got %v", got)
	}
	// deterministic for the same instants in different zones
	ny, _ := time.LoadLocation("America/New_York")
	if ny != nil && YearFraction(obs.Add(time.Hour), obs.In(ny)) != YearFraction(obs.Add(time.Hour), obs) {
		t.Fatalf("result depends on location")
	}
}

func TestTimeToExpiry(t *testing.T) {
	obs := time.Date(2025, 3, 20, 21, 30, 0, 0, time.UTC)
	got, err := TimeToExpiry("2025-03-21", obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-1.0/365) > 1e-15 {
		t.Fatalf("got %v want 1/365", got)
	}
}

func TestAlignFromTo(t *testing.T) {
	to := time.Date(2025, 1, 2, 3, 4, 5, 600, time.UTC)
	from, gotTo := AlignFromTo(time.Time{}, to, time.Hour)
	if !gotTo.Equal(to.Truncate(time.Second)) || !from.Equal(gotTo.Add(-time.Hour)) {
		t.Fatalf("unexpected window %v - %v", from, gotTo)
	}
}
