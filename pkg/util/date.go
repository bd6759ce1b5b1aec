package util

import (
	"fmt"
	"strconv"
	"time"
)

// ExpiryLayout is the calendar date format of option expirations.
const ExpiryLayout = "2006-01-02"

// SecondsPerYear is the year length used for time to expiry (365 days).
const SecondsPerYear = 365 * 24 * 60 * 60

// Options expire at the 16:30 New York close, taken as 21:30 UTC all year.
const (
	expiryHourUTC   = 21
	expiryMinuteUTC = 30
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// ExpiryInstant returns the moment an option expiring on date (YYYY-MM-DD) stops trading.
func ExpiryInstant(date string) (time.Time, error) {
	d, err := time.Parse(ExpiryLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expiry %q: %w", date, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), expiryHourUTC, expiryMinuteUTC, 0, 0, time.UTC), nil
}

// YearFraction is the time from observation to expiration in 365-day years.
// It is negative when the expiration is already past.
func YearFraction(expiration, observation time.Time) float64 {
	return expiration.Sub(observation).Seconds() / SecondsPerYear
}

// TimeToExpiry combines ExpiryInstant and YearFraction.
func TimeToExpiry(expiry string, observation time.Time) (float64, error) {
	at, err := ExpiryInstant(expiry)
	if err != nil {
		return 0, err
	}
	return YearFraction(at, observation), nil
}

// AlignFromTo clamps a history window: zero to means now, zero from means lookback before to.
func AlignFromTo(from, to time.Time, lookback time.Duration) (time.Time, time.Time) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() || !from.Before(to) {
		from = to.Add(-lookback)
	}
	return from.Truncate(time.Second), to.Truncate(time.Second)
}
