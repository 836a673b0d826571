package usage

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// Period is a fixed window boundary scheme. All boundaries are UTC.
type Period string

const (
	Daily   Period = "daily"
	Monthly Period = "monthly"
)

// Start returns the beginning of the period containing t.
func (p Period) Start(t time.Time) time.Time {
	t = t.UTC()
	switch p {
	case Daily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

// Next returns the boundary at which the period containing t ends.
func (p Period) Next(t time.Time) time.Time {
	start := p.Start(t)
	if p == Daily {
		return start.AddDate(0, 0, 1)
	}
	return start.AddDate(0, 1, 0)
}

// Remaining is the time from t to the end of its period.
func (p Period) Remaining(t time.Time) time.Duration {
	return p.Next(t).Sub(t)
}

// Bucket renders the period containing t, e.g. "2026-10-19" or "2026-10".
func (p Period) Bucket(t time.Time) string {
	if p == Daily {
		return t.UTC().Format(time.DateOnly)
	}
	return t.UTC().Format("2006-01")
}

// Key builds the storage key for a feature window of an account.
func Key(feature string, account meter.Key, p Period, now time.Time) string {
	return fmt.Sprintf("usage:%s:%s:%s:%s", feature, account, p, p.Bucket(now))
}
