package usage

import (
	"fmt"
	"time"
)

// Period is the budget window a report covers.
type Period string

// Report periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod normalizes s. An empty string selects PeriodMonth.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodMonth, nil
	case PeriodDay, PeriodMonth:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown usage period %q", s)
}

// Bounds returns the UTC window of p containing t.
func (p Period) Bounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	if p == PeriodDay {
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	}
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Report is the embedding token consumption for one budget window.
// A zero TokensLimit means the window is unlimited.
type Report struct {
	Provider        string
	Period          Period
	PeriodStart     time.Time
	PeriodEnd       time.Time
	TokensUsed      int64
	TokensLimit     int64
	TokensRemaining int64
}

// Limited reports whether a token limit applies.
func (r *Report) Limited() bool { return r.TokensLimit > 0 }

// Exhausted reports whether the limit has been reached.
func (r *Report) Exhausted() bool { return r.Limited() && r.TokensRemaining <= 0 }

// ResetsAt returns when the counter starts over.
func (r *Report) ResetsAt() time.Time { return r.PeriodEnd }
