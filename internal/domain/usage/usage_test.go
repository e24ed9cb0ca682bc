package usage

import (
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", PeriodMonth, false},
		{"day", PeriodDay, false},
		{"month", PeriodMonth, false},
		{"total", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePeriod(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestBounds(t *testing.T) {
	at := time.Date(2026, 12, 31, 23, 30, 0, 0, time.FixedZone("X", -2*3600)) // 2027-01-01 01:30 UTC

	start, end := PeriodDay.Bounds(at)
	if !start.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day bounds = %v..%v", start, end)
	}

	start, end = PeriodMonth.Bounds(at)
	if !start.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month bounds = %v..%v", start, end)
	}
}

func TestReport_Exhausted(t *testing.T) {
	unlimited := Report{TokensUsed: 1e9}
	if unlimited.Limited() || unlimited.Exhausted() {
		t.Error("unlimited report reported as limited/exhausted")
	}

	r := Report{TokensLimit: 100, TokensUsed: 100, TokensRemaining: 0}
	if !r.Exhausted() {
		t.Error("expected exhausted")
	}
	r.TokensRemaining = 1
	if r.Exhausted() {
		t.Error("expected not exhausted")
	}
}
