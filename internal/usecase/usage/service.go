package usage

import (
	"context"
	"time"

	domusage "github.com/smartapply/jobsearch/internal/domain/usage"
)

// Service reports embedding token usage against the configured budget.
type Service struct {
	provider string
	br       BudgetReader
	now      func() time.Time
}

// New creates a Service. br can be nil (unlimited mode, nothing tracked).
func New(provider string, br BudgetReader) *Service {
	return &Service{provider: provider, br: br, now: time.Now}
}

// GetReport builds a usage report for the current window of period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	start, end := period.Bounds(s.now())
	r := domusage.Report{
		Provider:    s.provider,
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
	}
	if s.br == nil {
		return r
	}

	r.TokensUsed, r.TokensLimit = s.br.Usage(period)
	if r.Limited() {
		r.TokensRemaining = s.br.Remaining(period)
	}
	return r
}
