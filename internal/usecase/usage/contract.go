package usage

import domusage "github.com/smartapply/jobsearch/internal/domain/usage"

// BudgetReader exposes the token budget counters for one provider.
type BudgetReader interface {
	Usage(p domusage.Period) (used, limit int64)
	Remaining(p domusage.Period) int64
}
