package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smartapply/jobsearch/internal/domain"
	domusage "github.com/smartapply/jobsearch/internal/domain/usage"
)

// BudgetAction defines behavior when token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore persists token counters per provider, period and bucket.
// period is "daily" or "monthly"; AddUsage may be called repeatedly for the same bucket.
type BudgetStore interface {
	AddUsage(ctx context.Context, provider, period string, at time.Time, tokens int64) error
	Usage(ctx context.Context, provider, period string, at time.Time) (int64, error)
}

const persistTimeout = 2 * time.Second

// budgetWindow is one calendar counter (UTC day or month).
type budgetWindow struct {
	period    domusage.Period
	storeName string
	limit     int64
	used      int64
	start     time.Time
}

// roll zeroes the counter once now has left the current window.
func (w *budgetWindow) roll(now time.Time) {
	start, _ := w.period.Bounds(now)
	if start.After(w.start) {
		w.used = 0
		w.start = start
	}
}

func (w *budgetWindow) exhausted() bool { return w.limit > 0 && w.used >= w.limit }

func (w *budgetWindow) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(w.limit-w.used, 0)
}

// BudgetTracker enforces daily and monthly token caps for one provider.
// Check reads memory only; Record updates memory and then writes behind to the store.
type BudgetTracker struct {
	mu       sync.Mutex
	provider string
	action   BudgetAction
	windows  []*budgetWindow
	store    BudgetStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewBudgetTracker creates a budget tracker. A zero limit disables that window.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	return newBudgetTracker(provider, dailyLimit, monthlyLimit, action, logger, time.Now)
}

func newBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger, clock func() time.Time,
) *BudgetTracker {
	b := &BudgetTracker{
		provider: provider,
		action:   action,
		windows: []*budgetWindow{
			{period: domusage.PeriodDay, storeName: "daily", limit: dailyLimit},
			{period: domusage.PeriodMonth, storeName: "monthly", limit: monthlyLimit},
		},
		logger: logger,
		now:    clock,
	}
	now := clock()
	for _, w := range b.windows {
		w.start, _ = w.period.Bounds(now)
	}
	return b
}

// WithStore attaches a persistence store and seeds the counters from it.
// Load failures are logged; counting then starts from zero.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	fields := []zap.Field{zap.String("provider", b.provider)}
	for _, w := range b.windows {
		used, err := store.Usage(ctx, b.provider, w.storeName, now)
		if err != nil {
			b.logger.Warn("Failed to load token budget",
				zap.String("provider", b.provider),
				zap.String("period", w.storeName),
				zap.Error(err),
			)
			continue
		}
		w.used = used
		fields = append(fields, zap.Int64(w.storeName+"_used", used))
	}
	b.logger.Info("Budget loaded from store", fields...)
	return b
}

// Check returns ErrEmbeddingQuotaExceeded when a window is exhausted and the
// action is reject. With the warn action it only logs.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var over *budgetWindow
	for _, w := range b.windows {
		w.roll(now)
		if over == nil && w.exhausted() {
			over = w
		}
	}
	if over == nil {
		return nil
	}

	if b.action == BudgetActionReject {
		return fmt.Errorf("%s limit of %d tokens reached: %w",
			over.storeName, over.limit, domain.ErrEmbeddingQuotaExceeded)
	}
	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.String("period", over.storeName),
		zap.Int64("used", over.used),
		zap.Int64("limit", over.limit),
	)
	return nil
}

// Record adds consumed tokens to every window and persists them when a store is attached.
// Persistence uses a detached context so a canceled request still counts.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	now := b.now()
	for _, w := range b.windows {
		w.roll(now)
		w.used += tokens
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for _, w := range b.windows {
		if err := store.AddUsage(ctx, b.provider, w.storeName, now, tokens); err != nil {
			b.logger.Warn("Failed to persist token budget",
				zap.String("provider", b.provider),
				zap.String("period", w.storeName),
				zap.Int64("tokens", tokens),
				zap.Error(err),
			)
		}
	}
}

// Usage returns tokens consumed in the current window of p and its cap (0 = unlimited).
func (b *BudgetTracker) Usage(p domusage.Period) (used, limit int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w := b.window(p)
	if w == nil {
		return 0, 0
	}
	return w.used, w.limit
}

// Remaining returns tokens left in the current window of p, -1 when unlimited.
func (b *BudgetTracker) Remaining(p domusage.Period) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	w := b.window(p)
	if w == nil {
		return -1
	}
	return w.remaining()
}

// window returns the rolled window for p. Callers hold mu.
func (b *BudgetTracker) window(p domusage.Period) *budgetWindow {
	now := b.now()
	for _, w := range b.windows {
		if w.period == p {
			w.roll(now)
			return w
		}
	}
	return nil
}
