package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/smartapply/jobsearch/internal/db"
)

// Budget periods.
const (
	PeriodDaily   = "daily"
	PeriodMonthly = "monthly"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists embedding token counters as INCRBY keys with TTL.
// Keys: <prefix>budget:<provider>:daily:2006-01-02 and <prefix>budget:<provider>:monthly:2006-01.
type Store struct {
	store    store
	prefix   string
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store.
// dailyTTL is the TTL for daily keys (recommended: 48h).
// monthTTL is the TTL for monthly keys (recommended: 62 days).
func New(s store, prefix string, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		prefix:   prefix,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// AddUsage increments the counter of the period bucket containing at.
func (s *Store) AddUsage(ctx context.Context, provider, period string, at time.Time, tokens int64) error {
	key, ttl, err := s.key(provider, period, at)
	if err != nil {
		return err
	}
	if err := s.store.IncrBy(ctx, key, tokens); err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}

	// NX: the first write of a bucket fixes its expiry.
	if err := s.store.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}
	return nil
}

// Usage returns the counter of the period bucket containing at. Missing keys read as 0.
func (s *Store) Usage(ctx context.Context, provider, period string, at time.Time) (int64, error) {
	key, _, err := s.key(provider, period, at)
	if err != nil {
		return 0, err
	}
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}

func (s *Store) key(provider, period string, at time.Time) (string, time.Duration, error) {
	at = at.UTC()
	switch period {
	case PeriodDaily:
		return fmt.Sprintf("%sbudget:%s:%s:%s", s.prefix, provider, period, at.Format("2006-01-02")), s.dailyTTL, nil
	case PeriodMonthly:
		return fmt.Sprintf("%sbudget:%s:%s:%s", s.prefix, provider, period, at.Format("2006-01")), s.monthTTL, nil
	default:
		return "", 0, fmt.Errorf("budget period %q: unknown", period)
	}
}
