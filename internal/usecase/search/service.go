package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/search/filter"
	"github.com/smartapply/jobsearch/internal/domain/search/mode"
	"github.com/smartapply/jobsearch/internal/domain/search/query"
	"github.com/smartapply/jobsearch/internal/domain/search/result"
	"github.com/smartapply/jobsearch/internal/logger"
	"github.com/smartapply/jobsearch/internal/metrics"
)

// recommendationsLabel is the mode label recommendations report under.
const recommendationsLabel = "recommendations"

// Service orchestrates job search across keyword, semantic and hybrid modes.
// Apart from invalid input it never fails: primary-path failures degrade to the
// keyword fallback and a failed fallback yields an empty list.
type Service struct {
	repo   Repository
	embed  Embedder
	prefs  PreferenceInitializer
	logger *zap.Logger
}

// New creates a search service. prefs may be nil when recommendations are not served.
func New(repo Repository, embed Embedder, prefs PreferenceInitializer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, embed: embed, prefs: prefs, logger: logger}
}

// Search runs q. The only error it returns wraps domain.ErrInvalidInput.
func (s *Service) Search(ctx context.Context, q *query.Query) ([]result.Result, error) {
	if !q.Mode().IsValid() {
		return nil, fmt.Errorf("%w: unknown search mode %q", domain.ErrInvalidInput, q.Mode())
	}
	if q.Mode().NeedsEmbedding() && strings.TrimSpace(q.RawText()) == "" {
		return nil, fmt.Errorf("%w: query text is required for %s search", domain.ErrInvalidInput, q.Mode())
	}
	if q.Limit() == 0 {
		return []result.Result{}, nil
	}

	log := logger.FromContextOr(ctx, s.logger).With(zap.String("mode", string(q.Mode())))

	results, err := s.primary(ctx, q)
	if err == nil {
		return s.finish(q.Mode(), returnPrimary, results, q.Limit()), nil
	}
	if ctx.Err() != nil {
		log.Debug("Search canceled", zap.Error(err))
		return []result.Result{}, nil
	}

	act := next(q.Mode(), primaryFailed)
	s.reportDegradation(log, string(q.Mode()), act, err)
	if act != runFallback {
		return s.finish(q.Mode(), returnEmpty, nil, q.Limit()), nil
	}

	fallback, ferr := s.fallback(ctx, q.Filters(), q.Limit())
	if ferr != nil {
		log.Error("Keyword fallback failed", zap.NamedError("primary_error", err), zap.Error(ferr))
		return s.finish(q.Mode(), returnEmpty, nil, q.Limit()), nil
	}
	log.Warn("Search degraded to keyword fallback",
		zap.NamedError("primary_error", err),
		zap.Int("results", len(fallback)),
	)
	return s.finish(q.Mode(), runFallback, fallback, q.Limit()), nil
}

// primary runs the mode's own path. Embedding completes before any store call.
func (s *Service) primary(ctx context.Context, q *query.Query) ([]result.Result, error) {
	switch q.Mode() {
	case mode.Keyword:
		res, err := s.repo.KeywordFallbackSearch(ctx, q.Filters(), q.Limit())
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
		return res, nil
	case mode.Semantic:
		vec, err := s.embedQuery(ctx, q.RawText())
		if err != nil {
			return nil, err
		}
		res, err := s.repo.SemanticSearch(ctx, vec, q.Filters(), q.Threshold(), q.Limit())
		if err != nil {
			return nil, fmt.Errorf("semantic search: %w", err)
		}
		return res, nil
	case mode.Hybrid:
		vec, err := s.embedQuery(ctx, q.RawText())
		if err != nil {
			return nil, err
		}
		res, err := s.repo.HybridSearch(ctx, q.RawText(), vec, q.Filters(), q.Threshold(), q.Limit())
		if err != nil {
			return nil, fmt.Errorf("hybrid search: %w", err)
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%w: unknown search mode %q", domain.ErrInvalidInput, q.Mode())
	}
}

// fallback is the keyword transition: same filters, no embedding.
func (s *Service) fallback(ctx context.Context, filters filter.Set, limit int) ([]result.Result, error) {
	res, err := s.repo.KeywordFallbackSearch(ctx, filters, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword fallback: %w", err)
	}
	return res, nil
}

func (s *Service) embedQuery(ctx context.Context, text string) (domain.Embedding, error) {
	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return res.Embedding, nil
}

// Recommend ranks jobs against the user's preference embedding.
// A user without one gets a default profile created and, for this request, the keyword fallback.
func (s *Service) Recommend(ctx context.Context, userID string, limit int) ([]result.Result, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: result limit must not be negative", domain.ErrInvalidInput)
	}
	if limit == 0 {
		return []result.Result{}, nil
	}

	log := logger.FromContextOr(ctx, s.logger).With(
		zap.String("mode", recommendationsLabel),
		zap.String("user_id", userID),
	)

	res, err := s.repo.PersonalizedRecommendations(ctx, userID, limit)
	if err == nil {
		return s.finishLabeled(recommendationsLabel, returnPrimary, res, limit), nil
	}
	if ctx.Err() != nil {
		return []result.Result{}, nil
	}

	if errors.Is(err, domain.ErrPreferenceNotFound) {
		log.Info("User has no preference embedding, initializing defaults")
		if s.prefs != nil {
			if ierr := s.prefs.EnsureInitialized(ctx, userID); ierr != nil {
				log.Warn("Preference initialization failed", zap.Error(ierr))
			}
		}
	} else {
		s.reportDegradation(log, recommendationsLabel, runFallback, err)
	}

	fallback, ferr := s.fallback(ctx, filter.Set{}, limit)
	if ferr != nil {
		log.Error("Keyword fallback failed", zap.NamedError("primary_error", err), zap.Error(ferr))
		return s.finishLabeled(recommendationsLabel, returnEmpty, nil, limit), nil
	}
	return s.finishLabeled(recommendationsLabel, runFallback, fallback, limit), nil
}

func (s *Service) reportDegradation(log *zap.Logger, modeLabel string, act action, err error) {
	reason := degradationReason(err)
	metrics.SearchDegradationsTotal.WithLabelValues(modeLabel, reason).Inc()

	if errors.Is(err, domain.ErrRemoteUnavailable) {
		log.Error("Remote store procedure unavailable", zap.String("next", act.String()), zap.Error(err))
		return
	}
	log.Warn("Primary search path failed", zap.String("reason", reason), zap.String("next", act.String()), zap.Error(err))
}

func (s *Service) finish(m mode.Mode, a action, res []result.Result, limit int) []result.Result {
	return s.finishLabeled(string(m), a, res, limit)
}

// finishLabeled truncates to limit in store order and records the path taken.
func (s *Service) finishLabeled(modeLabel string, a action, res []result.Result, limit int) []result.Result {
	if res == nil {
		res = []result.Result{}
	}
	if len(res) > limit {
		res = res[:limit]
	}
	path := a.String()
	if len(res) == 0 {
		path = returnEmpty.String()
	}
	metrics.SearchRequestsTotal.WithLabelValues(modeLabel, path).Inc()
	return res
}

func degradationReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return "remote_unavailable"
	case errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrTransient),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return "embedding"
	default:
		return "store"
	}
}
