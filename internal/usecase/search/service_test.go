package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/job"
	"github.com/smartapply/jobsearch/internal/domain/search/filter"
	"github.com/smartapply/jobsearch/internal/domain/search/mode"
	"github.com/smartapply/jobsearch/internal/domain/search/query"
	"github.com/smartapply/jobsearch/internal/domain/search/result"
)

// --- Fakes ---

// journal records calls across fakes in order.
type journal struct{ calls []string }

func (j *journal) add(c string) { j.calls = append(j.calls, c) }

type fakeRepo struct {
	log *journal

	semantic    []result.Result
	semanticErr error
	hybrid      []result.Result
	hybridErr   error
	keyword     []result.Result
	keywordErr  error
	recs        []result.Result
	recsErr     error

	lastFilters   filter.Set
	lastThreshold float64
	lastLimit     int
	lastText      string
	lastVec       domain.Embedding
}

func (f *fakeRepo) SemanticSearch(
	_ context.Context, vec domain.Embedding, filters filter.Set, threshold float64, limit int,
) ([]result.Result, error) {
	f.log.add("semantic")
	f.lastVec, f.lastFilters, f.lastThreshold, f.lastLimit = vec, filters, threshold, limit
	return f.semantic, f.semanticErr
}

func (f *fakeRepo) HybridSearch(
	_ context.Context, text string, vec domain.Embedding, filters filter.Set, threshold float64, limit int,
) ([]result.Result, error) {
	f.log.add("hybrid")
	f.lastText, f.lastVec, f.lastFilters, f.lastThreshold, f.lastLimit = text, vec, filters, threshold, limit
	return f.hybrid, f.hybridErr
}

func (f *fakeRepo) KeywordFallbackSearch(_ context.Context, filters filter.Set, limit int) ([]result.Result, error) {
	f.log.add("keyword")
	f.lastFilters, f.lastLimit = filters, limit
	return f.keyword, f.keywordErr
}

func (f *fakeRepo) PersonalizedRecommendations(_ context.Context, _ string, limit int) ([]result.Result, error) {
	f.log.add("recommendations")
	f.lastLimit = limit
	return f.recs, f.recsErr
}

type fakeEmbedder struct {
	log   *journal
	vec   domain.Embedding
	err   error
	hook  func()
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.log.add("embed")
	f.texts = append(f.texts, text)
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: f.vec}, nil
}

type fakePrefs struct {
	log *journal
	err error
	ids []string
}

func (f *fakePrefs) EnsureInitialized(_ context.Context, userID string) error {
	f.log.add("init-prefs")
	f.ids = append(f.ids, userID)
	return f.err
}

type fixture struct {
	log   *journal
	repo  *fakeRepo
	emb   *fakeEmbedder
	prefs *fakePrefs
	logs  *observer.ObservedLogs
	svc   *Service
}

func newFixture() *fixture {
	j := &journal{}
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{
		log:   j,
		repo:  &fakeRepo{log: j},
		emb:   &fakeEmbedder{log: j, vec: domain.Embedding{0.1, 0.2}},
		prefs: &fakePrefs{log: j},
		logs:  logs,
	}
	f.svc = New(f.repo, f.emb, f.prefs, zap.New(core))
	return f
}

func jobs(ids ...string) []result.Result {
	out := make([]result.Result, 0, len(ids))
	for _, id := range ids {
		out = append(out, result.New(job.Summary{ID: id, Title: "Job " + id}).WithSemanticSimilarity(0.9))
	}
	return out
}

func ids(rs []result.Result) []string {
	out := make([]string, 0, len(rs))
	for i := range rs {
		out = append(out, rs[i].JobID())
	}
	return out
}

func mustQuery(t *testing.T, text string, m mode.Mode, raw map[string]string, limit int) *query.Query {
	t.Helper()
	fs, err := filter.New(raw)
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	q, err := query.New(text, m, fs, "", 0.7, limit)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return &q
}

func assertCalls(t *testing.T, j *journal, want ...string) {
	t.Helper()
	if fmt.Sprint(j.calls) != fmt.Sprint(want) {
		t.Errorf("calls = %v, want %v", j.calls, want)
	}
}

// --- Search ---

func TestSearch_SemanticPrimary(t *testing.T) {
	f := newFixture()
	f.repo.semantic = jobs("a", "b")

	q := mustQuery(t, "golang backend", mode.Semantic, map[string]string{"industry": "fintech"}, 10)
	res, err := f.svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCalls(t, f.log, "embed", "semantic")
	if fmt.Sprint(ids(res)) != "[a b]" {
		t.Errorf("results = %v", ids(res))
	}
	if !f.repo.lastFilters.Equal(q.Filters()) || f.repo.lastThreshold != 0.7 || f.repo.lastLimit != 10 {
		t.Errorf("unexpected store args: %v %f %d", f.repo.lastFilters, f.repo.lastThreshold, f.repo.lastLimit)
	}
	if len(f.repo.lastVec) != 2 {
		t.Errorf("embedding not forwarded: %v", f.repo.lastVec)
	}
}

func TestSearch_HybridPrimary(t *testing.T) {
	f := newFixture()
	f.repo.hybrid = jobs("h1")
	f.emb.vec = domain.Embedding{0.3, 0.5, 0.7}

	res, err := f.svc.Search(context.Background(), mustQuery(t, "remote AI internship", mode.Hybrid, nil, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCalls(t, f.log, "embed", "hybrid")
	if f.repo.lastText != "remote AI internship" {
		t.Errorf("query text not forwarded: %q", f.repo.lastText)
	}
	if fmt.Sprint(f.repo.lastVec) != fmt.Sprint(f.emb.vec) {
		t.Errorf("hybrid search got vector %v, want the embedder's %v", f.repo.lastVec, f.emb.vec)
	}
	if len(res) != 1 || res[0].JobID() != "h1" {
		t.Errorf("results = %v", ids(res))
	}
}

func TestSearch_RepeatedTextIsEmbeddedAgain(t *testing.T) {
	f := newFixture()
	f.repo.semantic = jobs("a")
	q := mustQuery(t, "golang backend", mode.Semantic, nil, 10)

	for range 2 {
		if _, err := f.svc.Search(context.Background(), q); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assertCalls(t, f.log, "embed", "semantic", "embed", "semantic")
	if fmt.Sprint(f.emb.texts) != "[golang backend golang backend]" {
		t.Errorf("embedded texts = %q", f.emb.texts)
	}
}

func TestSearch_KeywordDirect(t *testing.T) {
	f := newFixture()
	f.repo.keyword = jobs("k1", "k2")

	res, err := f.svc.Search(context.Background(), mustQuery(t, "", mode.Keyword, map[string]string{"location": "Berlin"}, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertCalls(t, f.log, "keyword")
	if len(res) != 2 {
		t.Errorf("expected 2 results, got %d", len(res))
	}
}

func TestSearch_EmbeddingFailureFallsBackWithSameFilters(t *testing.T) {
	for _, m := range []mode.Mode{mode.Semantic, mode.Hybrid} {
		t.Run(string(m), func(t *testing.T) {
			f := newFixture()
			f.emb.err = &domain.ProviderError{StatusCode: 429, Kind: domain.ErrRateLimited}
			f.repo.keyword = jobs("k1")

			q := mustQuery(t, "data engineer", m, map[string]string{"experience_level": "senior"}, 10)
			res, err := f.svc.Search(context.Background(), q)
			if err != nil {
				t.Fatalf("degraded search must not fail: %v", err)
			}

			assertCalls(t, f.log, "embed", "keyword")
			if !f.repo.lastFilters.Equal(q.Filters()) {
				t.Errorf("fallback filters = %v, want %v", f.repo.lastFilters, q.Filters())
			}
			if len(res) != 1 || res[0].JobID() != "k1" {
				t.Errorf("results = %v", ids(res))
			}
			if f.logs.FilterMessage("Search degraded to keyword fallback").Len() != 1 {
				t.Error("expected degradation to be logged")
			}
		})
	}
}

func TestSearch_StoreFailureFallsBack(t *testing.T) {
	f := newFixture()
	f.repo.semanticErr = errors.New("connection reset")
	f.repo.keyword = jobs("k1")

	res, err := f.svc.Search(context.Background(), mustQuery(t, "designer", mode.Semantic, nil, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertCalls(t, f.log, "embed", "semantic", "keyword")
	if len(res) != 1 {
		t.Errorf("expected fallback results, got %v", ids(res))
	}
}

func TestSearch_RemoteUnavailableLoggedAtError(t *testing.T) {
	f := newFixture()
	f.repo.hybridErr = fmt.Errorf("hybrid search: %w", domain.ErrRemoteUnavailable)
	f.repo.keyword = jobs("k1")

	if _, err := f.svc.Search(context.Background(), mustQuery(t, "nurse", mode.Hybrid, nil, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := f.logs.FilterMessage("Remote store procedure unavailable").All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected one error-level entry, got %+v", entries)
	}
}

func TestSearch_FallbackFailureReturnsEmpty(t *testing.T) {
	f := newFixture()
	f.emb.err = domain.ErrTransient
	f.repo.keywordErr = errors.New("store down")

	res, err := f.svc.Search(context.Background(), mustQuery(t, "chef", mode.Semantic, nil, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", res)
	}
	if f.logs.FilterMessage("Keyword fallback failed").Len() != 1 {
		t.Error("expected fallback failure to be logged")
	}
}

func TestSearch_KeywordFailureReturnsEmptyWithoutRetry(t *testing.T) {
	f := newFixture()
	f.repo.keywordErr = errors.New("store down")

	res, err := f.svc.Search(context.Background(), mustQuery(t, "", mode.Keyword, nil, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertCalls(t, f.log, "keyword")
	if len(res) != 0 {
		t.Errorf("expected empty, got %v", ids(res))
	}
}

func TestSearch_ZeroLimitNoCalls(t *testing.T) {
	for _, m := range []mode.Mode{mode.Keyword, mode.Semantic, mode.Hybrid} {
		f := newFixture()
		res, err := f.svc.Search(context.Background(), mustQuery(t, "anything", m, nil, 0))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", m, err)
		}
		if res == nil || len(res) != 0 {
			t.Errorf("%s: expected empty slice, got %v", m, res)
		}
		assertCalls(t, f.log)
	}
}

func TestSearch_UnvalidatedQueryInvalidInputNoCalls(t *testing.T) {
	f := newFixture()
	var q query.Query
	if _, err := f.svc.Search(context.Background(), &q); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero query, got %v", err)
	}
	assertCalls(t, f.log)
}

func TestSearch_TruncatesToLimitInStoreOrder(t *testing.T) {
	f := newFixture()
	f.repo.semantic = jobs("c", "a", "b")

	res, err := f.svc.Search(context.Background(), mustQuery(t, "ops", mode.Semantic, nil, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(ids(res)) != "[c a]" {
		t.Errorf("results = %v, want [c a]", ids(res))
	}
}

func TestSearch_CancelDuringEmbeddingSkipsFallback(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.emb.hook = cancel
	f.emb.err = context.Canceled

	res, err := f.svc.Search(ctx, mustQuery(t, "pilot", mode.Hybrid, nil, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("expected empty, got %v", ids(res))
	}
	assertCalls(t, f.log, "embed")
}

// --- Recommend ---

func TestRecommend_Primary(t *testing.T) {
	f := newFixture()
	f.repo.recs = jobs("r1", "r2")

	res, err := f.svc.Recommend(context.Background(), "user-1", 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertCalls(t, f.log, "recommendations")
	if len(res) != 2 || f.repo.lastLimit != 15 {
		t.Errorf("results = %v, limit = %d", ids(res), f.repo.lastLimit)
	}
}

func TestRecommend_MissingPreferenceInitializesThenFallsBack(t *testing.T) {
	f := newFixture()
	f.repo.recsErr = fmt.Errorf("user u: %w", domain.ErrPreferenceNotFound)
	f.repo.keyword = jobs("k1")

	res, err := f.svc.Recommend(context.Background(), "u", 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertCalls(t, f.log, "recommendations", "init-prefs", "keyword")
	if fmt.Sprint(f.prefs.ids) != "[u]" {
		t.Errorf("initialized users = %v", f.prefs.ids)
	}
	if !f.repo.lastFilters.IsEmpty() {
		t.Errorf("fallback must use empty filters, got %v", f.repo.lastFilters)
	}
	if len(res) != 1 {
		t.Errorf("results = %v", ids(res))
	}
}

func TestRecommend_InitFailureStillFallsBack(t *testing.T) {
	f := newFixture()
	f.repo.recsErr = domain.ErrPreferenceNotFound
	f.prefs.err = domain.ErrTransient
	f.repo.keyword = jobs("k1")

	res, err := f.svc.Recommend(context.Background(), "u", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1 {
		t.Errorf("results = %v", ids(res))
	}
	if f.logs.FilterMessage("Preference initialization failed").Len() != 1 {
		t.Error("expected init failure to be logged")
	}
}

func TestRecommend_OtherFailureFallsBackWithoutInit(t *testing.T) {
	f := newFixture()
	f.repo.recsErr = domain.ErrRemoteUnavailable
	f.repo.keyword = jobs("k1", "k2", "k3")

	res, err := f.svc.Recommend(context.Background(), "u", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertCalls(t, f.log, "recommendations", "keyword")
	if len(res) != 2 {
		t.Errorf("expected truncation to 2, got %v", ids(res))
	}
}

func TestRecommend_Validation(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Recommend(context.Background(), " ", 5); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank user, got %v", err)
	}
	if _, err := f.svc.Recommend(context.Background(), "u", -1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for negative limit, got %v", err)
	}
	res, err := f.svc.Recommend(context.Background(), "u", 0)
	if err != nil || len(res) != 0 {
		t.Errorf("zero limit: res=%v err=%v", res, err)
	}
	assertCalls(t, f.log)
}

// --- Transition table ---

func TestTransitions(t *testing.T) {
	tests := []struct {
		m    mode.Mode
		o    outcome
		want action
	}{
		{mode.Keyword, primarySucceeded, returnPrimary},
		{mode.Keyword, primaryFailed, returnEmpty},
		{mode.Semantic, primarySucceeded, returnPrimary},
		{mode.Semantic, primaryFailed, runFallback},
		{mode.Hybrid, primarySucceeded, returnPrimary},
		{mode.Hybrid, primaryFailed, runFallback},
		{mode.Mode("vector"), primaryFailed, returnEmpty},
	}
	for _, tc := range tests {
		if got := next(tc.m, tc.o); got != tc.want {
			t.Errorf("next(%s, %d) = %s, want %s", tc.m, tc.o, got, tc.want)
		}
	}
}

func TestDegradationReason(t *testing.T) {
	tests := map[string]error{
		"remote_unavailable": fmt.Errorf("x: %w", domain.ErrRemoteUnavailable),
		"embedding":          &domain.ProviderError{Kind: domain.ErrRateLimited},
		"store":              errors.New("conn reset"),
	}
	for want, err := range tests {
		if got := degradationReason(err); got != want {
			t.Errorf("degradationReason(%v) = %q, want %q", err, got, want)
		}
	}
}
