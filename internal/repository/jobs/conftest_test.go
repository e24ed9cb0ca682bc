package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/smartapply/jobsearch/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn        func(ctx context.Context, key string, fields map[string]string) error
	hsetNXFn      func(ctx context.Context, key, field, value string) (bool, error)
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	hdelFn        func(ctx context.Context, key string, fields ...string) error
	existsFn      func(ctx context.Context, key string) (bool, error)
	incrFn        func(ctx context.Context, key string) (int64, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchBM25Fn  func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	searchListFn  func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	if m.hsetNXFn != nil {
		return m.hsetNXFn(ctx, key, field, value)
	}
	return true, nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HDel(ctx context.Context, key string, fields ...string) error {
	if m.hdelFn != nil {
		return m.hdelFn(ctx, key, fields...)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Incr(ctx context.Context, key string) (int64, error) {
	if m.incrFn != nil {
		return m.incrFn(ctx, key)
	}
	return 1, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return true, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchBM25Fn != nil {
		return m.searchBM25Fn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, 4, WithKeyPrefix("t:"), WithClock(func() time.Time { return fixedNow })), ms
}

func testVector() []float32 { return []float32{0.1, 0.2, 0.3, 0.4} }

// entry builds a search hit for job id with a title field.
func entry(id string, score float64) db.SearchEntry {
	return db.SearchEntry{
		Key:    "t:job:" + id,
		Score:  score,
		Fields: map[string]string{fieldID: id, fieldTitle: "Job " + id, fieldPostedAt: "1767225600"},
	}
}

func searchResult(entries ...db.SearchEntry) *db.SearchResult {
	return &db.SearchResult{Total: len(entries), Entries: entries}
}

func hasCondition(conds []db.Condition, field, tag string) bool {
	for _, c := range conds {
		if c.Field == field && c.Tag == tag {
			return true
		}
	}
	return false
}
