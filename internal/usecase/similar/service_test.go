package similar

import (
	"context"
	"errors"
	"testing"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/job"
)

type fakeRepo struct {
	calls     int
	threshold float64
	limit     int
	out       []job.Similar
	err       error
}

func (f *fakeRepo) NearestNeighbors(_ context.Context, _ string, threshold float64, limit int) ([]job.Similar, error) {
	f.calls++
	f.threshold, f.limit = threshold, limit
	return f.out, f.err
}

func TestFindSimilar(t *testing.T) {
	r := &fakeRepo{out: []job.Similar{
		{Summary: job.Summary{ID: "b"}, Similarity: 0.93},
		{Summary: job.Summary{ID: "c"}, Similarity: 0.85},
	}}
	f := New(r, 0)

	got, err := f.FindSimilar(context.Background(), "a", DefaultThreshold, DefaultLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" {
		t.Errorf("got %+v", got)
	}
	if r.threshold != 0.8 || r.limit != 10 {
		t.Errorf("forwarded threshold/limit = %f/%d", r.threshold, r.limit)
	}
}

func TestFindSimilar_NotFoundSurfacesWithoutRetry(t *testing.T) {
	r := &fakeRepo{err: domain.ErrNotFound}
	f := New(r, 0)

	_, err := f.FindSimilar(context.Background(), "ghost", 0.8, 10)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if r.calls != 1 {
		t.Errorf("expected exactly 1 store call, got %d", r.calls)
	}
}

func TestFindSimilar_EmptyIsValid(t *testing.T) {
	f := New(&fakeRepo{}, 0)

	got, err := f.FindSimilar(context.Background(), "a", 0.99, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestFindSimilar_LimitClamped(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1},
		{-3, 1},
		{7, 7},
		{500, 20},
	}
	for _, tc := range tests {
		r := &fakeRepo{}
		if _, err := New(r, 20).FindSimilar(context.Background(), "a", 0.8, tc.in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.limit != tc.want {
			t.Errorf("limit %d clamped to %d, want %d", tc.in, r.limit, tc.want)
		}
	}
}

func TestFindSimilar_Validation(t *testing.T) {
	r := &fakeRepo{}
	f := New(r, 0)

	for _, th := range []float64{-0.1, 1.5} {
		if _, err := f.FindSimilar(context.Background(), "a", th, 10); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("threshold %f: expected ErrInvalidInput, got %v", th, err)
		}
	}
	if _, err := f.FindSimilar(context.Background(), "", 0.8, 10); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("blank id: expected ErrInvalidInput, got %v", err)
	}
	if r.calls != 0 {
		t.Errorf("validation failures must not reach the store, got %d calls", r.calls)
	}
}
