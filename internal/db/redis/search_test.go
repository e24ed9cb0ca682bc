package redis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/smartapply/jobsearch/internal/db"
)

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var captured []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			captured = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("jobs:job:j1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("0.1"),
				mock.RedisString("title"),
				mock.RedisString("Go Engineer"),
			),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "jobs-idx",
		Filters:      []db.Condition{db.TagEquals("active", "true")},
		Vector:       []float32{0.1, 0.2},
		K:            25,
		ReturnFields: []string{"title"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Key != "jobs:job:j1" {
		t.Fatalf("unexpected entries: %+v", result.Entries)
	}
	// cosine distance 0.1 maps to similarity 0.9
	if got := result.Entries[0].Score; got < 0.89 || got > 0.91 {
		t.Errorf("expected score ~0.9, got %f", got)
	}
	if _, ok := result.Entries[0].Fields["__vector_score"]; ok {
		t.Error("score alias should be stripped from fields")
	}

	joined := strings.Join(captured, " ")
	for _, want := range []string{
		"(@active:{true})=>[KNN 25 @embedding $BLOB AS __vector_score]",
		"RETURN 2 title __vector_score",
		"SORTBY __vector_score ASC",
		"LIMIT 0 25",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("command %q missing %q", joined, want)
		}
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	if _, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10}); err == nil {
		t.Error("expected error for empty index name")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", K: 10}); err == nil {
		t.Error("expected error for empty vector")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}}); err == nil {
		t.Error("expected error for k=0")
	}
}

func TestSearch_MissingIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisError("jobs-idx: no such index")))

	s := NewStoreForTest(c)
	_, err := s.SearchList(context.Background(), &db.ListQuery{IndexName: "jobs-idx", Limit: 5})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearchBM25_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" &&
				cmd[2] == "@industry:{Technology} @title|description:(remote | golang)"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("jobs:job:j1"),
			mock.RedisString("3.5"),
			mock.RedisArray(mock.RedisString("title"), mock.RedisString("Remote Go")),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchBM25(context.Background(), &db.TextQuery{
		IndexName: "jobs-idx",
		Fields:    []string{"title", "description"},
		Query:     "  remote   golang ",
		Filters:   []db.Condition{db.TagEquals("industry", "Technology")},
		TopK:      10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Score != 3.5 {
		t.Fatalf("unexpected entries: %+v", result.Entries)
	}
}

func TestSearchBM25_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	if _, err := s.SearchBM25(ctx, &db.TextQuery{Query: "go", TopK: 10}); err == nil {
		t.Error("expected error for empty index name")
	}
	if _, err := s.SearchBM25(ctx, &db.TextQuery{IndexName: "idx", Query: "   ", TopK: 10}); err == nil {
		t.Error("expected error for blank query")
	}
	if _, err := s.SearchBM25(ctx, &db.TextQuery{IndexName: "idx", Query: "go"}); err == nil {
		t.Error("expected error for topK=0")
	}
}

func TestSearchList_Sorted(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"FT.SEARCH", "jobs-idx", "@seq:[(10 +inf]",
			"RETURN", "1", "seq",
			"SORTBY", "seq", "ASC",
			"LIMIT", "0", "10",
			"DIALECT", "2",
		)).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("jobs:job:a"),
			mock.RedisArray(mock.RedisString("seq"), mock.RedisString("11")),
			mock.RedisString("jobs:job:b"),
			mock.RedisArray(mock.RedisString("seq"), mock.RedisString("12")),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchList(context.Background(), &db.ListQuery{
		IndexName:    "jobs-idx",
		Filters:      []db.Condition{db.AtLeast("seq", 10, true)},
		SortBy:       "seq",
		Ascending:    true,
		Limit:        10,
		ReturnFields: []string{"seq"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 || len(result.Entries) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Entries[1].Fields["seq"] != "12" {
		t.Errorf("unexpected second entry: %+v", result.Entries[1])
	}
}

func TestSearchList_EmptyFilterMatchesAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "*"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	result, err := s.SearchList(context.Background(), &db.ListQuery{IndexName: "jobs-idx", Limit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(result.Entries))
	}
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name  string
		conds []db.Condition
		want  string
	}{
		{"empty", nil, ""},
		{"tag", []db.Condition{db.TagEquals("location", "New York")}, `@location:{New\ York}`},
		{"tag with dash", []db.Condition{db.TagEquals("employment_type", "full-time")}, `@employment_type:{full\-time}`},
		{"tag separator stays literal", []db.Condition{db.TagEquals("location", "A|B")}, `@location:{A\|B}`},
		{"tag backslash", []db.Condition{db.TagEquals("industry", `R\D`)}, `@industry:{R\\D}`},
		{"exclusive lower bound", []db.Condition{db.AtLeast("seq", 3, true)}, "@seq:[(3 +inf]"},
		{"inclusive lower bound", []db.Condition{db.AtLeast("posted_at", 1.5, false)}, "@posted_at:[1.5 +inf]"},
		{"combined", []db.Condition{
			db.TagEquals("active", "true"),
			db.TagEquals("industry", "Technology"),
		}, "@active:{true} @industry:{Technology}"},
		{"skips unnamed", []db.Condition{{Tag: "x"}}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildFilter(tc.conds); got != tc.want {
				t.Errorf("buildFilter = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildTextClause(t *testing.T) {
	if got := buildTextClause(nil, "c++ dev"); got != `(c\+\+ | dev)` {
		t.Errorf("unexpected clause %q", got)
	}
	if got := buildTextClause([]string{"skills"}, "node.js"); got != `@skills:(node\.js)` {
		t.Errorf("unexpected clause %q", got)
	}
	if got := buildTextClause(nil, " \t "); got != "" {
		t.Errorf("blank text should produce empty clause, got %q", got)
	}
}

func TestEscapeQuery(t *testing.T) {
	got := escapeQuery(`"world" @user {tag}`)
	want := `\"world\" \@user \{tag\}`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
