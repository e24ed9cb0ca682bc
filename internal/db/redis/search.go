package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/smartapply/jobsearch/internal/db"
)

const (
	defaultVectorField = "embedding"
	vectorScoreAlias   = "__vector_score"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Scores are cosine similarities in [0, 1], best first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, errors.New("vector is required")
	}
	if q.K <= 0 {
		return nil, errors.New("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = defaultVectorField
	}

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", q.K, field, vectorScoreAlias)
	queryStr := "*=>" + knnPart
	if filterStr := buildFilter(q.Filters); filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	}

	args := []string{q.IndexName, queryStr}
	args = appendReturn(args, q.ReturnFields, vectorScoreAlias)
	args = append(args,
		"SORTBY", vectorScoreAlias, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	raw, err := s.search(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseKNNResult(raw)
}

// SearchBM25 runs a BM25 text search via FT.SEARCH. Query terms are OR-ed.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}
	textPart := buildTextClause(q.Fields, q.Query)
	if textPart == "" {
		return nil, errors.New("query is required")
	}
	if q.TopK <= 0 {
		return nil, errors.New("topK must be positive")
	}

	queryStr := textPart
	if filterStr := buildFilter(q.Filters); filterStr != "" {
		queryStr = filterStr + " " + textPart
	}

	args := []string{q.IndexName, queryStr}
	args = appendReturn(args, q.ReturnFields)
	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"DIALECT", "2",
	)

	raw, err := s.search(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseScoredResult(raw)
}

// SearchList runs a filtered listing, optionally sorted by a SORTABLE field.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}
	if q.Limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	queryStr := buildFilter(q.Filters)
	if queryStr == "" {
		queryStr = "*"
	}

	args := []string{q.IndexName, queryStr}
	args = appendReturn(args, q.ReturnFields)
	if q.SortBy != "" {
		order := "DESC"
		if q.Ascending {
			order = "ASC"
		}
		args = append(args, "SORTBY", q.SortBy, order)
	}
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	raw, err := s.search(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseListResult(raw)
}

func (s *Store) search(ctx context.Context, args []string) ([]rueidis.RedisMessage, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isMissingIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return raw, nil
}

func appendReturn(args, fields []string, extra ...string) []string {
	if len(fields) == 0 {
		return args
	}
	all := append(append([]string{}, fields...), extra...)
	args = append(args, "RETURN", strconv.Itoa(len(all)))
	return append(args, all...)
}

// --- Result parsing ---

func parseTotal(raw []rueidis.RedisMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse total: %w", err)
	}
	return total, nil
}

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	res, err := parseListResult(raw)
	if err != nil {
		return nil, err
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		if scoreStr, ok := e.Fields[vectorScoreAlias]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				// cosine distance lies in [0, 2]
				e.Score = min(1, max(0, 1.0-d))
			}
			delete(e.Fields, vectorScoreAlias)
		}
	}
	return res, nil
}

func parseScoredResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, err := parseTotal(raw)
	if err != nil || total == 0 {
		return &db.SearchResult{}, err
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/3)
	// 3-stride: [total, key1, score1, fields1, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, err := parseTotal(raw)
	if err != nil || total == 0 {
		return &db.SearchResult{}, err
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildFilter AND-joins conditions into an FT.SEARCH pre-filter.
func buildFilter(conds []db.Condition) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		if c.Field == "" {
			continue
		}
		switch {
		case c.Range != nil:
			parts = append(parts, buildNumericFilter(c.Field, *c.Range))
		case c.Tag != "":
			parts = append(parts, fmt.Sprintf("@%s:{%s}", c.Field, tagEscaper.Replace(c.Tag)))
		}
	}
	return strings.Join(parts, " ")
}

func buildNumericFilter(field string, r db.Range) string {
	lower := formatBound(r.Min)
	if r.MinExclusive && !math.IsInf(r.Min, 0) {
		lower = "(" + lower
	}
	return fmt.Sprintf("@%s:[%s %s]", field, lower, formatBound(r.Max))
}

func formatBound(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// buildTextClause turns free text into an OR of escaped terms scoped to fields.
func buildTextClause(fields []string, text string) string {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return ""
	}
	for i, t := range terms {
		terms[i] = escapeQuery(t)
	}
	clause := "(" + strings.Join(terms, " | ") + ")"
	if len(fields) == 0 {
		return clause
	}
	return "@" + strings.Join(fields, "|") + ":" + clause
}

// tagEscaper escapes TAG values; "|" must be escaped since it is the facet separator.
var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", "\\|",
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"/", "\\/",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
)

func vectorToBytes(v []float32) string {
	return db.EncodeVector(v)
}
