package chi

import (
	"time"

	"github.com/smartapply/jobsearch/internal/domain/backfill"
	"github.com/smartapply/jobsearch/internal/domain/job"
	"github.com/smartapply/jobsearch/internal/domain/preference"
	"github.com/smartapply/jobsearch/internal/domain/search/result"
	domusage "github.com/smartapply/jobsearch/internal/domain/usage"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeValidationFailed     ErrorCode = "validation_failed"
	CodeUnauthorized         ErrorCode = "unauthorized"
	CodeNotFound             ErrorCode = "not_found"
	CodeAlreadyExists        ErrorCode = "already_exists"
	CodeBackfillRunning      ErrorCode = "backfill_running"
	CodeQuotaExceeded        ErrorCode = "embedding_quota_exceeded"
	CodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	CodeRemoteUnavailable    ErrorCode = "remote_unavailable"
	CodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type searchRequest struct {
	Query     string            `json:"query"`
	Mode      string            `json:"mode"`
	Filters   map[string]string `json:"filters"`
	UserID    string            `json:"user_id"`
	Threshold *float64          `json:"threshold"`
	Limit     *int              `json:"limit"`
}

type resultItem struct {
	job.Summary
	SemanticSimilarity *float64           `json:"semantic_similarity,omitempty"`
	CombinedScore      *float64           `json:"combined_score,omitempty"`
	MatchBreakdown     map[string]float64 `json:"match_breakdown,omitempty"`
}

type resultListResponse struct {
	Items []resultItem `json:"items"`
	Total int          `json:"total"`
}

type similarListResponse struct {
	Items []job.Similar `json:"items"`
	Total int           `json:"total"`
}

type preferenceRequest struct {
	Text string `json:"text"`
}

type profileResponse struct {
	UserID       string     `json:"user_id"`
	Text         string     `json:"text"`
	HasEmbedding bool       `json:"has_embedding"`
	LastUpdated  *time.Time `json:"last_updated,omitempty"`
}

type backfillFailure struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

type backfillResponse struct {
	RunID           string            `json:"run_id"`
	TotalCandidates int               `json:"total_candidates"`
	Attempted       int               `json:"attempted"`
	Processed       int               `json:"processed"`
	Failed          int               `json:"failed"`
	Failures        []backfillFailure `json:"failures"`
	NextCursor      int64             `json:"next_cursor"`
	Exhausted       bool              `json:"exhausted"`
	Error           string            `json:"error,omitempty"`
}

type usageResponse struct {
	Provider        string    `json:"provider"`
	Period          string    `json:"period"`
	PeriodStartAt   time.Time `json:"period_start_at"`
	PeriodEndAt     time.Time `json:"period_end_at"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensLimit     *int64    `json:"tokens_limit,omitempty"`
	TokensRemaining *int64    `json:"tokens_remaining,omitempty"`
	IsExhausted     bool      `json:"is_exhausted"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Error  string            `json:"error,omitempty"`
}

func resultsToResponse(rs []result.Result) resultListResponse {
	items := make([]resultItem, len(rs))
	for i := range rs {
		items[i] = resultItem{
			Summary:            rs[i].Job(),
			SemanticSimilarity: rs[i].SemanticSimilarity(),
			CombinedScore:      rs[i].CombinedScore(),
			MatchBreakdown:     rs[i].MatchBreakdown(),
		}
	}
	return resultListResponse{Items: items, Total: len(items)}
}

func profileToResponse(p *preference.Profile) profileResponse {
	resp := profileResponse{UserID: p.OwnerID, Text: p.Text, HasEmbedding: p.HasEmbedding()}
	if !p.LastUpdated.IsZero() {
		t := p.LastUpdated.UTC()
		resp.LastUpdated = &t
	}
	return resp
}

func progressToResponse(p *backfill.Progress) backfillResponse {
	failures := make([]backfillFailure, len(p.Failures))
	for i, f := range p.Failures {
		failures[i] = backfillFailure(f)
	}
	resp := backfillResponse{
		RunID:           p.RunID,
		TotalCandidates: p.TotalCandidates,
		Attempted:       p.Attempted(),
		Processed:       p.Processed,
		Failed:          len(p.Failures),
		Failures:        failures,
		NextCursor:      p.NextCursor,
		Exhausted:       p.Exhausted,
	}
	if p.Err != nil {
		resp.Error = safeDomainMessage(p.Err)
	}
	return resp
}

func usageToResponse(r *domusage.Report) usageResponse {
	resp := usageResponse{
		Provider:      r.Provider,
		Period:        string(r.Period),
		PeriodStartAt: r.PeriodStart,
		PeriodEndAt:   r.PeriodEnd,
		TokensUsed:    r.TokensUsed,
		IsExhausted:   r.Exhausted(),
	}
	if r.Limited() {
		limit, remaining := r.TokensLimit, r.TokensRemaining
		resp.TokensLimit = &limit
		resp.TokensRemaining = &remaining
	}
	return resp
}
