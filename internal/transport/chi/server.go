package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/job"
	"github.com/smartapply/jobsearch/internal/domain/preference"
	"github.com/smartapply/jobsearch/internal/domain/search/filter"
	"github.com/smartapply/jobsearch/internal/domain/search/mode"
	"github.com/smartapply/jobsearch/internal/domain/search/query"
	domusage "github.com/smartapply/jobsearch/internal/domain/usage"
	"github.com/smartapply/jobsearch/internal/logger"
	healthuc "github.com/smartapply/jobsearch/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// errorMapping binds a domain sentinel to an HTTP status and error code.
type errorMapping struct {
	sentinel error
	status   int
	code     ErrorCode
}

// Defaults are the values used for request parameters the caller left out.
type Defaults struct {
	Search               query.Defaults
	SearchMaxLimit       int
	SimilarThreshold     float64
	SimilarLimit         int
	RecommendationsLimit int
}

// Services groups the use cases the HTTP API is served by.
type Services struct {
	Search      Searcher
	Similar     SimilarFinder
	Preferences PreferenceManager
	Jobs        JobStore
	Backfill    BackfillRunner
	Health      HealthChecker
	Usage       UsageReporter
}

// Server serves the jobsearch HTTP API.
type Server struct {
	svc           Services
	defaults      Defaults
	logger        *zap.Logger
	errorMappings []errorMapping
}

// NewServer creates an HTTP API server.
func NewServer(svc Services, defaults Defaults, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.SearchMaxLimit <= 0 || defaults.SearchMaxLimit > query.MaxLimit {
		defaults.SearchMaxLimit = query.MaxLimit
	}
	s := &Server{svc: svc, defaults: defaults, logger: logger}
	// Order matters: the first matching sentinel wins.
	s.errorMappings = []errorMapping{
		{domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed},
		{domain.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists},
		{domain.ErrBackfillRunning, http.StatusConflict, CodeBackfillRunning},
		{domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, CodeQuotaExceeded},
		{domain.ErrRemoteUnavailable, http.StatusServiceUnavailable, CodeRemoteUnavailable},
		{domain.ErrRateLimited, http.StatusBadGateway, CodeEmbeddingUnavailable},
		{domain.ErrTransient, http.StatusBadGateway, CodeEmbeddingUnavailable},
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r gochi.Router) {
		r.Post("/search", s.SearchJobs)
		r.Get("/jobs/{id}/similar", s.SimilarJobs)

		r.Route("/users/{id}", func(r gochi.Router) {
			r.Get("/recommendations", s.Recommendations)
			r.Get("/preferences", s.GetPreferences)
			r.Put("/preferences", s.UpdatePreferences)
			r.Post("/preferences/init", s.InitPreferences)
			r.Put("/profile", s.SaveProfile)
		})

		r.Route("/admin", func(r gochi.Router) {
			r.Put("/jobs/{id}", s.PutJob)
			r.Post("/backfill", s.RunBackfill)
			r.Get("/usage", s.GetUsage)
		})
	})
}

// SearchJobs handles POST /v1/search.
func (s *Server) SearchJobs(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}

	m, err := mode.Parse(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	filters, err := filter.New(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	limit := min(s.defaults.Search.ResultLimit(req.Limit), s.defaults.SearchMaxLimit)
	q, err := query.New(req.Query, m, filters, req.UserID, s.defaults.Search.Threshold(m, req.Threshold), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.svc.Search.Search(ctx, &q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resultsToResponse(results))
}

// SimilarJobs handles GET /v1/jobs/{id}/similar.
func (s *Server) SimilarJobs(w http.ResponseWriter, r *http.Request) {
	threshold, ok := floatParam(w, r, "threshold", s.defaults.SimilarThreshold)
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit", s.defaults.SimilarLimit)
	if !ok {
		return
	}

	items, err := s.svc.Similar.FindSimilar(r.Context(), gochi.URLParam(r, "id"), threshold, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, similarListResponse{Items: items, Total: len(items)})
}

// Recommendations handles GET /v1/users/{id}/recommendations.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", s.defaults.RecommendationsLimit)
	if !ok {
		return
	}
	limit = min(limit, s.defaults.SearchMaxLimit)

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.svc.Search.Recommend(ctx, gochi.URLParam(r, "id"), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resultsToResponse(results))
}

// GetPreferences handles GET /v1/users/{id}/preferences.
func (s *Server) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Preferences.Profile(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToResponse(&p))
}

// UpdatePreferences handles PUT /v1/users/{id}/preferences.
func (s *Server) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	if err := s.svc.Preferences.Update(ctx, gochi.URLParam(r, "id"), req.Text); err != nil {
		s.handleUpdateError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	w.WriteHeader(http.StatusNoContent)
}

// InitPreferences handles POST /v1/users/{id}/preferences/init.
func (s *Server) InitPreferences(w http.ResponseWriter, r *http.Request) {
	ctx, usage := domain.NewContextWithUsage(r.Context())
	if err := s.svc.Preferences.EnsureInitialized(ctx, gochi.URLParam(r, "id")); err != nil {
		s.handleUpdateError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	w.WriteHeader(http.StatusNoContent)
}

// SaveProfile handles PUT /v1/users/{id}/profile.
func (s *Server) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var attrs preference.Attributes
	if !s.decode(w, r, &attrs) {
		return
	}

	if err := s.svc.Preferences.SaveAttributes(r.Context(), gochi.URLParam(r, "id"), attrs); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutJob handles PUT /v1/admin/jobs/{id}.
func (s *Server) PutJob(w http.ResponseWriter, r *http.Request) {
	var j job.Job
	if !s.decode(w, r, &j) {
		return
	}

	id := gochi.URLParam(r, "id")
	if j.ID != "" && j.ID != id {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "job id in body does not match path")
		return
	}
	j.ID = id
	if err := j.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	created, err := s.svc.Jobs.SaveJob(r.Context(), &j)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", "/v1/admin/jobs/"+id)
	}
	writeJSON(w, status, j.Summary())
}

// RunBackfill handles POST /v1/admin/backfill. The response is written when the page is done.
func (s *Server) RunBackfill(w http.ResponseWriter, r *http.Request) {
	var cursor int64
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		c, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || c < 0 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "cursor must be a non-negative integer")
			return
		}
		cursor = c
	}

	// A page is paced by the provider delay and outlives the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	p, err := s.svc.Backfill.RunBackfill(r.Context(), cursor)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if p.Err != nil {
		status = s.statusFor(p.Err)
		logger.FromContextOr(r.Context(), s.logger).Error("Backfill run failed", zap.Error(p.Err))
	}
	writeJSON(w, status, progressToResponse(p))
}

// GetUsage handles GET /v1/admin/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	report := s.svc.Usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, usageToResponse(&report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	resp := healthResponse{Status: string(report.Status), Checks: checks}
	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
		if report.Err != nil {
			resp.Error = report.Err.Error()
		}
	}

	writeJSON(w, httpStatus, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func floatParam(w http.ResponseWriter, r *http.Request, name string, def float64) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, fmt.Sprintf("%s must be a number", name))
		return 0, false
	}
	return v, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, fmt.Sprintf("%s must be a non-negative integer", name))
		return 0, false
	}
	return v, true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Calls() > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Validation errors carry caller-supplied detail and are returned whole.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrPreferenceNotFound,
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrBackfillRunning,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrRemoteUnavailable,
		domain.ErrRateLimited,
		domain.ErrTransient,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// lookup returns the first mapping whose sentinel matches err.
func (s *Server) lookup(err error) (errorMapping, bool) {
	for _, m := range s.errorMappings {
		if errors.Is(err, m.sentinel) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// statusFor resolves the HTTP status of err without writing a response.
func (s *Server) statusFor(err error) int {
	if m, ok := s.lookup(err); ok {
		return m.status
	}
	return http.StatusInternalServerError
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	s.handleError(w, r, err, errorMapping{status: http.StatusInternalServerError, code: CodeInternalError})
}

// handleUpdateError treats unclassified failures of a preference write as an upstream failure.
func (s *Server) handleUpdateError(w http.ResponseWriter, r *http.Request, err error) {
	s.handleError(w, r, err, errorMapping{status: http.StatusBadGateway, code: CodeEmbeddingUnavailable})
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error, fallback errorMapping) {
	log := logger.FromContextOr(r.Context(), s.logger)
	if m, ok := s.lookup(err); ok {
		log.Warn("domain error", zap.Error(err))
		writeError(w, m.status, m.code, safeDomainMessage(err))
		return
	}
	log.Error("internal error", zap.Error(err))
	msg := "internal error"
	if fallback.status == http.StatusBadGateway {
		msg = "preference update failed"
	}
	writeError(w, fallback.status, fallback.code, msg)
}
