package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Budget = BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	for _, action := range []string{"", "warn", "reject"} {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding.Budget.Action = action
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"no addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"semantic threshold", func(c *Config) { c.Search.SemanticThreshold = 1.5 }, "search.semantic_threshold"},
		{"hybrid threshold", func(c *Config) { c.Search.HybridThreshold = -0.1 }, "search.hybrid_threshold"},
		{"similar threshold", func(c *Config) { c.Similar.Threshold = 2 }, "similar.threshold"},
		{"search limits", func(c *Config) { c.Search.DefaultLimit = 200 }, "search.default_limit"},
		{"similar limits", func(c *Config) { c.Similar.Limit = 60 }, "similar.limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Embedding.Provider != "openai" || cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("embedding provider/model = %q/%q", cfg.Embedding.Provider, cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("dimensions = %d, want 1536", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.Retry.MaxAttempts != 3 || cfg.Embedding.Retry.BaseDelayMs != 5000 {
		t.Errorf("retry = %+v", cfg.Embedding.Retry)
	}
	if cfg.Search.SemanticThreshold != 0.7 || cfg.Search.HybridThreshold != 0.6 {
		t.Errorf("search thresholds = %v/%v", cfg.Search.SemanticThreshold, cfg.Search.HybridThreshold)
	}
	if cfg.Search.DefaultLimit != 20 {
		t.Errorf("search.default_limit = %d, want 20", cfg.Search.DefaultLimit)
	}
	if cfg.Similar.Threshold != 0.8 || cfg.Similar.Limit != 10 {
		t.Errorf("similar = %+v", cfg.Similar)
	}
	if cfg.Recommendations.Limit != 15 {
		t.Errorf("recommendations.limit = %d, want 15", cfg.Recommendations.Limit)
	}
	if cfg.Backfill.PageSize != 10 || cfg.Backfill.DelaySec != 25 {
		t.Errorf("backfill = %+v", cfg.Backfill)
	}
	if cfg.Index.HNSWM != 16 || cfg.Index.HNSWEFConstruct != 200 {
		t.Errorf("index = %+v", cfg.Index)
	}
	if cfg.Storage.KeyPrefix != "jobsearch:" {
		t.Errorf("key_prefix = %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Search:   SearchConfig{SemanticThreshold: 0.9, DefaultLimit: 5},
		Backfill: BackfillConfig{DelaySec: 1},
		Storage:  StorageConfig{KeyPrefix: "test:"},
	}
	cfg.ApplyDefaults()

	if cfg.Search.SemanticThreshold != 0.9 || cfg.Search.DefaultLimit != 5 {
		t.Errorf("search overwritten: %+v", cfg.Search)
	}
	if cfg.Backfill.DelaySec != 1 {
		t.Errorf("backfill.delay_sec = %d, want 1", cfg.Backfill.DelaySec)
	}
	if cfg.Storage.KeyPrefix != "test:" {
		t.Errorf("key_prefix = %q", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("JOBSEARCH_TEST_KEY", "sk-123")

	got := string(expandEnvVars([]byte("a: ${JOBSEARCH_TEST_KEY}\nb: ${JOBSEARCH_TEST_MISSING:-fallback}\nc: ${JOBSEARCH_TEST_MISSING}")))
	want := "a: sk-123\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParse(t *testing.T) {
	t.Setenv("JOBSEARCH_TEST_PORT", "9090")

	data := []byte(`
http:
  port: ${JOBSEARCH_TEST_PORT}
database:
  addrs: ["redis:6379"]
embedding:
  api_key: ${JOBSEARCH_TEST_OPENAI:-none}
  budget:
    daily_token_limit: 500
    action: reject
auth:
  api_keys: ["k1", "k2"]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Embedding.APIKey != "none" {
		t.Errorf("api_key = %q, want none", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.Budget.DailyTokenLimit != 500 || cfg.Embedding.Budget.Action != "reject" {
		t.Errorf("budget = %+v", cfg.Embedding.Budget)
	}
	if len(cfg.Auth.APIKeys) != 2 {
		t.Errorf("api_keys = %v", cfg.Auth.APIKeys)
	}
	if cfg.Search.DefaultLimit != 20 {
		t.Errorf("defaults not applied: %+v", cfg.Search)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Fatal("expected validation error for missing database.addrs")
	}
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected yaml error")
	}
}
