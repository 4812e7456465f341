package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort   string `yaml:"api_port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	RedisAddr   string `yaml:"redis_addr"`
	PostgresDSN string `yaml:"postgres_dsn"`

	NATSURL          string `yaml:"nats_url"`
	NATSAuditSubject string `yaml:"nats_audit_subject"`

	IndexURL   string `yaml:"index_url"`
	EmbedURL   string `yaml:"embed_url"`
	EmbedModel string `yaml:"embed_model"`

	HybridAlpha         float64 `yaml:"hybrid_alpha"`
	DefaultK            int     `yaml:"default_k"`
	MaxK                int     `yaml:"max_k"`
	MaxRerankCandidates int     `yaml:"max_rerank_candidates"`
	RerankQueryTokenCap int     `yaml:"rerank_query_token_cap"`

	SnippetMaxChars int `yaml:"snippet_max_chars"`
	MaxCitations    int `yaml:"max_citations"`
	MaxHighlights   int `yaml:"max_highlights"`
	AnswerMaxChars  int `yaml:"answer_max_chars"`

	ConfidenceCoverageWeight float64 `yaml:"confidence_coverage_weight"`
	ConfidenceStrengthWeight float64 `yaml:"confidence_strength_weight"`
	SentenceNormFactor       float64 `yaml:"sentence_norm_factor"`
	AbstainThreshold         float64 `yaml:"abstain_threshold"`
	StatsWindowSize          int     `yaml:"stats_window_size"`

	CacheTTLSeconds    int `yaml:"cache_ttl_seconds"`
	RetrievalTimeoutMS int `yaml:"retrieval_timeout_ms"`
	EmbedTimeoutMS     int `yaml:"embed_timeout_ms"`

	APIRateLimitRPS   float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int     `yaml:"api_rate_limit_burst"`
	APIMaxInflight    int     `yaml:"api_max_inflight"`
	APIInflightWaitMS int     `yaml:"api_inflight_wait_ms"`
}

// Load builds configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in that precedence order.
func Load() Config {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "config file %s ignored: %v\n", path, err)
		}
	}
	cfg.applyEnv()
	return cfg
}

func defaults() Config {
	return Config{
		APIPort:   "8080",
		LogLevel:  "info",
		LogFormat: "json",

		NATSAuditSubject: "qa.safety.audit",

		IndexURL:   "http://localhost:7700",
		EmbedURL:   "http://localhost:11434",
		EmbedModel: "nomic-embed-text",

		HybridAlpha:         0.6,
		DefaultK:            5,
		MaxK:                50,
		MaxRerankCandidates: 50,
		RerankQueryTokenCap: 8,

		SnippetMaxChars: 220,
		MaxCitations:    3,
		MaxHighlights:   4,
		AnswerMaxChars:  480,

		ConfidenceCoverageWeight: 0.6,
		ConfidenceStrengthWeight: 0.4,
		SentenceNormFactor:       0.5,
		AbstainThreshold:         0.25,
		StatsWindowSize:          50,

		CacheTTLSeconds:    60,
		RetrievalTimeoutMS: 3000,
		EmbedTimeoutMS:     3000,

		APIRateLimitRPS:   25,
		APIRateLimitBurst: 50,
		APIMaxInflight:    256,
		APIInflightWaitMS: 100,
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	envStr("API_PORT", &c.APIPort)
	envStr("LOG_LEVEL", &c.LogLevel)
	envStr("LOG_FORMAT", &c.LogFormat)

	envStr("REDIS_ADDR", &c.RedisAddr)
	envStr("POSTGRES_DSN", &c.PostgresDSN)

	envStr("NATS_URL", &c.NATSURL)
	envStr("NATS_AUDIT_SUBJECT", &c.NATSAuditSubject)

	envStr("INDEX_URL", &c.IndexURL)
	envStr("EMBED_URL", &c.EmbedURL)
	envStr("EMBED_MODEL", &c.EmbedModel)

	envFloat("HYBRID_ALPHA", &c.HybridAlpha)
	envInt("DEFAULT_K", &c.DefaultK)
	envInt("MAX_K", &c.MaxK)
	envInt("MAX_RERANK_CANDIDATES", &c.MaxRerankCandidates)
	envInt("RERANK_QUERY_TOKEN_CAP", &c.RerankQueryTokenCap)

	envInt("SNIPPET_MAX_CHARS", &c.SnippetMaxChars)
	envInt("MAX_CITATIONS", &c.MaxCitations)
	envInt("MAX_HIGHLIGHTS", &c.MaxHighlights)
	envInt("ANSWER_MAX_CHARS", &c.AnswerMaxChars)

	envFloat("CONFIDENCE_COVERAGE_WEIGHT", &c.ConfidenceCoverageWeight)
	envFloat("CONFIDENCE_STRENGTH_WEIGHT", &c.ConfidenceStrengthWeight)
	envFloat("SENTENCE_NORM_FACTOR", &c.SentenceNormFactor)
	envFloat("ABSTAIN_THRESHOLD", &c.AbstainThreshold)
	envInt("STATS_WINDOW_SIZE", &c.StatsWindowSize)

	envInt("CACHE_TTL_SECONDS", &c.CacheTTLSeconds)
	envInt("RETRIEVAL_TIMEOUT_MS", &c.RetrievalTimeoutMS)
	envInt("EMBED_TIMEOUT_MS", &c.EmbedTimeoutMS)

	envFloat("API_RATE_LIMIT_RPS", &c.APIRateLimitRPS)
	envInt("API_RATE_LIMIT_BURST", &c.APIRateLimitBurst)
	envInt("API_MAX_INFLIGHT", &c.APIMaxInflight)
	envInt("API_INFLIGHT_WAIT_MS", &c.APIInflightWaitMS)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func envFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}
