package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port 8080, got %s", cfg.APIPort)
	}
	if cfg.HybridAlpha != 0.6 {
		t.Fatalf("expected default alpha 0.6, got %f", cfg.HybridAlpha)
	}
	if cfg.AbstainThreshold != 0.25 {
		t.Fatalf("expected default abstain threshold 0.25, got %f", cfg.AbstainThreshold)
	}
	if cfg.CacheTTLSeconds != 60 {
		t.Fatalf("expected default cache ttl 60s, got %d", cfg.CacheTTLSeconds)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("HYBRID_ALPHA", "0.8")
	t.Setenv("MAX_K", "25")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := Load()

	if cfg.HybridAlpha != 0.8 {
		t.Fatalf("expected alpha 0.8 from env, got %f", cfg.HybridAlpha)
	}
	if cfg.MaxK != 25 {
		t.Fatalf("expected max k 25 from env, got %d", cfg.MaxK)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("expected redis addr from env, got %q", cfg.RedisAddr)
	}
}

func TestLoadFileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "hybrid_alpha: 0.3\nmax_citations: 5\napi_port: \"9000\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "9100")

	cfg := Load()

	if cfg.HybridAlpha != 0.3 {
		t.Fatalf("expected alpha 0.3 from file, got %f", cfg.HybridAlpha)
	}
	if cfg.MaxCitations != 5 {
		t.Fatalf("expected max citations 5 from file, got %d", cfg.MaxCitations)
	}
	if cfg.APIPort != "9100" {
		t.Fatalf("expected env to override file, got %s", cfg.APIPort)
	}
}

func TestLoadIgnoresInvalidEnvValues(t *testing.T) {
	t.Setenv("MAX_K", "not-a-number")

	cfg := Load()

	if cfg.MaxK != 50 {
		t.Fatalf("expected invalid env value to keep default, got %d", cfg.MaxK)
	}
}
