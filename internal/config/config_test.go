package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("GROK_API_KEY", "")
	t.Setenv("XAI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GrokModel != "grok-4-1-fast-reasoning" || cfg.GrokMaxTokens != 2000 || cfg.GrokTemperature != 0.8 {
		t.Fatalf("unexpected reasoning defaults: %+v", cfg)
	}
	if cfg.CallMaxAttempts != 3 || cfg.CallTimeout != 60*time.Second {
		t.Fatalf("unexpected call policy defaults: attempts=%d timeout=%s", cfg.CallMaxAttempts, cfg.CallTimeout)
	}
	if cfg.AlertThreshold != "medium" || cfg.RosterMaxAge != 24*time.Hour {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg)
	}
	if cfg.ReasoningConfigured() {
		t.Fatalf("expected reasoning to be unconfigured without a key")
	}
	if !cfg.TransfermarktCircuit.Enabled || cfg.TransfermarktCircuit.FailureThreshold != 5 {
		t.Fatalf("unexpected circuit defaults: %+v", cfg.TransfermarktCircuit)
	}
}

func TestLoad_ReasoningKeyFallback(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("GROK_API_KEY", "")
	t.Setenv("XAI_API_KEY", "xai-123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GrokAPIKey != "xai-123" || !cfg.ReasoningConfigured() {
		t.Fatalf("expected XAI_API_KEY fallback, got %q", cfg.GrokAPIKey)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad threshold", env: map[string]string{"ALERT_THRESHOLD": "critical"}},
		{name: "zero call timeout", env: map[string]string{"CALL_TIMEOUT": "0s"}},
		{name: "bad duration", env: map[string]string{"ROSTER_MAX_AGE": "tomorrow"}},
		{name: "zero attempts", env: map[string]string{"CALL_MAX_ATTEMPTS": "0"}},
		{name: "news limit too large", env: map[string]string{"NEWS_LIMIT": "500"}},
		{name: "temperature out of range", env: map[string]string{"GROK_TEMPERATURE": "3"}},
		{name: "both fixture sources", env: map[string]string{"FIXTURE_FEED_URL": "http://feed", "FIXTURE_FILE": "fixtures.yaml"}},
		{name: "uptrace without dsn", env: map[string]string{"UPTRACE_ENABLED": "true", "UPTRACE_DSN": "", "OTEL_EXPORTER_OTLP_HEADERS": ""}},
		{name: "betterstack without endpoint", env: map[string]string{"BETTERSTACK_ENABLED": "true", "BETTERSTACK_ENDPOINT": ""}},
		{name: "circuit failure count", env: map[string]string{"TRANSFERMARKT_CIRCUIT_FAILURE_COUNT": "0"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected dsn %q", cfg.UptraceDSN)
	}
}

func TestLoadDotEnv_ExistingEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	body := "PRA_DOTENV_NEW=from-file\nPRA_DOTENV_SET=from-file\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("PRA_DOTENV_SET", "from-env")
	t.Setenv("PRA_DOTENV_NEW", "")
	os.Unsetenv("PRA_DOTENV_NEW")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("PRA_DOTENV_NEW"); got != "from-file" {
		t.Fatalf("expected file value, got %q", got)
	}
	if got := os.Getenv("PRA_DOTENV_SET"); got != "from-env" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
}

func TestLoadPipelineDefaults(t *testing.T) {
	t.Run("built-in defaults", func(t *testing.T) {
		got, err := LoadPipelineDefaults("")
		if err != nil {
			t.Fatalf("load defaults: %v", err)
		}
		if got.Parallelism != 2 || got.RosterMaxAge != 0 || got.Lookahead != 0 || got.DryRun {
			t.Fatalf("unexpected defaults %+v", got)
		}
	})

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.yaml")
		body := "dry_run: true\nleagues:\n  - Premier League\n  - La Liga\nparallelism: 4\nroster_max_age: 6h\n"
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write defaults: %v", err)
		}

		got, err := LoadPipelineDefaults(path)
		if err != nil {
			t.Fatalf("load defaults: %v", err)
		}
		if !got.DryRun || got.Parallelism != 4 || got.RosterMaxAge != 6*time.Hour {
			t.Fatalf("unexpected file values %+v", got)
		}
		if len(got.Leagues) != 2 || got.Leagues[1] != "La Liga" {
			t.Fatalf("unexpected leagues %v", got.Leagues)
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.json")
		if err := os.WriteFile(path, []byte(`{"strict": false, "parallelism": 3}`), 0o600); err != nil {
			t.Fatalf("write defaults: %v", err)
		}
		t.Setenv("PIPELINE_STRICT", "true")

		got, err := LoadPipelineDefaults(path)
		if err != nil {
			t.Fatalf("load defaults: %v", err)
		}
		if !got.Strict || got.Parallelism != 3 {
			t.Fatalf("unexpected merged values %+v", got)
		}
	})

	t.Run("invalid parallelism", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.yaml")
		if err := os.WriteFile(path, []byte("parallelism: 0\n"), 0o600); err != nil {
			t.Fatalf("write defaults: %v", err)
		}
		if _, err := LoadPipelineDefaults(path); err == nil {
			t.Fatalf("expected validation error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadPipelineDefaults(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatalf("expected missing file error")
		}
	})
}
