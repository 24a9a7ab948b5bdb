package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(llmAPIKeyEnv, "")

	cfg := Load()

	if cfg.Pipeline.StoryTarget != 10 {
		t.Fatalf("unexpected story target: %d", cfg.Pipeline.StoryTarget)
	}
	if cfg.Pipeline.RecencyWindow() != 7*24*time.Hour {
		t.Fatalf("unexpected recency window: %s", cfg.Pipeline.RecencyWindow())
	}
	if len(cfg.Reddit.Subreddits) == 0 || len(cfg.Feeds) == 0 {
		t.Fatal("default research sources missing")
	}
	if len(cfg.Pipeline.CatalogWindows) != 1 || cfg.Pipeline.CatalogWindows[0] != "trending" {
		t.Fatalf("unexpected default catalog windows: %v", cfg.Pipeline.CatalogWindows)
	}
	if cfg.LLM.EditorTemperature != 0.8 || cfg.LLM.WriterTemperature != 0.7 {
		t.Fatalf("unexpected temperatures: %.1f, %.1f",
			cfg.LLM.EditorTemperature, cfg.LLM.WriterTemperature)
	}
	if cfg.Scheduler.Enabled {
		t.Fatal("scheduler enabled by default")
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
logging:
  level: warn
scheduler:
  enabled: true
  cronExpression: "30 5 * * *"
pipeline:
  storyTarget: 5
  catalogWindows: [trending, upcoming]
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()

	if cfg.Logging.Level != "warn" {
		t.Fatalf("level not merged: %s", cfg.Logging.Level)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.CronExpression != "30 5 * * *" {
		t.Fatalf("scheduler not merged: %+v", cfg.Scheduler)
	}
	if cfg.Pipeline.StoryTarget != 5 {
		t.Fatalf("story target not merged: %d", cfg.Pipeline.StoryTarget)
	}
	if len(cfg.Pipeline.CatalogWindows) != 2 || cfg.Pipeline.CatalogWindows[1] != "upcoming" {
		t.Fatalf("catalog windows not merged: %v", cfg.Pipeline.CatalogWindows)
	}
	// Untouched sections keep their defaults.
	if len(cfg.Feeds) == 0 {
		t.Fatal("feed defaults lost during merge")
	}
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
database:
  dsn: postgres://file@localhost/gazette
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://env@localhost/gazette")
	t.Setenv(llmAPIKeyEnv, "sk-from-env")

	cfg := Load()

	if cfg.Database.DSN != "postgres://env@localhost/gazette" {
		t.Fatalf("env DSN did not win: %s", cfg.Database.DSN)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Fatalf("env API key not applied: %s", cfg.LLM.APIKey)
	}
}

func TestSchedulerLocationFallsBackToUTC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
scheduler:
  timezone: Not/AZone
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()

	if got := cfg.Scheduler.Location(); got != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", got)
	}
}
