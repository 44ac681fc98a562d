package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Match.Threshold != 60 {
		t.Errorf("expected threshold 60, got %v", cfg.Match.Threshold)
	}
	if cfg.Match.RecentDays != 7 || cfg.Match.RecentLimit != 2000 {
		t.Errorf("expected 7 days / 2000 records, got %d / %d", cfg.Match.RecentDays, cfg.Match.RecentLimit)
	}
	if cfg.Match.ItemsPerSource != 10 {
		t.Errorf("expected 10 items per source, got %d", cfg.Match.ItemsPerSource)
	}
	if cfg.Match.DryRun {
		t.Error("expected dry run to be off by default")
	}
	if cfg.Seen.TTL != 24*time.Hour {
		t.Errorf("expected seen TTL 24h, got %v", cfg.Seen.TTL)
	}
	if cfg.DB.Table != "incidents" {
		t.Errorf("expected table incidents, got %q", cfg.DB.Table)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "72.5")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("SEEN_CACHE_TTL", "90m")
	t.Setenv("DB_TABLE", "news_incidents")
	t.Setenv("WORKER_COUNT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Match.Threshold != 72.5 {
		t.Errorf("expected threshold 72.5, got %v", cfg.Match.Threshold)
	}
	if !cfg.Match.DryRun {
		t.Error("expected dry run to be on")
	}
	if cfg.Seen.TTL != 90*time.Minute {
		t.Errorf("expected seen TTL 90m, got %v", cfg.Seen.TTL)
	}
	if cfg.DB.Table != "news_incidents" {
		t.Errorf("expected table news_incidents, got %q", cfg.DB.Table)
	}
	// Unparseable values fall back to the default
	if cfg.Worker.Count != 2 {
		t.Errorf("expected worker count 2, got %d", cfg.Worker.Count)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{"SERVER_PORT", "70000", "invalid server port"},
		{"LOG_LEVEL", "verbose", "invalid log level"},
		{"LOG_FORMAT", "xml", "invalid log format"},
		{"MATCH_THRESHOLD", "111", "match threshold"},
		{"RECENT_LIMIT", "0", "recent limit"},
		{"ITEMS_PER_SOURCE", "0", "items per source"},
		{"DB_TABLE", "incidents;drop", "invalid table name"},
		{"RATE_LIMIT_RPS", "-1", "rate limit"},
		{"SEEN_CACHE_SIZE", "0", "seen cache size"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%s, got nil", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}
