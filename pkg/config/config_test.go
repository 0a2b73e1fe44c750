package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Store.ChunkSize != 1200 || cfg.Store.ChunkOverlap != 100 {
		t.Errorf("default chunking = %d/%d, want 1200/100", cfg.Store.ChunkSize, cfg.Store.ChunkOverlap)
	}
	if cfg.Analysis.TopK != 50 {
		t.Errorf("default topK = %d, want 50", cfg.Analysis.TopK)
	}
	if cfg.Search.DefaultLimit != 10 {
		t.Errorf("default search limit = %d, want 10", cfg.Search.DefaultLimit)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  port: 9191
  readTimeout: 5s
store:
  dataDir: /tmp/corpus
search:
  defaultLimit: 25
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s) returned error: %v", path, err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("server port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Store.DataDir != "/tmp/corpus" {
		t.Errorf("data dir = %q, want /tmp/corpus", cfg.Store.DataDir)
	}
	if cfg.Search.DefaultLimit != 25 {
		t.Errorf("search limit = %d, want 25", cfg.Search.DefaultLimit)
	}
	// Values absent from the file keep their defaults.
	if cfg.Analysis.TopK != 50 {
		t.Errorf("topK = %d, want default 50", cfg.Analysis.TopK)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NA_SERVER_PORT", "7070")
	t.Setenv("NA_STORE_DATA_DIR", "/var/lib/corpus")
	t.Setenv("NA_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("NA_ANALYTICS_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("server port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Store.DataDir != "/var/lib/corpus" {
		t.Errorf("data dir = %q, want /var/lib/corpus", cfg.Store.DataDir)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v, want [k1:9092 k2:9092]", cfg.Kafka.Brokers)
	}
	if cfg.Analytics.Enabled {
		t.Error("analytics should be disabled by env override")
	}
}
