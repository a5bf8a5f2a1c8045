package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfigDefaults(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8080"
postgres:
  dsn: "postgres://localhost:5432/presence"
`)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.World.MapWidth != 800 || cfg.World.MapHeight != 600 {
		t.Fatalf("map defaults %v x %v", cfg.World.MapWidth, cfg.World.MapHeight)
	}
	if cfg.World.ProximityRadius != 150 {
		t.Fatalf("radius default %v", cfg.World.ProximityRadius)
	}
	if cfg.World.SessionTTL != 24*time.Hour {
		t.Fatalf("ttl default %v", cfg.World.SessionTTL)
	}
	if cfg.Logging.Backend != "std" || cfg.Logging.Env != "dev" {
		t.Fatalf("logging defaults %+v", cfg.Logging)
	}
	if cfg.Admin.Token == "" {
		t.Fatal("admin token default missing")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":9090"
  corsOrigin: ["https://example.com"]
postgres:
  dsn: "postgres://localhost:5432/presence"
world:
  mapWidth: 1600
  mapHeight: 900
  proximityRadius: 300
  sessionTTL: 1h
npc:
  model: "test-model"
  timeout: 30s
`)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.World.ProximityRadius != 300 || cfg.World.SessionTTL != time.Hour {
		t.Fatalf("world %+v", cfg.World)
	}
	if cfg.NPC.Model != "test-model" || cfg.NPC.Timeout != 30*time.Second {
		t.Fatalf("npc %+v", cfg.NPC)
	}
	if len(cfg.HTTP.CORSOrigin) != 1 {
		t.Fatalf("cors %v", cfg.HTTP.CORSOrigin)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8080"
`)
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing postgres.dsn")
	}

	writeConfig(t, `
postgres:
  dsn: "postgres://localhost:5432/presence"
`)
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing http.addr")
	}
}
