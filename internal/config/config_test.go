package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalYAML = `
telegram:
  token: "123:abc"
backend:
  url: "https://api.example.com/property"
admins: [100, 200]
channels:
  property: ["@props"]
  all: ["@everything"]
`

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Admins) != 2 || cfg.Admins[0] != 100 {
		t.Fatalf("admins = %v", cfg.Admins)
	}
	if cfg.Channels.Property[0] != "@props" || cfg.Channels.All[0] != "@everything" {
		t.Fatalf("channels = %+v", cfg.Channels)
	}
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.Timeout.Std() != 30*time.Second {
		t.Fatalf("backend timeout = %s", cfg.Backend.Timeout.Std())
	}
	if cfg.Broadcast.RatePerSec != 10 {
		t.Fatalf("rate = %d", cfg.Broadcast.RatePerSec)
	}
	if cfg.Broadcast.PartDelay.Std() != 500*time.Millisecond {
		t.Fatalf("part delay = %s", cfg.Broadcast.PartDelay.Std())
	}
	if cfg.Broadcast.ChunkDelay.Std() != time.Second {
		t.Fatalf("chunk delay = %s", cfg.Broadcast.ChunkDelay.Std())
	}
	if cfg.Broadcast.FetchRetries != 3 {
		t.Fatalf("fetch retries = %d", cfg.Broadcast.FetchRetries)
	}
	if cfg.Health.Addr != ":3000" {
		t.Fatalf("health addr = %q", cfg.Health.Addr)
	}
}

func TestDurationParsing(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
broadcast:
  part_delay: "250ms"
  chunk_delay: "2s"
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Broadcast.PartDelay.Std() != 250*time.Millisecond {
		t.Fatalf("part delay = %s", cfg.Broadcast.PartDelay.Std())
	}
	if cfg.Broadcast.ChunkDelay.Std() != 2*time.Second {
		t.Fatalf("chunk delay = %s", cfg.Broadcast.ChunkDelay.Std())
	}
}

func TestEnvOverlayWins(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("ADMIN_CHAT_IDS", "1, 2,3")
	t.Setenv("TELEGRAM_ALL_GROUPS", "@a,@b")
	t.Setenv("PORT", "8080")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("token = %q, env must win", cfg.Telegram.Token)
	}
	if len(cfg.Admins) != 3 || cfg.Admins[2] != 3 {
		t.Fatalf("admins = %v", cfg.Admins)
	}
	if len(cfg.Channels.All) != 2 || cfg.Channels.All[1] != "@b" {
		t.Fatalf("all channels = %v", cfg.Channels.All)
	}
	if cfg.Health.Addr != ":8080" {
		t.Fatalf("health addr = %q", cfg.Health.Addr)
	}
}

func TestEnvOnlyDeployment(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("STATAMIC_API_URL", "https://api.example.com")
	t.Setenv("ADMIN_CHAT_IDS", "7")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.URL != "https://api.example.com" {
		t.Fatalf("backend url = %q", cfg.Backend.URL)
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing token", `
backend:
  url: "https://api.example.com"
admins: [1]
`},
		{"missing backend url", `
telegram:
  token: "t"
admins: [1]
`},
		{"no admins", `
telegram:
  token: "t"
backend:
  url: "https://api.example.com"
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
