// Package config loads the bot configuration: a YAML file for structure,
// with a .env overlay for secrets and channel lists so deployments that
// only carry environment variables keep working.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"

	"estatebot/pkg/logx"
)

type Config struct {
	Telegram    Telegram    `yaml:"telegram"`
	Backend     Backend     `yaml:"backend"`
	Admins      []int64     `yaml:"admins"`
	Channels    Channels    `yaml:"channels"`
	Broadcast   Broadcast   `yaml:"broadcast"`
	Logging     logx.Config `yaml:"logging"`
	Audit       Audit       `yaml:"audit"`
	Maintenance Maintenance `yaml:"maintenance"`
	Health      Health      `yaml:"health"`
}

type Telegram struct {
	Token       string   `yaml:"token"`
	PollTimeout Duration `yaml:"poll_timeout"`
}

type Backend struct {
	URL string `yaml:"url"`
	// NewsURL overrides the create endpoint for news records; empty means
	// news posts go to URL as well.
	NewsURL string   `yaml:"news_url"`
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout"`
}

// Channels are the broadcast target sets. A property broadcast goes to the
// de-duplicated union of Property and All; news to News and All.
type Channels struct {
	Property []string `yaml:"property"`
	News     []string `yaml:"news"`
	All      []string `yaml:"all"`
}

type Broadcast struct {
	RatePerSec   int      `yaml:"rate_per_sec"`
	PartDelay    Duration `yaml:"part_delay"`
	ChunkDelay   Duration `yaml:"chunk_delay"`
	FetchRetries int      `yaml:"fetch_retries"`
	FetchTimeout Duration `yaml:"fetch_timeout"`
}

type Audit struct {
	// Path of the sqlite audit database; empty disables auditing.
	Path string `yaml:"path"`
}

type Maintenance struct {
	// DeleteOldCron is a cron spec for the periodic purge of old backend
	// entries; empty disables the job.
	DeleteOldCron string `yaml:"delete_old_cron"`
}

type Health struct {
	Addr string `yaml:"addr"`
}

// Duration accepts Go duration strings ("500ms", "30s") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads the YAML file at path, then applies the environment overlay
// and validates. A missing file is not an error when the environment alone
// carries a complete configuration.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // best effort; real env always wins over .env

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployment
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_API_TOKEN"); v != "" {
		c.Backend.Token = v
	}
	if v := os.Getenv("STATAMIC_API_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("STATAMIC_NEWS_API_URL"); v != "" {
		c.Backend.NewsURL = v
	}
	if ids := splitInt64List(os.Getenv("ADMIN_CHAT_IDS")); len(ids) > 0 {
		c.Admins = ids
	}
	if v := splitList(os.Getenv("TELEGRAM_PROPERTY_GROUPS")); len(v) > 0 {
		c.Channels.Property = v
	}
	if v := splitList(os.Getenv("TELEGRAM_NEWS_GROUPS")); len(v) > 0 {
		c.Channels.News = v
	}
	if v := splitList(os.Getenv("TELEGRAM_ALL_GROUPS")); len(v) > 0 {
		c.Channels.All = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Health.Addr = ":" + v
	}
}

func (c *Config) applyDefaults() {
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = Duration(30 * time.Second)
	}
	if c.Broadcast.RatePerSec <= 0 {
		c.Broadcast.RatePerSec = 10
	}
	if c.Broadcast.PartDelay <= 0 {
		c.Broadcast.PartDelay = Duration(500 * time.Millisecond)
	}
	if c.Broadcast.ChunkDelay <= 0 {
		c.Broadcast.ChunkDelay = Duration(time.Second)
	}
	if c.Broadcast.FetchRetries <= 0 {
		c.Broadcast.FetchRetries = 3
	}
	if c.Broadcast.FetchTimeout <= 0 {
		c.Broadcast.FetchTimeout = Duration(15 * time.Second)
	}
	if c.Health.Addr == "" {
		c.Health.Addr = ":3000"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if !c.Logging.Console && !c.Logging.File.Enabled {
		c.Logging.Console = true
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram token is required (telegram.token or TELEGRAM_BOT_TOKEN)")
	}
	if strings.TrimSpace(c.Backend.URL) == "" {
		return errors.New("backend url is required (backend.url or STATAMIC_API_URL)")
	}
	if len(c.Admins) == 0 {
		return errors.New("at least one admin chat id is required")
	}
	return nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitInt64List(raw string) []int64 {
	var out []int64
	for _, p := range splitList(raw) {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
