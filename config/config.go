// Package config loads environment variables and provides a typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// The Discord bot token is the only hard requirement; see Load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Discord
	DiscordToken string
	// GuildID restricts slash-command registration to one guild when set.
	// Global registration (empty) can take up to an hour to propagate.
	GuildID string

	// YouTube OAuth artifacts
	ClientSecretFile string
	TokenFile        string

	// Storage for temporary media downloads
	DataDir string

	// HTTP (health/status/metrics/oauth callback)
	HTTPAddr string

	// Timezone offset in hours applied to date windows.
	TZOffsetHours int

	// Retry tuning
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
}

// Load reads environment variables and applies defaults. DISCORD_BOT_TOKEN is
// required; everything else has a workable default.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DiscordToken = os.Getenv("DISCORD_BOT_TOKEN")
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("missing required env DISCORD_BOT_TOKEN")
	}
	cfg.GuildID = os.Getenv("DISCORD_GUILD_ID")

	cfg.ClientSecretFile = os.Getenv("YT_CLIENT_SECRET_FILE")
	if cfg.ClientSecretFile == "" {
		cfg.ClientSecretFile = "client_secret.json"
	}
	cfg.TokenFile = os.Getenv("YT_TOKEN_FILE")
	if cfg.TokenFile == "" {
		cfg.TokenFile = "token.json"
	}

	cfg.DataDir = os.Getenv("DATA_DIR")
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	// Date windows are computed in a fixed offset; defaults to UTC+9.
	cfg.TZOffsetHours = 9
	if s := os.Getenv("TZ_OFFSET_HOURS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < -12 || n > 14 {
			return nil, fmt.Errorf("invalid TZ_OFFSET_HOURS %q", s)
		}
		cfg.TZOffsetHours = n
	}

	cfg.RetryInitialBackoff = 1 * time.Second
	if s := os.Getenv("RETRY_INITIAL_BACKOFF"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			cfg.RetryInitialBackoff = d
		}
	}
	cfg.RetryMaxBackoff = 30 * time.Second
	if s := os.Getenv("RETRY_MAX_BACKOFF"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			cfg.RetryMaxBackoff = d
		}
	}

	return cfg, nil
}

// Location returns the fixed-offset zone used for date window computation.
func (c *Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.TZOffsetHours), c.TZOffsetHours*60*60)
}
