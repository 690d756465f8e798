// Package config holds the process configuration for every gravilo entry
// point. It is constructed once at startup from environment variables and
// passed by reference into each component; nothing reads the environment
// after that.
package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

// ErrTokenMissing is returned when no Discord credential is configured.
// The token is the only fatal-if-absent variable; everything else
// degrades the dependent feature with a warning.
var ErrTokenMissing = errors.New("DISCORD_TOKEN is not set")

type Config struct {
	// Discord credential. DISCORD_TOKEN is canonical; DISCORD_BOT_TOKEN is
	// accepted for deployments that predate the rename.
	Token    string `env:"DISCORD_TOKEN"`
	BotToken string `env:"DISCORD_BOT_TOKEN"`

	// n8n message processing webhook.
	WebhookURL string `env:"N8N_WEBHOOK_URL"`

	// Backend guild sync endpoints and shared secret.
	GuildSyncURL   string `env:"DISCORD_GUILD_SYNC_URL"`
	GuildRemoveURL string `env:"DISCORD_GUILD_REMOVE_URL"`
	SyncSecret     string `env:"DISCORD_BOT_SYNC_SECRET"`

	// Usage metering endpoint (discord-message-usage).
	UsageURL string `env:"SERVER_USAGE_INCREMENT_URL"`

	// n8n ingestion webhook used by the indexer.
	IngestURL string `env:"N8N_INGEST_WEBHOOK_URL"`

	// FilterPolicy selects the forwarding heuristic: "always",
	// "attention", or "keyword".
	FilterPolicy string `env:"BRIDGE_FILTER_POLICY" envDefault:"always"`

	// IndexDays bounds how far back the indexer walks channel history.
	IndexDays int `env:"INDEXER_DAYS" envDefault:"30"`

	// HealthAddr, when set, enables the bridge's health endpoints
	// (e.g. ":8080").
	HealthAddr string `env:"BRIDGE_HEALTH_ADDR"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BotCredential returns the Discord token, preferring DISCORD_TOKEN.
func (c *Config) BotCredential() (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	if c.BotToken != "" {
		return c.BotToken, nil
	}
	return "", ErrTokenMissing
}
