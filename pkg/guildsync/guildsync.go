// Package guildsync pushes guild metadata and usage counters to the
// backend, always off the event path: every call is either invoked from a
// detached goroutine or cheap enough not to matter. Failures are logged
// and dropped, never surfaced to the chat flow.
package guildsync

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gravilo/gravilo/pkg/relay"
)

const (
	syncTimeout = 10 * time.Second

	// defaultMessageLimit is the plan ceiling reported for newly synced
	// guilds; the backend may override it later.
	defaultMessageLimit = 3000
)

// GuildInfo is the adapter-normalized view of a guild. IconURL is empty
// when the guild has no icon.
type GuildInfo struct {
	ID      string
	Name    string
	OwnerID string
	IconURL string
}

type syncPayload struct {
	GuildID      string  `json:"discord_guild_id"`
	OwnerID      string  `json:"discord_owner_id"`
	Name         string  `json:"name"`
	IconURL      *string `json:"icon_url"`
	MessageLimit int     `json:"message_limit"`
}

type removePayload struct {
	GuildID string `json:"discord_guild_id"`
}

type usagePayload struct {
	GuildID  string `json:"discord_guild_id"`
	Messages int    `json:"messages"`
}

// Syncer issues guild sync, disconnect, and usage metering calls.
type Syncer struct {
	syncURL   string
	removeURL string
	usageURL  string
	secret    string
	client    *relay.Client
	logger    *log.Entry
}

// NewSyncer builds a Syncer. Any of the URLs (or the secret) may be
// empty; the corresponding call degrades to a warning no-op.
func NewSyncer(syncURL, removeURL, usageURL, secret string) *Syncer {
	return &Syncer{
		syncURL:   syncURL,
		removeURL: removeURL,
		usageURL:  usageURL,
		secret:    secret,
		client:    relay.NewClient(syncTimeout),
		logger:    log.WithField("component", "guildsync"),
	}
}

// Sync pushes one guild's metadata to the backend.
func (s *Syncer) Sync(ctx context.Context, g GuildInfo) {
	if s.syncURL == "" || s.secret == "" {
		s.logger.Warn("missing guild sync config, skipping")
		return
	}

	payload := syncPayload{
		GuildID:      g.ID,
		OwnerID:      g.OwnerID,
		Name:         g.Name,
		MessageLimit: defaultMessageLimit,
	}
	if g.IconURL != "" {
		icon := g.IconURL
		payload.IconURL = &icon
	}

	result, err := s.client.Post(ctx, s.syncURL, payload, relay.WithSecret(s.secret))
	if err != nil {
		s.logger.WithField("guild", g.ID).Errorf("guild sync: %v", err)
		return
	}
	if !result.OK() {
		s.logger.WithField("guild", g.ID).Warnf("guild sync failed: status %d body=%s", result.StatusCode, result.Body)
		return
	}
	s.logger.Infof("synced guild %s (%s)", g.Name, g.ID)
}

// Backfill launches one detached sync per already-joined guild. It
// returns immediately; the event loop is never blocked on the fan-out.
func (s *Syncer) Backfill(ctx context.Context, guilds []GuildInfo) {
	s.logger.Infof("backfilling %d guild(s)", len(guilds))
	for _, g := range guilds {
		go s.Sync(ctx, g)
	}
}

// Remove notifies the backend that the bot left a guild.
func (s *Syncer) Remove(ctx context.Context, guildID string) {
	if s.removeURL == "" || s.secret == "" {
		s.logger.Warn("missing guild remove config, skipping")
		return
	}

	result, err := s.client.Post(ctx, s.removeURL, removePayload{GuildID: guildID}, relay.WithSecret(s.secret))
	if err != nil {
		s.logger.WithField("guild", guildID).Errorf("guild remove: %v", err)
		return
	}
	if !result.OK() {
		s.logger.WithField("guild", guildID).Warnf("guild remove failed: status %d", result.StatusCode)
		return
	}
	s.logger.Infof("reported removal of guild %s", guildID)
}

// IncrementUsage records answered messages against a guild's quota. The
// outcome is observable only in the logs.
func (s *Syncer) IncrementUsage(ctx context.Context, guildID string, messages int) {
	if s.usageURL == "" || s.secret == "" {
		s.logger.Warn("missing SERVER_USAGE_INCREMENT_URL or DISCORD_BOT_SYNC_SECRET")
		return
	}

	result, err := s.client.Post(ctx, s.usageURL, usagePayload{GuildID: guildID, Messages: messages}, relay.WithSecret(s.secret))
	if err != nil {
		s.logger.WithField("guild", guildID).Errorf("usage increment: %v", err)
		return
	}
	s.logger.Infof("incremented guild %s by %d (status=%d)", guildID, messages, result.StatusCode)
}
