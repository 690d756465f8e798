// Package discord is the translation layer between discordgo and the
// rest of the bot. All discordgo types stay inside this package; the
// bridge, syncer, indexer, and cloner see only their own shapes, which
// confines client-library version drift to one place.
package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gravilo/gravilo/pkg/bridge"
	"github.com/gravilo/gravilo/pkg/guildsync"
)

// Bot owns the Discord session and routes gateway events into the
// attached components.
type Bot struct {
	session *discordgo.Session
	logger  *log.Entry

	bridge *bridge.Bridge
	syncer *guildsync.Syncer

	selfID string

	mu    sync.Mutex
	known map[string]bool
}

// NewBot creates the session without opening it. REST-only callers (the
// clone utility) never open the gateway at all.
func NewBot(token string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "creating discord session")
	}

	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	return &Bot{
		session: session,
		logger:  log.WithField("component", "discord"),
		known:   make(map[string]bool),
	}, nil
}

// AttachBridge wires the message bridge. Must be called before Open.
func (b *Bot) AttachBridge(br *bridge.Bridge) { b.bridge = br }

// AttachSyncer wires the guild syncer. Must be called before Open.
func (b *Bot) AttachSyncer(s *guildsync.Syncer) { b.syncer = s }

// Login resolves the bot's own user over REST. It does not open the
// gateway, so callers can build selfID-dependent components before any
// event can arrive.
func (b *Bot) Login() error {
	botUser, err := b.session.User("@me")
	if err != nil {
		return errors.Wrap(err, "resolving bot user")
	}
	b.selfID = botUser.ID

	b.logger.Infof("logged in as %s (%s)", botUser.Username, botUser.ID)
	return nil
}

// Open registers the event handlers and connects to the gateway.
// Components must be attached before calling it.
func (b *Bot) Open() error {
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onGuildDelete)

	if err := b.session.Open(); err != nil {
		return errors.Wrap(err, "opening discord session")
	}
	return nil
}

// Close shuts the gateway connection down.
func (b *Bot) Close() error {
	return b.session.Close()
}

// SelfID returns the bot's own user ID. Valid after Login.
func (b *Bot) SelfID() string { return b.selfID }

// SendMessage implements bridge.ChannelSender.
func (b *Bot) SendMessage(channelID, content string) error {
	_, err := b.session.ChannelMessageSend(channelID, content)
	return errors.Wrapf(err, "sending message to channel %s", channelID)
}

// markKnown records a guild ID and reports whether it was new. Both the
// startup backfill and the GuildCreate handler funnel through this so a
// guild is synced exactly once at startup no matter which path sees it
// first.
func (b *Bot) markKnown(guildID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.known[guildID] {
		return false
	}
	b.known[guildID] = true
	return true
}

func (b *Bot) forgetKnown(guildID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.known, guildID)
}

// Backfill fans out one detached guild sync per already-joined guild.
// It lists guilds over REST so it does not depend on gateway cache
// warm-up timing.
func (b *Bot) Backfill(ctx context.Context) {
	if b.syncer == nil {
		return
	}

	userGuilds, err := b.session.UserGuilds(200, "", "", false)
	if err != nil {
		b.logger.Errorf("listing guilds for backfill: %v", err)
		return
	}

	infos := make([]guildsync.GuildInfo, 0, len(userGuilds))
	for _, ug := range userGuilds {
		if !b.markKnown(ug.ID) {
			continue
		}
		g, err := b.session.Guild(ug.ID)
		if err != nil {
			b.logger.WithField("guild", ug.ID).Errorf("fetching guild for backfill: %v", err)
			continue
		}
		infos = append(infos, adaptGuild(g))
	}

	b.syncer.Backfill(ctx, infos)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if b.bridge == nil || m == nil || m.Author == nil {
		return
	}
	if m.Author.ID == b.selfID {
		return
	}

	b.bridge.HandleMessage(context.Background(), b.adaptMessage(m))
}

func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if b.syncer == nil || g == nil || g.Guild == nil {
		return
	}
	if !b.markKnown(g.ID) {
		return
	}

	b.logger.Infof("guild connected: %s (%s)", g.Name, g.ID)
	info := adaptGuild(g.Guild)
	go b.syncer.Sync(context.Background(), info)
}

func (b *Bot) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	if b.syncer == nil || g == nil || g.Guild == nil {
		return
	}
	// Unavailable means an outage, not a removal.
	if g.Unavailable {
		return
	}

	b.forgetKnown(g.ID)
	b.logger.Infof("removed from guild %s", g.ID)

	guildID := g.ID
	go b.syncer.Remove(context.Background(), guildID)
}
