// Package bridge relays inbound chat messages to an n8n webhook and sends
// the webhook's textual answer back into the originating channel.
//
// Each event is handled independently: filter, forward, reply, then a
// fire-and-forget usage increment for guild-scoped messages. Failures are
// logged and dropped; the chat user simply gets no reply.
package bridge

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gravilo/gravilo/pkg/relay"
)

const forwardTimeout = 30 * time.Second

// ChannelSender sends a plain text message into a chat channel. The
// discord adapter implements it over the live session.
type ChannelSender interface {
	SendMessage(channelID, content string) error
}

// UsageCounter records one answered message for a guild. Implementations
// must be safe to call from detached goroutines.
type UsageCounter interface {
	IncrementUsage(ctx context.Context, guildID string, messages int)
}

// Bridge is the per-process relay configuration. It holds no per-event
// state; handlers may run concurrently.
type Bridge struct {
	webhookURL string
	policy     Policy
	client     *relay.Client
	sender     ChannelSender
	usage      UsageCounter
	logger     *log.Entry
}

// New builds a Bridge. webhookURL may be empty, in which case every event
// is dropped with a warning instead of crashing (missing configuration
// degrades the feature, never the process).
func New(webhookURL string, policy Policy, sender ChannelSender, usage UsageCounter) *Bridge {
	return &Bridge{
		webhookURL: webhookURL,
		policy:     policy,
		client:     relay.NewClient(forwardTimeout),
		sender:     sender,
		usage:      usage,
		logger:     log.WithField("component", "bridge"),
	}
}

// HandleMessage processes one inbound event end to end. It never returns
// an error: every failure mode is logged here and the event is dropped.
func (b *Bridge) HandleMessage(ctx context.Context, ev InboundEvent) {
	if ev.Bot {
		return
	}

	if !b.policy.ShouldForward(ev) {
		return
	}

	b.logger.WithFields(log.Fields{
		"author":  ev.AuthorName,
		"channel": ev.ChannelName,
		"guild":   ev.GuildID,
	}).Infof("incoming message: %q", ev.Content)

	if b.webhookURL == "" {
		b.logger.Warn("N8N_WEBHOOK_URL missing; skipping")
		return
	}

	forwardCtx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()

	result, err := b.client.Post(forwardCtx, b.webhookURL, buildPayload(ev))
	if err != nil {
		b.logger.WithField("channel", ev.ChannelID).Errorf("failed to communicate with n8n: %v", err)
		return
	}

	if result.StatusCode != 200 {
		b.logger.Warnf("n8n returned %d: %s", result.StatusCode, result.Body)
		return
	}

	answer := strings.TrimSpace(result.Body)
	if answer != "" {
		if err := b.sender.SendMessage(ev.ChannelID, answer); err != nil {
			b.logger.WithField("channel", ev.ChannelID).Errorf("sending reply: %v", err)
			return
		}
	}

	// Metering must never delay the reply the user already received.
	if ev.GuildID != "" && b.usage != nil {
		guildID := ev.GuildID
		go b.usage.IncrementUsage(context.Background(), guildID, 1)
	}
}
