// Package indexer walks recent channel history and ships it to the n8n
// ingestion webhook in fixed-size batches. It is a one-shot batch job:
// run once, index everything readable, exit.
package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gravilo/gravilo/pkg/relay"
)

const (
	// BatchSize is the number of messages per ingestion request.
	BatchSize = 50

	ingestTimeout = 30 * time.Second
)

// Channel is a text channel the indexer can read history in.
type Channel struct {
	ID      string
	Name    string
	GuildID string
}

// Message is one historical chat message, adapter-normalized.
type Message struct {
	ID         string
	Content    string
	AuthorName string
	AuthorID   string
	Bot        bool
	Timestamp  time.Time
}

// Source provides channel listings and history walks. The discord adapter
// implements it; tests use an in-memory fake.
type Source interface {
	// ReadableTextChannels lists every text channel the bot may read
	// history in, across all joined guilds.
	ReadableTextChannels() ([]Channel, error)

	// WalkMessagesAfter streams messages newer than the cutoff, oldest
	// first, invoking fn for each one.
	WalkMessagesAfter(ctx context.Context, channelID string, after time.Time, fn func(Message) error) error
}

type messageMetadata struct {
	Source    string `json:"source"`
	Author    string `json:"author"`
	AuthorID  string `json:"author_id"`
	Channel   string `json:"channel"`
	ChannelID string `json:"channel_id"`
	ServerID  string `json:"server_id"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
}

type indexedMessage struct {
	Content  string          `json:"content"`
	Metadata messageMetadata `json:"metadata"`
}

type batchPayload struct {
	ServerID string           `json:"server_id"`
	Messages []indexedMessage `json:"messages"`
}

// Indexer runs one full indexing pass over readable history.
type Indexer struct {
	source    Source
	ingestURL string
	days      int
	client    *relay.Client
	logger    *log.Entry
}

// New builds an Indexer reading back the given number of days. An empty
// ingestURL turns every batch send into a dry-run log line.
func New(source Source, ingestURL string, days int) *Indexer {
	if days <= 0 {
		days = 30
	}
	return &Indexer{
		source:    source,
		ingestURL: ingestURL,
		days:      days,
		client:    relay.NewClient(ingestTimeout),
		logger:    log.WithField("component", "indexer"),
	}
}

// Run indexes every readable channel once. Per-channel failures are
// logged and do not abort the remaining channels; only a failure to list
// channels at all is returned.
func (ix *Indexer) Run(ctx context.Context) error {
	channels, err := ix.source.ReadableTextChannels()
	if err != nil {
		return err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -ix.days)
	ix.logger.Infof("starting index of last %d days across %d channel(s)", ix.days, len(channels))

	for _, ch := range channels {
		if err := ix.processChannel(ctx, ch, cutoff); err != nil {
			ix.logger.WithField("channel", ch.Name).Errorf("indexing failed: %v", err)
		}
	}

	ix.logger.Info("indexing complete")
	return nil
}

func (ix *Indexer) processChannel(ctx context.Context, ch Channel, cutoff time.Time) error {
	ix.logger.Infof("indexing channel #%s (%s)", ch.Name, ch.ID)

	batch := make([]indexedMessage, 0, BatchSize)
	count := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := ix.sendBatch(ctx, ch.GuildID, batch)
		batch = batch[:0]
		return err
	}

	err := ix.source.WalkMessagesAfter(ctx, ch.ID, cutoff, func(m Message) error {
		if m.Bot {
			return nil
		}
		if strings.TrimSpace(m.Content) == "" {
			return nil
		}

		batch = append(batch, indexedMessage{
			Content: m.Content,
			Metadata: messageMetadata{
				Source:    "discord",
				Author:    m.AuthorName,
				AuthorID:  m.AuthorID,
				Channel:   ch.Name,
				ChannelID: ch.ID,
				ServerID:  ch.GuildID,
				Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
				URL:       messageURL(ch.GuildID, ch.ID, m.ID),
			},
		})
		count++

		if len(batch) >= BatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := flush(); err != nil {
		return err
	}

	ix.logger.Infof("indexed %d message(s) from #%s", count, ch.Name)
	return nil
}

func (ix *Indexer) sendBatch(ctx context.Context, serverID string, batch []indexedMessage) error {
	if ix.ingestURL == "" {
		ix.logger.Infof("[dry run] batch of %d ready (N8N_INGEST_WEBHOOK_URL not set)", len(batch))
		return nil
	}

	payload := batchPayload{ServerID: serverID, Messages: append([]indexedMessage(nil), batch...)}

	result, err := ix.client.Post(ctx, ix.ingestURL, payload)
	if err != nil {
		return err
	}
	if result.StatusCode != 200 {
		ix.logger.Warnf("failed to send batch: %d %s", result.StatusCode, result.Body)
	}
	return nil
}

func messageURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}
