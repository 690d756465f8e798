package discord

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"github.com/gravilo/gravilo/pkg/indexer"
)

// discordEpoch is the millisecond offset snowflake timestamps count from.
const discordEpoch = 1420070400000

const historyPageSize = 100

// ReadableTextChannels implements indexer.Source. It lists channels over
// REST so it works immediately after Open, before any gateway cache has
// warmed up.
func (b *Bot) ReadableTextChannels() ([]indexer.Channel, error) {
	userGuilds, err := b.session.UserGuilds(200, "", "", false)
	if err != nil {
		return nil, errors.Wrap(err, "listing guilds")
	}

	var out []indexer.Channel
	for _, ug := range userGuilds {
		channels, err := b.session.GuildChannels(ug.ID)
		if err != nil {
			b.logger.WithField("guild", ug.ID).Errorf("listing channels: %v", err)
			continue
		}
		for _, ch := range channels {
			if ch.Type != discordgo.ChannelTypeGuildText {
				continue
			}
			perms, err := b.session.UserChannelPermissions(b.selfID, ch.ID)
			if err != nil || perms&discordgo.PermissionReadMessageHistory == 0 {
				continue
			}
			out = append(out, indexer.Channel{
				ID:      ch.ID,
				Name:    ch.Name,
				GuildID: ug.ID,
			})
		}
	}
	return out, nil
}

// WalkMessagesAfter implements indexer.Source, paging forward from the
// cutoff snowflake until the history is exhausted.
func (b *Bot) WalkMessagesAfter(ctx context.Context, channelID string, after time.Time, fn func(indexer.Message) error) error {
	afterID := snowflakeForTime(after)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := b.session.ChannelMessages(channelID, historyPageSize, "", afterID, "")
		if err != nil {
			return errors.Wrapf(err, "fetching history for channel %s", channelID)
		}
		if len(page) == 0 {
			return nil
		}

		// The API does not promise an ordering for "after" queries, so
		// walk each page oldest first by snowflake.
		sort.Slice(page, func(i, j int) bool {
			return snowflakeLess(page[i].ID, page[j].ID)
		})

		for _, m := range page {
			if m.Author == nil {
				continue
			}
			if err := fn(indexer.Message{
				ID:         m.ID,
				Content:    m.Content,
				AuthorName: m.Author.Username,
				AuthorID:   m.Author.ID,
				Bot:        m.Author.Bot,
				Timestamp:  m.Timestamp,
			}); err != nil {
				return err
			}
		}

		afterID = page[len(page)-1].ID
	}
}

// snowflakeForTime builds the smallest snowflake at or after t.
func snowflakeForTime(t time.Time) string {
	ms := t.UnixMilli() - discordEpoch
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatUint(uint64(ms)<<22, 10)
}

func snowflakeLess(a, b string) bool {
	ai, _ := strconv.ParseUint(a, 10, 64)
	bi, _ := strconv.ParseUint(b, 10, 64)
	return ai < bi
}
