package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/gravilo/gravilo/pkg/bridge"
	"github.com/gravilo/gravilo/pkg/guildsync"
)

// adaptMessage maps a gateway message event into the platform-neutral
// inbound shape consumed by the bridge.
func (b *Bot) adaptMessage(m *discordgo.MessageCreate) bridge.InboundEvent {
	ev := bridge.InboundEvent{
		AuthorID:    m.Author.ID,
		AuthorName:  m.Author.Username,
		Bot:         m.Author.Bot,
		Content:     m.Content,
		ChannelID:   m.ChannelID,
		GuildID:     m.GuildID,
		DM:          m.GuildID == "",
		ChannelName: b.channelName(m.ChannelID, m.GuildID),
	}

	for _, u := range m.Mentions {
		if u != nil && u.ID == b.selfID {
			ev.Mentioned = true
			break
		}
	}

	if ref := m.ReferencedMessage; ref != nil && ref.Author != nil {
		ev.ReferenceAuthorID = ref.Author.ID
	}

	return ev
}

// channelName resolves a channel's display name, preferring the session
// state cache. Direct messages have no name and report "DM".
func (b *Bot) channelName(channelID, guildID string) string {
	if guildID == "" {
		return "DM"
	}
	if ch, err := b.session.State.Channel(channelID); err == nil {
		return ch.Name
	}
	ch, err := b.session.Channel(channelID)
	if err != nil {
		return ""
	}
	return ch.Name
}

func adaptGuild(g *discordgo.Guild) guildsync.GuildInfo {
	return guildsync.GuildInfo{
		ID:      g.ID,
		Name:    g.Name,
		OwnerID: g.OwnerID,
		IconURL: g.IconURL(""),
	}
}
