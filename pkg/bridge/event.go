package bridge

// InboundEvent is the platform-neutral view of a single chat message.
// The discord adapter builds one per gateway event; nothing in this
// package touches discordgo types directly.
type InboundEvent struct {
	AuthorID    string
	AuthorName  string
	Bot         bool
	Content     string
	ChannelID   string
	ChannelName string

	// GuildID is empty for direct messages. Consumers must treat an empty
	// guild as "skip guild-scoped side effects".
	GuildID string

	// Mentioned is true when the bot user appears in the message mentions.
	Mentioned bool

	// DM is true when the message arrived outside any guild.
	DM bool

	// ReferenceAuthorID is the author of the message this one replies to,
	// or empty when the message is not a reply.
	ReferenceAuthorID string
}

// WebhookPayload is the JSON body forwarded to the n8n message webhook.
type WebhookPayload struct {
	Content     string  `json:"content"`
	Author      string  `json:"author"`
	AuthorID    string  `json:"author_id"`
	ChannelID   string  `json:"channel_id"`
	ChannelName string  `json:"channel_name"`
	ServerID    *string `json:"server_id"`
}

func buildPayload(ev InboundEvent) WebhookPayload {
	p := WebhookPayload{
		Content:     ev.Content,
		Author:      ev.AuthorName,
		AuthorID:    ev.AuthorID,
		ChannelID:   ev.ChannelID,
		ChannelName: ev.ChannelName,
	}
	if ev.GuildID != "" {
		id := ev.GuildID
		p.ServerID = &id
	}
	return p
}
