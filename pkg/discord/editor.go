package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"github.com/gravilo/gravilo/pkg/clone"
)

// The GuildEditor implementation is REST-only: the clone utility never
// opens the gateway.

// GuildName implements clone.GuildEditor. A failed fetch doubles as the
// membership check.
func (b *Bot) GuildName(guildID string) (string, error) {
	g, err := b.session.Guild(guildID)
	if err != nil {
		return "", errors.Wrapf(err, "fetching guild %s", guildID)
	}
	return g.Name, nil
}

// Roles implements clone.GuildEditor.
func (b *Bot) Roles(guildID string) ([]clone.Role, error) {
	roles, err := b.session.GuildRoles(guildID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing roles in guild %s", guildID)
	}

	out := make([]clone.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, clone.Role{
			ID:          r.ID,
			Name:        r.Name,
			Color:       r.Color,
			Hoist:       r.Hoist,
			Permissions: r.Permissions,
			Mentionable: r.Mentionable,
			Position:    r.Position,
			Managed:     r.Managed,
		})
	}
	return out, nil
}

// CreateRole implements clone.GuildEditor. Roles are stacked in creation
// order, so the caller creates highest-position roles first.
func (b *Bot) CreateRole(guildID string, r clone.Role) (string, error) {
	color := r.Color
	hoist := r.Hoist
	perms := r.Permissions
	mentionable := r.Mentionable

	created, err := b.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        r.Name,
		Color:       &color,
		Hoist:       &hoist,
		Permissions: &perms,
		Mentionable: &mentionable,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// DeleteRole implements clone.GuildEditor.
func (b *Bot) DeleteRole(guildID, roleID string) error {
	return b.session.GuildRoleDelete(guildID, roleID)
}

// Channels implements clone.GuildEditor. Member-scoped permission
// overwrites are dropped here; member IDs do not translate between
// guilds.
func (b *Bot) Channels(guildID string) ([]clone.Channel, error) {
	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing channels in guild %s", guildID)
	}

	out := make([]clone.Channel, 0, len(channels))
	for _, ch := range channels {
		overwrites := make([]clone.Overwrite, 0, len(ch.PermissionOverwrites))
		for _, ow := range ch.PermissionOverwrites {
			if ow.Type != discordgo.PermissionOverwriteTypeRole {
				continue
			}
			overwrites = append(overwrites, clone.Overwrite{
				RoleID: ow.ID,
				Allow:  ow.Allow,
				Deny:   ow.Deny,
			})
		}

		out = append(out, clone.Channel{
			ID:         ch.ID,
			Name:       ch.Name,
			Kind:       kindOf(ch.Type),
			Position:   ch.Position,
			Topic:      ch.Topic,
			NSFW:       ch.NSFW,
			SlowMode:   ch.RateLimitPerUser,
			Bitrate:    ch.Bitrate,
			UserLimit:  ch.UserLimit,
			ParentID:   ch.ParentID,
			Overwrites: overwrites,
		})
	}
	return out, nil
}

// CreateChannel implements clone.GuildEditor. The channel's ParentID and
// Overwrites must already be expressed in target-guild IDs.
func (b *Bot) CreateChannel(guildID string, ch clone.Channel) (string, error) {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(ch.Overwrites))
	for _, ow := range ch.Overwrites {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    ow.RoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: ow.Allow,
			Deny:  ow.Deny,
		})
	}

	created, err := b.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 ch.Name,
		Type:                 channelTypeOf(ch.Kind),
		Topic:                ch.Topic,
		Bitrate:              ch.Bitrate,
		UserLimit:            ch.UserLimit,
		RateLimitPerUser:     ch.SlowMode,
		Position:             ch.Position,
		PermissionOverwrites: overwrites,
		ParentID:             ch.ParentID,
		NSFW:                 ch.NSFW,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// DeleteChannel implements clone.GuildEditor.
func (b *Bot) DeleteChannel(channelID string) error {
	_, err := b.session.ChannelDelete(channelID)
	return err
}

// BotRoleIDs implements clone.GuildEditor.
func (b *Bot) BotRoleIDs(guildID string) (map[string]bool, error) {
	self, err := b.session.User("@me")
	if err != nil {
		return nil, errors.Wrap(err, "resolving bot user")
	}
	member, err := b.session.GuildMember(guildID, self.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching bot member in guild %s", guildID)
	}

	out := make(map[string]bool, len(member.Roles))
	for _, id := range member.Roles {
		out[id] = true
	}
	return out, nil
}

func kindOf(t discordgo.ChannelType) clone.Kind {
	switch t {
	case discordgo.ChannelTypeGuildText:
		return clone.KindText
	case discordgo.ChannelTypeGuildVoice:
		return clone.KindVoice
	case discordgo.ChannelTypeGuildForum:
		return clone.KindForum
	case discordgo.ChannelTypeGuildCategory:
		return clone.KindCategory
	default:
		return clone.KindUnknown
	}
}

func channelTypeOf(k clone.Kind) discordgo.ChannelType {
	switch k {
	case clone.KindVoice:
		return discordgo.ChannelTypeGuildVoice
	case clone.KindForum:
		return discordgo.ChannelTypeGuildForum
	case clone.KindCategory:
		return discordgo.ChannelTypeGuildCategory
	default:
		return discordgo.ChannelTypeGuildText
	}
}
