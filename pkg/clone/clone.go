// Package clone copies the structure of one guild into another: roles,
// then categories, then channels, with permission overwrites remapped
// through the role translation table built in the first phase.
//
// Every per-item failure is logged and skipped; a phase always runs to
// completion over the remaining items.
package clone

import (
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Kind classifies a guild channel for clone dispatch.
type Kind string

const (
	KindText     Kind = "text"
	KindVoice    Kind = "voice"
	KindForum    Kind = "forum"
	KindCategory Kind = "category"
	KindUnknown  Kind = "unknown"
)

// Role is the clonable subset of a guild role.
type Role struct {
	ID          string
	Name        string
	Color       int
	Hoist       bool
	Permissions int64
	Mentionable bool
	Position    int
	Managed     bool
}

// Overwrite is a role-scoped permission overwrite on a channel or
// category. Member-scoped overwrites are not cloned; member IDs have no
// meaning in the target guild.
type Overwrite struct {
	RoleID string
	Allow  int64
	Deny   int64
}

// Channel is the clonable subset of a guild channel.
type Channel struct {
	ID         string
	Name       string
	Kind       Kind
	Position   int
	Topic      string
	NSFW       bool
	SlowMode   int
	Bitrate    int
	UserLimit  int
	ParentID   string
	Overwrites []Overwrite
}

// GuildEditor is the capability surface the cloner needs from the
// platform. The discord adapter implements it; tests use a fake.
type GuildEditor interface {
	GuildName(guildID string) (string, error)
	Roles(guildID string) ([]Role, error)
	CreateRole(guildID string, r Role) (string, error)
	DeleteRole(guildID, roleID string) error
	Channels(guildID string) ([]Channel, error)
	CreateChannel(guildID string, ch Channel) (string, error)
	DeleteChannel(channelID string) error

	// BotRoleIDs lists the roles held by the bot itself in the guild;
	// deleting those would cut off the bot's own permissions mid-clone.
	BotRoleIDs(guildID string) (map[string]bool, error)
}

// Summary counts what a clone run created.
type Summary struct {
	Roles      int
	Categories int
	Channels   int
}

// Cloner performs a one-shot structure copy between two guilds.
type Cloner struct {
	editor GuildEditor
	logger *log.Entry

	roleMap     map[string]string
	categoryMap map[string]string
}

func NewCloner(editor GuildEditor) *Cloner {
	return &Cloner{
		editor:      editor,
		logger:      log.WithField("component", "clone"),
		roleMap:     make(map[string]string),
		categoryMap: make(map[string]string),
	}
}

// Run clones sourceID into targetID and returns the created-item counts.
// It fails outright only when either guild is unreachable; everything
// past that point is per-item best effort.
func (c *Cloner) Run(sourceID, targetID string) (*Summary, error) {
	sourceName, err := c.editor.GuildName(sourceID)
	if err != nil {
		return nil, errors.Wrapf(err, "bot is not in source server %s", sourceID)
	}
	targetName, err := c.editor.GuildName(targetID)
	if err != nil {
		return nil, errors.Wrapf(err, "bot is not in target server %s", targetID)
	}

	c.logger.Infof("starting server clone: %s (%s) -> %s (%s)", sourceName, sourceID, targetName, targetID)

	summary := &Summary{}
	summary.Roles = c.cloneRoles(sourceID, targetID)
	summary.Categories = c.cloneCategories(sourceID, targetID)
	summary.Channels = c.cloneChannels(sourceID, targetID)

	c.logger.Infof("clone complete: %d roles, %d categories, %d channels",
		summary.Roles, summary.Categories, summary.Channels)
	return summary, nil
}

// cloneRoles clears the target's roles and recreates the source's,
// highest position first so the hierarchy comes out in source order.
// The @everyone role (ID equal to the guild ID) is never deleted or
// recreated; it exists as an identity in both guilds.
func (c *Cloner) cloneRoles(sourceID, targetID string) int {
	botRoles, err := c.editor.BotRoleIDs(targetID)
	if err != nil {
		c.logger.Warnf("could not resolve bot roles in target: %v", err)
		botRoles = map[string]bool{}
	}

	if targetRoles, err := c.editor.Roles(targetID); err != nil {
		c.logger.Warnf("could not list target roles: %v", err)
	} else {
		for _, r := range targetRoles {
			if r.ID == targetID || botRoles[r.ID] || r.Managed {
				continue
			}
			if err := c.editor.DeleteRole(targetID, r.ID); err != nil {
				c.logger.Warnf("could not delete role %s: %v", r.Name, err)
				continue
			}
			c.logger.Infof("deleted existing role: %s", r.Name)
		}
	}

	sourceRoles, err := c.editor.Roles(sourceID)
	if err != nil {
		c.logger.Errorf("could not list source roles: %v", err)
		return 0
	}
	sort.Slice(sourceRoles, func(i, j int) bool {
		return sourceRoles[i].Position > sourceRoles[j].Position
	})

	for _, r := range sourceRoles {
		if r.ID == sourceID {
			continue
		}
		newID, err := c.editor.CreateRole(targetID, r)
		if err != nil {
			c.logger.Errorf("failed to create role %s: %v", r.Name, err)
			continue
		}
		c.roleMap[r.ID] = newID
		c.logger.Infof("created role: %s", r.Name)
	}

	return len(c.roleMap)
}

// cloneCategories recreates the source's categories in position order and
// records the old-to-new ID mapping used for channel parenting.
func (c *Cloner) cloneCategories(sourceID, targetID string) int {
	sourceChannels, err := c.editor.Channels(sourceID)
	if err != nil {
		c.logger.Errorf("could not list source channels: %v", err)
		return 0
	}

	categories := filterByKind(sourceChannels, func(k Kind) bool { return k == KindCategory })
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Position < categories[j].Position
	})

	for _, cat := range categories {
		create := cat
		create.Overwrites = c.remapOverwrites(cat.Overwrites, sourceID, targetID)
		create.ParentID = ""

		newID, err := c.editor.CreateChannel(targetID, create)
		if err != nil {
			c.logger.Errorf("failed to create category %s: %v", cat.Name, err)
			continue
		}
		c.categoryMap[cat.ID] = newID
		c.logger.Infof("created category: %s", cat.Name)
	}

	return len(c.categoryMap)
}

// cloneChannels deletes the target's non-category channels, then
// recreates the source's in position order with remapped overwrites and
// parents.
func (c *Cloner) cloneChannels(sourceID, targetID string) int {
	if targetChannels, err := c.editor.Channels(targetID); err != nil {
		c.logger.Warnf("could not list target channels: %v", err)
	} else {
		for _, ch := range targetChannels {
			if ch.Kind == KindCategory {
				continue
			}
			if err := c.editor.DeleteChannel(ch.ID); err != nil {
				c.logger.Warnf("could not delete channel %s: %v", ch.Name, err)
				continue
			}
			c.logger.Infof("deleted existing channel: %s", ch.Name)
		}
	}

	sourceChannels, err := c.editor.Channels(sourceID)
	if err != nil {
		c.logger.Errorf("could not list source channels: %v", err)
		return 0
	}

	channels := filterByKind(sourceChannels, func(k Kind) bool { return k != KindCategory })
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].Position < channels[j].Position
	})

	created := 0
	for _, ch := range channels {
		switch ch.Kind {
		case KindText, KindVoice, KindForum:
		default:
			c.logger.Warnf("skipping unknown channel type: %s", ch.Name)
			continue
		}

		create := ch
		create.Overwrites = c.remapOverwrites(ch.Overwrites, sourceID, targetID)
		create.ParentID = c.categoryMap[ch.ParentID]

		if _, err := c.editor.CreateChannel(targetID, create); err != nil {
			c.logger.Errorf("failed to create channel %s: %v", ch.Name, err)
			continue
		}
		created++
		c.logger.Infof("created %s channel: %s", ch.Kind, ch.Name)
	}

	return created
}

// remapOverwrites translates role-scoped overwrites into the target
// guild's role IDs. The source's @everyone maps onto the target's;
// overwrites for roles that failed to clone are dropped.
func (c *Cloner) remapOverwrites(overwrites []Overwrite, sourceID, targetID string) []Overwrite {
	out := make([]Overwrite, 0, len(overwrites))
	for _, ow := range overwrites {
		mapped := ow
		switch {
		case ow.RoleID == sourceID:
			mapped.RoleID = targetID
		default:
			newID, ok := c.roleMap[ow.RoleID]
			if !ok {
				continue
			}
			mapped.RoleID = newID
		}
		out = append(out, mapped)
	}
	return out
}

func filterByKind(channels []Channel, keep func(Kind) bool) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if keep(ch.Kind) {
			out = append(out, ch)
		}
	}
	return out
}
