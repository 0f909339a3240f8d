package discord

import "github.com/bwmarrin/discordgo"

const (
	cmdSetSubreddit    = "setsubreddit"
	cmdRemoveSubreddit = "removesubreddit"
	cmdListMappings    = "listmappings"
	cmdSetInterval     = "setinterval"
	cmdSetPosts        = "setposts"
	cmdShowPosts       = "showposts"
	cmdForceSend       = "forcesend"

	optSubreddit = "subreddit"
	optChannel   = "channel"
	optMinutes   = "minutes"
	optCount     = "count"
)

// restricted lists the commands that require the admin gate.
var restricted = map[string]bool{
	cmdSetSubreddit:    true,
	cmdRemoveSubreddit: true,
	cmdSetInterval:     true,
	cmdSetPosts:        true,
	cmdForceSend:       true,
}

// Commands returns the slash command definitions.
func Commands() []*discordgo.ApplicationCommand {
	adminPerm := int64(discordgo.PermissionAdministrator)
	minOne := 1.0

	subreddit := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optSubreddit,
		Description: "Subreddit name (without r/)",
		Required:    true,
	}
	channel := &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         optChannel,
		Description:  "Channel to post in",
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		Required:     true,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:                     cmdSetSubreddit,
			Description:              "Map a subreddit to a channel.",
			DefaultMemberPermissions: &adminPerm,
			Options:                  []*discordgo.ApplicationCommandOption{subreddit, channel},
		},
		{
			Name:                     cmdRemoveSubreddit,
			Description:              "Remove a subreddit to channel mapping.",
			DefaultMemberPermissions: &adminPerm,
			Options:                  []*discordgo.ApplicationCommandOption{subreddit},
		},
		{
			Name:        cmdListMappings,
			Description: "List all subreddit to channel mappings.",
		},
		{
			Name:                     cmdSetInterval,
			Description:              "Set the fetch interval in minutes.",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        optMinutes,
				Description: "Interval in minutes (min 1)",
				MinValue:    &minOne,
				Required:    true,
			}},
		},
		{
			Name:                     cmdSetPosts,
			Description:              "Set how many posts per channel per interval.",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        optCount,
				Description: "Number of posts per channel per interval (min 1, max 10)",
				MinValue:    &minOne,
				MaxValue:    10,
				Required:    true,
			}},
		},
		{
			Name:        cmdShowPosts,
			Description: "Show how many posts per channel per interval.",
		},
		{
			Name:                     cmdForceSend,
			Description:              "Force send the latest media from a subreddit to a channel.",
			DefaultMemberPermissions: &adminPerm,
			Options:                  []*discordgo.ApplicationCommandOption{subreddit, channel},
		},
	}
}
