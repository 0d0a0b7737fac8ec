package bot

import "github.com/bwmarrin/discordgo"

func adminOnly() *int64 {
	perms := int64(discordgo.PermissionAdministrator)
	return &perms
}

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "rank",
			Description: "Show a member's level and experience",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "member to inspect, defaults to you",
					Required:    false,
				},
			},
		},
		{
			Name:        "leaderboard",
			Description: "Show the guild experience leaderboard",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "page",
					Description: "page number, starting at 1",
					Required:    false,
				},
			},
		},
		{
			Name:                     "xpconfig",
			Description:              "View or change experience settings",
			DefaultMemberPermissions: adminOnly(),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "view or set",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "view", Value: "view"},
						{Name: "set", Value: "set"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "min_xp",
					Description: "minimum XP per message",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "max_xp",
					Description: "maximum XP per message",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "xp_per_level",
					Description: "XP required per level step",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "cooldown",
					Description: "seconds between awards",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "vip_cooldown",
					Description: "seconds between awards for VIPs",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "vip_multiplier",
					Description: "XP multiplier for VIPs",
					Required:    false,
				},
			},
		},
		{
			Name:                     "vip",
			Description:              "Manage VIP memberships",
			DefaultMemberPermissions: adminOnly(),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "grant, revoke, status, or list",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "grant", Value: "grant"},
						{Name: "revoke", Value: "revoke"},
						{Name: "status", Value: "status"},
						{Name: "list", Value: "list"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "target member",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "days",
					Description: "duration in days for grant",
					Required:    false,
				},
			},
		},
		{
			Name:                     "viprole",
			Description:              "Set the role attached to VIP members",
			DefaultMemberPermissions: adminOnly(),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "role to attach on grant",
					Required:    true,
				},
			},
		},
		{
			Name:        "daily",
			Description: "Claim your daily coins",
		},
		{
			Name:        "balance",
			Description: "Show a member's wallet",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "member to inspect, defaults to you",
					Required:    false,
				},
			},
		},
	}

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}

	return nil
}
