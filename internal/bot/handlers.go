package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lumina-community/internal/guildconfig"
	"lumina-community/internal/leveling"
	"lumina-community/internal/storage"
	"lumina-community/internal/vip"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const leaderboardPageSize = 10

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Error", "This command only works inside a server.", colorError, nil), true)
		return
	}

	ctx, cancel := b.storageContext()
	defer cancel()

	data := interaction.ApplicationCommandData()
	switch data.Name {
	case "rank":
		b.handleRank(ctx, session, interaction, data.Options)
	case "leaderboard":
		b.handleLeaderboard(ctx, session, interaction, data.Options)
	case "xpconfig":
		b.handleXPConfig(ctx, session, interaction, data.Options)
	case "vip":
		b.handleVIP(ctx, session, interaction, data.Options)
	case "viprole":
		b.handleVIPRole(ctx, session, interaction, data.Options)
	case "daily":
		b.handleDaily(ctx, session, interaction)
	case "balance":
		b.handleBalance(ctx, session, interaction, data.Options)
	}
}

// invokerID prefers the guild member, falling back to the bare user for the
// rare interaction without member data.
func invokerID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}

func optionUser(session *discordgo.Session, options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionUser {
			if user := opt.UserValue(session); user != nil {
				return user.ID
			}
		}
	}
	return ""
}

func (b *Bot) handleRank(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	userID := optionUser(session, options, "user")
	if userID == "" {
		userID = invokerID(interaction)
	}
	if userID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Rank", "Could not resolve the target user.", colorError, nil), true)
		return
	}

	rec, err := b.store.GetUserExperience(ctx, interaction.GuildID, userID)
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Rank", "Experience data is unavailable right now.", colorError, nil), true)
		return
	}

	cfg, err := b.guildCfg.Get(ctx, interaction.GuildID)
	if err != nil {
		cfg = b.guildCfg.Defaults(interaction.GuildID)
	}

	next := leveling.XPForLevel(rec.Level+1, cfg.XPPerLevel)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Level", Value: fmt.Sprintf("%d", rec.Level), Inline: true},
		{Name: "XP", Value: fmt.Sprintf("%d / %d", rec.XP, next), Inline: true},
		{Name: "Messages", Value: fmt.Sprintf("%d", rec.MessageCount), Inline: true},
	}
	if isVIP, err := b.vip.IsVIP(ctx, interaction.GuildID, userID); err == nil && isVIP {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "VIP", Value: "active", Inline: true})
	}
	fields = append(fields, &discordgo.MessageEmbedField{
		Name:   "Progress",
		Value:  progressBar(rec.XP, rec.Level, cfg.XPPerLevel),
		Inline: false,
	})
	b.respondEmbed(session, interaction, b.commandEmbed("Rank", fmt.Sprintf("Progress for <@%s>", userID), colorInfo, fields), false)
}

// progressBar renders progress through the current level as a 20-cell bar
// with a percentage, bounded by the level thresholds on the curve.
func progressBar(xp, level, xpPerLevel int) string {
	const barLength = 20

	current := leveling.XPForLevel(level, xpPerLevel)
	next := leveling.XPForLevel(level+1, xpPerLevel)

	progress := 0.0
	if next > current {
		progress = float64(xp-current) / float64(next-current)
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	filled := int(barLength * progress)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barLength-filled)
	return fmt.Sprintf("`%s` %.1f%%", bar, progress*100)
}

func (b *Bot) handleLeaderboard(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	page := 1
	for _, opt := range options {
		if opt.Name == "page" && opt.Type == discordgo.ApplicationCommandOptionInteger {
			page = int(opt.IntValue())
		}
	}
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * leaderboardPageSize
	entries, err := b.store.TopUserExperience(ctx, interaction.GuildID, leaderboardPageSize, offset)
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Leaderboard", "Experience data is unavailable right now.", colorError, nil), true)
		return
	}
	if len(entries) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed("Leaderboard", "Nothing here yet.", colorInfo, nil), true)
		return
	}

	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		lines = append(lines, fmt.Sprintf("**%d.** <@%s> — level %d (%d XP)", offset+i+1, entry.UserID, entry.Level, entry.XP))
	}
	title := fmt.Sprintf("Leaderboard — page %d", page)
	b.respondEmbed(session, interaction, b.commandEmbed(title, strings.Join(lines, "\n"), colorInfo, nil), false)
}

func (b *Bot) handleXPConfig(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed("XP Settings", "Missing action.", colorError, nil), true)
		return
	}
	action := options[0].StringValue()

	if action == "view" {
		cfg, err := b.guildCfg.Get(ctx, interaction.GuildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.commandEmbed("XP Settings", "Settings are unavailable right now.", colorError, nil), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("XP Settings", "Current experience settings.", colorInfo, xpConfigFields(cfg)), true)
		return
	}

	if action != "set" {
		b.respondEmbed(session, interaction, b.commandEmbed("XP Settings", "Unknown action.", colorError, nil), true)
		return
	}

	var update guildconfig.Update
	for _, opt := range options[1:] {
		switch opt.Name {
		case "min_xp":
			v := int(opt.IntValue())
			update.BaseXP = &v
		case "max_xp":
			v := int(opt.IntValue())
			update.MaxXP = &v
		case "xp_per_level":
			v := int(opt.IntValue())
			update.XPPerLevel = &v
		case "cooldown":
			v := int(opt.IntValue())
			update.CooldownSeconds = &v
		case "vip_cooldown":
			v := int(opt.IntValue())
			update.VIPCooldownSeconds = &v
		case "vip_multiplier":
			v := opt.FloatValue()
			update.VIPMultiplier = &v
		}
	}

	cfg, err := b.guildCfg.Apply(ctx, interaction.GuildID, update)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			b.respondEmbed(session, interaction, b.commandEmbed("XP Settings", "Settings are unavailable right now.", colorError, nil), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("XP Settings", err.Error(), colorError, nil), true)
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("XP Settings", "Settings updated.", colorInfo, xpConfigFields(cfg)), true)
}

func xpConfigFields(cfg storage.GuildXPConfig) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		{Name: "XP per message", Value: fmt.Sprintf("%d-%d", cfg.BaseXP, cfg.MaxXP), Inline: true},
		{Name: "XP per level", Value: fmt.Sprintf("%d", cfg.XPPerLevel), Inline: true},
		{Name: "Cooldown", Value: fmt.Sprintf("%ds", cfg.CooldownSeconds), Inline: true},
		{Name: "VIP cooldown", Value: fmt.Sprintf("%ds", cfg.VIPCooldownSeconds), Inline: true},
		{Name: "VIP multiplier", Value: fmt.Sprintf("%.1fx", cfg.VIPMultiplier), Inline: true},
	}
}

func (b *Bot) handleVIP(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed("VIP", "Missing action.", colorError, nil), true)
		return
	}
	action := options[0].StringValue()

	userID := optionUser(session, options[1:], "user")
	days := 0
	for _, opt := range options[1:] {
		if opt.Name == "days" && opt.Type == discordgo.ApplicationCommandOptionInteger {
			days = int(opt.IntValue())
		}
	}

	switch action {
	case "grant":
		if userID == "" {
			b.respondEmbed(session, interaction, b.commandEmbed("VIP", "A target user is required.", colorError, nil), true)
			return
		}
		grant, err := b.vip.Grant(ctx, interaction.GuildID, userID, days, invokerID(interaction))
		if err != nil {
			if errors.Is(err, vip.ErrInvalidDays) {
				b.respondEmbed(session, interaction, b.commandEmbed("VIP", "Days must be a positive number.", colorError, nil), true)
				return
			}
			b.logger.Warn("vip grant failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
			b.respondEmbed(session, interaction, b.commandEmbed("VIP", "VIP data is unavailable right now.", colorError, nil), true)
			return
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Member", Value: "<@" + userID + ">", Inline: true},
			{Name: "Expires", Value: grant.ExpiresAt.UTC().Format(time.RFC1123), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("VIP", "VIP membership granted.", colorVIP, fields), false)
	case "revoke":
		if userID == "" {
			b.respondEmbed(session, interaction, b.commandEmbed("VIP", "A target user is required.", colorError, nil), true)
			return
		}
		removed, err := b.vip.Revoke(ctx, interaction.GuildID, userID)
		if err != nil {
			b.logger.Warn("vip revoke failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
			b.respondEmbed(session, interaction, b.commandEmbed("VIP", "VIP data is unavailable right now.", colorError, nil), true)
			return
		}
		if !removed {
			b.respondEmbed(session, interaction, b.commandEmbed("VIP", fmt.Sprintf("<@%s> is not a VIP.", userID), colorInfo, nil), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("VIP", fmt.Sprintf("VIP membership removed from <@%s>.", userID), colorVIP, nil), false)
	case "status":
		if userID == "" {
			userID = invokerID(interaction)
		}
		grant, active, err := b.vip.Status(ctx, interaction.GuildID, userID)
		if err != nil {
			b.respondEmbed(session, interaction, b.commandEmbed("VIP", "VIP data is unavailable right now.", colorError, nil), true)
			return
		}
		if !active {
			b.respondEmbed(session, interaction, b.commandEmbed("VIP", fmt.Sprintf("<@%s> is not a VIP.", userID), colorInfo, nil), true)
			return
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Expires", Value: grant.ExpiresAt.UTC().Format(time.RFC1123), Inline: true},
			{Name: "Granted by", Value: "<@" + grant.GrantedBy + ">", Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("VIP", fmt.Sprintf("<@%s> is a VIP.", userID), colorVIP, fields), true)
	case "list":
		grants, err := b.vip.ListActive(ctx, interaction.GuildID, 25)
		if err != nil {
			b.respondEmbed(session, interaction, b.commandEmbed("VIP", "VIP data is unavailable right now.", colorError, nil), true)
			return
		}
		if len(grants) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed("VIP", "No active VIP members.", colorInfo, nil), true)
			return
		}
		lines := make([]string, 0, len(grants))
		for _, grant := range grants {
			lines = append(lines, fmt.Sprintf("<@%s> — until %s", grant.UserID, grant.ExpiresAt.UTC().Format("2006-01-02 15:04 MST")))
		}
		b.respondEmbed(session, interaction, b.commandEmbed("VIP Members", strings.Join(lines, "\n"), colorVIP, nil), true)
	default:
		b.respondEmbed(session, interaction, b.commandEmbed("VIP", "Unknown action.", colorError, nil), true)
	}
}

func (b *Bot) handleVIPRole(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	var roleID string
	for _, opt := range options {
		if opt.Name == "role" && opt.Type == discordgo.ApplicationCommandOptionRole {
			if role := opt.RoleValue(session, interaction.GuildID); role != nil {
				roleID = role.ID
			}
		}
	}
	if roleID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("VIP Role", "A role is required.", colorError, nil), true)
		return
	}

	if err := b.vip.SetRole(ctx, interaction.GuildID, roleID); err != nil {
		b.logger.Warn("vip role update failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("VIP Role", "VIP settings are unavailable right now.", colorError, nil), true)
		return
	}
	fields := []*discordgo.MessageEmbedField{{Name: "Role", Value: "<@&" + roleID + ">", Inline: true}}
	b.respondEmbed(session, interaction, b.commandEmbed("VIP Role", "VIP role updated.", colorVIP, fields), true)
}

func (b *Bot) handleDaily(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	userID := invokerID(interaction)
	if userID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Daily", "Could not resolve your user.", colorError, nil), true)
		return
	}

	result, err := b.economy.Daily(ctx, interaction.GuildID, userID)
	if err != nil {
		b.logger.Warn("daily claim failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("Daily", "The wallet service is unavailable right now.", colorError, nil), true)
		return
	}

	if !result.Granted {
		wait := result.Wait.Round(time.Minute)
		b.respondEmbed(session, interaction, b.commandEmbed("Daily", fmt.Sprintf("Already claimed. Come back in %s.", wait), colorInfo, nil), true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Reward", Value: fmt.Sprintf("%d coins", result.Amount), Inline: true},
		{Name: "Balance", Value: fmt.Sprintf("%d coins", result.Balance), Inline: true},
	}
	if result.VIP {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "VIP Bonus", Value: "applied", Inline: true})
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Daily", fmt.Sprintf("<@%s> claimed the daily reward!", userID), colorLevelUp, fields), false)
}

func (b *Bot) handleBalance(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	userID := optionUser(session, options, "user")
	if userID == "" {
		userID = invokerID(interaction)
	}

	wallet, err := b.economy.Balance(ctx, interaction.GuildID, userID)
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Balance", "The wallet service is unavailable right now.", colorError, nil), true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Wallet", Value: fmt.Sprintf("%d coins", wallet.Balance), Inline: true},
		{Name: "Bank", Value: fmt.Sprintf("%d coins", wallet.Bank), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Balance", fmt.Sprintf("Wallet of <@%s>", userID), colorInfo, fields), false)
}
