package bot

import (
	"context"
	"fmt"
	"time"

	"lumina-community/internal/config"
	"lumina-community/internal/economy"
	"lumina-community/internal/guildconfig"
	"lumina-community/internal/leveling"
	"lumina-community/internal/storage"
	"lumina-community/internal/vip"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorLevelUp = 0xF1C40F
	colorInfo    = 0x3498DB
	colorVIP     = 0x9B59B6
	colorError   = 0xE74C3C
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	engine    *leveling.Engine
	guildCfg  *guildconfig.Service
	vip       *vip.Registry
	economy   *economy.Service
	session   *discordgo.Session
	storageTO time.Duration
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, engine *leveling.Engine, guildCfg *guildconfig.Service, registry *vip.Registry, economySvc *economy.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	timeout := time.Duration(cfg.StorageTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		engine:    engine,
		guildCfg:  guildCfg,
		vip:       registry,
		economy:   economySvc,
		session:   session,
		storageTO: timeout,
	}

	registry.SetRoleHook(func(ctx context.Context, guildID, userID, roleID string, granted bool) {
		b.applyVIPRole(guildID, userID, roleID, granted)
	})

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

// onMessageCreate feeds every guild message through the experience engine.
// Storage failures are logged and swallowed so chat is never interrupted.
func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil {
		return
	}

	message := leveling.Message{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		AuthorID:  msg.Author.ID,
		Bot:       msg.Author.Bot,
		DM:        msg.GuildID == "",
	}
	if !message.Qualifies() {
		return
	}

	ctx, cancel := b.storageContext()
	defer cancel()

	award, err := b.engine.HandleMessage(ctx, message)
	if err != nil {
		b.logger.Warn("experience award failed",
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", msg.Author.ID),
			zap.Error(err))
		return
	}

	if award.LeveledUp() {
		b.announceLevelUp(msg.ChannelID, msg.Author.ID, award)
	}
}

func (b *Bot) announceLevelUp(channelID, userID string, award leveling.Award) {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Level", Value: fmt.Sprintf("%d", award.NewLevel), Inline: true},
		{Name: "Total XP", Value: fmt.Sprintf("%d", award.TotalXP), Inline: true},
	}
	if award.VIPBonus {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "VIP Bonus", Value: "active", Inline: true})
	}
	embed := b.commandEmbed("Level Up!", fmt.Sprintf("<@%s> reached level %d!", userID, award.NewLevel), colorLevelUp, fields)
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("level-up announcement failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

// applyVIPRole performs the Discord side of a grant or revoke. Failures are
// logged only; the grant in storage is the source of truth.
func (b *Bot) applyVIPRole(guildID, userID, roleID string, granted bool) {
	var err error
	if granted {
		err = b.session.GuildMemberRoleAdd(guildID, userID, roleID)
	} else {
		err = b.session.GuildMemberRoleRemove(guildID, userID, roleID)
	}
	if err != nil {
		b.logger.Warn("vip role update failed",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.String("role_id", roleID),
			zap.Bool("granted", granted),
			zap.Error(err))
	}
}

func (b *Bot) storageContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.storageTO)
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
