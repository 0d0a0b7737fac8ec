package leveling

import (
	"context"
	"math/rand"
	"time"

	"lumina-community/internal/guildconfig"
	"lumina-community/internal/storage"
	"lumina-community/internal/vip"

	"go.uber.org/zap"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Message is the slice of an inbound chat event the engine cares about.
type Message struct {
	GuildID   string
	ChannelID string
	AuthorID  string
	Bot       bool
	DM        bool
	At        time.Time
}

// Qualifies reports whether the message is eligible for experience at all.
// Automated authors and direct messages never reach the cooldown gate.
func (m Message) Qualifies() bool {
	return !m.Bot && !m.DM && m.GuildID != "" && m.AuthorID != ""
}

// Award is the outcome of one qualifying message. Granted is false when the
// author is cooling down or storage is unavailable.
type Award struct {
	Granted  bool
	XP       int
	TotalXP  int
	OldLevel int
	NewLevel int
	VIPBonus bool
}

func (a Award) LeveledUp() bool {
	return a.Granted && a.NewLevel > a.OldLevel
}

type Engine struct {
	store  *storage.Store
	config *guildconfig.Service
	vip    *vip.Registry
	logger *zap.Logger
	clock  Clock
	roll   func(min, max int) int
}

func NewEngine(store *storage.Store, configSvc *guildconfig.Service, registry *vip.Registry, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		config: configSvc,
		vip:    registry,
		logger: logger,
		clock:  realClock{},
		roll:   rollBetween,
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

func (e *Engine) WithRoll(roll func(min, max int) int) {
	e.roll = roll
}

// HandleMessage runs the full award path: qualification, VIP-aware cooldown
// gate, random draw, multiplier, level recompute, single persisted write.
// A cooldown-blocked message returns an ungranted Award with no state
// change. A storage failure returns the error so the caller can log it;
// nothing is stamped, so the user is not left cooling down without the xp.
func (e *Engine) HandleMessage(ctx context.Context, msg Message) (Award, error) {
	if !msg.Qualifies() {
		return Award{}, nil
	}

	now := msg.At
	if now.IsZero() {
		now = e.clock.Now()
	}

	cfg, err := e.config.Get(ctx, msg.GuildID)
	if err != nil {
		e.logger.Warn("xp config fallback", zap.String("guild_id", msg.GuildID), zap.Error(err))
		cfg = e.config.Defaults(msg.GuildID)
	}

	isVIP, err := e.vip.IsVIP(ctx, msg.GuildID, msg.AuthorID)
	if err != nil {
		// Unknown VIP status degrades to the normal treatment.
		isVIP = false
	}

	cooldown := cfg.CooldownSeconds
	if isVIP {
		cooldown = cfg.VIPCooldownSeconds
	}

	rec, err := e.store.GetUserExperience(ctx, msg.GuildID, msg.AuthorID)
	if err != nil {
		return Award{}, err
	}

	if !rec.LastMessageAt.IsZero() && now.Sub(rec.LastMessageAt) < time.Duration(cooldown)*time.Second {
		return Award{}, nil
	}

	raw := e.roll(cfg.BaseXP, cfg.MaxXP)
	awarded := raw
	if isVIP {
		awarded = int(float64(raw) * cfg.VIPMultiplier)
	}

	oldLevel := rec.Level
	rec.XP += awarded
	rec.MessageCount++
	rec.LastMessageAt = now
	rec.Level = ComputeLevel(rec.XP, cfg.XPPerLevel)

	if err := e.store.UpsertUserExperience(ctx, rec); err != nil {
		return Award{}, err
	}

	return Award{
		Granted:  true,
		XP:       awarded,
		TotalXP:  rec.XP,
		OldLevel: oldLevel,
		NewLevel: rec.Level,
		VIPBonus: isVIP,
	}, nil
}

func rollBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min+1)
}
