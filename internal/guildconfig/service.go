package guildconfig

import (
	"context"
	"fmt"

	"lumina-community/internal/config"
	"lumina-community/internal/storage"
)

// Service materializes per-guild experience tunables with defaults on first
// access and validates admin updates before anything is persisted.
type Service struct {
	store    *storage.Store
	defaults config.XPConfig
}

// Update carries the optional fields of one configuration change; nil means
// "leave unchanged".
type Update struct {
	BaseXP             *int
	MaxXP              *int
	XPPerLevel         *int
	CooldownSeconds    *int
	VIPCooldownSeconds *int
	VIPMultiplier      *float64
}

func New(store *storage.Store, defaults config.XPConfig) *Service {
	return &Service{store: store, defaults: defaults}
}

func (s *Service) Defaults(guildID string) storage.GuildXPConfig {
	return storage.GuildXPConfig{
		GuildID:            guildID,
		BaseXP:             s.defaults.BaseXP,
		MaxXP:              s.defaults.MaxXP,
		XPPerLevel:         s.defaults.XPPerLevel,
		CooldownSeconds:    s.defaults.CooldownSeconds,
		VIPCooldownSeconds: s.defaults.VIPCooldownSeconds,
		VIPMultiplier:      s.defaults.VIPMultiplier,
	}
}

func (s *Service) Get(ctx context.Context, guildID string) (storage.GuildXPConfig, error) {
	return s.store.GetGuildXPConfig(ctx, guildID, s.Defaults(guildID))
}

// Apply validates and persists an update. Invalid values reject the whole
// update with a descriptive error and leave the stored row untouched.
func (s *Service) Apply(ctx context.Context, guildID string, update Update) (storage.GuildXPConfig, error) {
	cfg, err := s.Get(ctx, guildID)
	if err != nil {
		return storage.GuildXPConfig{}, err
	}

	if update.BaseXP != nil {
		cfg.BaseXP = *update.BaseXP
	}
	if update.MaxXP != nil {
		cfg.MaxXP = *update.MaxXP
	}
	if update.XPPerLevel != nil {
		cfg.XPPerLevel = *update.XPPerLevel
	}
	if update.CooldownSeconds != nil {
		cfg.CooldownSeconds = *update.CooldownSeconds
		if update.VIPCooldownSeconds == nil {
			// Setting the normal cooldown alone halves it for VIPs.
			cfg.VIPCooldownSeconds = *update.CooldownSeconds / 2
		}
	}
	if update.VIPCooldownSeconds != nil {
		cfg.VIPCooldownSeconds = *update.VIPCooldownSeconds
	}
	if update.VIPMultiplier != nil {
		cfg.VIPMultiplier = *update.VIPMultiplier
	}

	if err := Validate(cfg); err != nil {
		return storage.GuildXPConfig{}, err
	}
	if err := s.store.UpsertGuildXPConfig(ctx, cfg); err != nil {
		return storage.GuildXPConfig{}, err
	}
	return cfg, nil
}

func Validate(cfg storage.GuildXPConfig) error {
	if cfg.BaseXP < 1 {
		return fmt.Errorf("minimum xp must be at least 1, got %d", cfg.BaseXP)
	}
	if cfg.MaxXP < cfg.BaseXP {
		return fmt.Errorf("maximum xp (%d) must not be below minimum xp (%d)", cfg.MaxXP, cfg.BaseXP)
	}
	if cfg.XPPerLevel < 1 {
		return fmt.Errorf("xp per level must be at least 1, got %d", cfg.XPPerLevel)
	}
	if cfg.CooldownSeconds < 0 {
		return fmt.Errorf("cooldown must not be negative, got %d", cfg.CooldownSeconds)
	}
	if cfg.VIPCooldownSeconds < 0 {
		return fmt.Errorf("vip cooldown must not be negative, got %d", cfg.VIPCooldownSeconds)
	}
	if cfg.VIPCooldownSeconds > cfg.CooldownSeconds {
		return fmt.Errorf("vip cooldown (%ds) must not exceed the normal cooldown (%ds)", cfg.VIPCooldownSeconds, cfg.CooldownSeconds)
	}
	if cfg.VIPMultiplier < 1.0 {
		return fmt.Errorf("vip multiplier must be at least 1.0, got %g", cfg.VIPMultiplier)
	}
	return nil
}
