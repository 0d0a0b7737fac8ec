package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken          string        `yaml:"discord_token"`
	DatabasePath          string        `yaml:"database_path"`
	LogLevel              string        `yaml:"log_level"`
	StorageTimeoutSeconds int           `yaml:"storage_timeout_seconds"`
	Health                HealthConfig  `yaml:"health"`
	XP                    XPConfig      `yaml:"xp"`
	VIP                   VIPConfig     `yaml:"vip"`
	Economy               EconomyConfig `yaml:"economy"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// XPConfig holds the fallback tunables applied when a guild has no stored
// configuration yet. Per-guild values live in storage.
type XPConfig struct {
	BaseXP             int     `yaml:"base_xp"`
	MaxXP              int     `yaml:"max_xp"`
	XPPerLevel         int     `yaml:"xp_per_level"`
	CooldownSeconds    int     `yaml:"cooldown_seconds"`
	VIPCooldownSeconds int     `yaml:"vip_cooldown_seconds"`
	VIPMultiplier      float64 `yaml:"vip_multiplier"`
}

type VIPConfig struct {
	SweepIntervalMinutes int     `yaml:"sweep_interval_minutes"`
	XPMultiplier         float64 `yaml:"xp_multiplier"`
	CoinsMultiplier      float64 `yaml:"coins_multiplier"`
	DailyMultiplier      float64 `yaml:"daily_multiplier"`
}

type EconomyConfig struct {
	DailyReward int `yaml:"daily_reward"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:          "/data/lumina.db",
		LogLevel:              "info",
		StorageTimeoutSeconds: 5,
		Health:                HealthConfig{Enabled: false, Addr: ":8080"},
		XP: XPConfig{
			BaseXP:             15,
			MaxXP:              25,
			XPPerLevel:         100,
			CooldownSeconds:    60,
			VIPCooldownSeconds: 30,
			VIPMultiplier:      2.0,
		},
		VIP: VIPConfig{
			SweepIntervalMinutes: 60,
			XPMultiplier:         2.0,
			CoinsMultiplier:      1.5,
			DailyMultiplier:      2.0,
		},
		Economy: EconomyConfig{DailyReward: 1000},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.StorageTimeoutSeconds = envInt("STORAGE_TIMEOUT_SECONDS", cfg.StorageTimeoutSeconds)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.XP.BaseXP = envInt("XP_BASE", cfg.XP.BaseXP)
	cfg.XP.MaxXP = envInt("XP_MAX", cfg.XP.MaxXP)
	cfg.XP.XPPerLevel = envInt("XP_PER_LEVEL", cfg.XP.XPPerLevel)
	cfg.XP.CooldownSeconds = envInt("XP_COOLDOWN_SECONDS", cfg.XP.CooldownSeconds)
	cfg.XP.VIPCooldownSeconds = envInt("XP_VIP_COOLDOWN_SECONDS", cfg.XP.VIPCooldownSeconds)
	cfg.XP.VIPMultiplier = envFloat("XP_VIP_MULTIPLIER", cfg.XP.VIPMultiplier)
	cfg.VIP.SweepIntervalMinutes = envInt("VIP_SWEEP_INTERVAL_MINUTES", cfg.VIP.SweepIntervalMinutes)
	cfg.Economy.DailyReward = envInt("ECONOMY_DAILY_REWARD", cfg.Economy.DailyReward)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
