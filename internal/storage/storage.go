package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrUnavailable marks persistence failures (unreachable database, timeout)
// so callers can degrade instead of crashing the message path. Check with
// errors.Is.
var ErrUnavailable = errors.New("storage unavailable")

type Store struct {
	db *sql.DB
}

// GuildXPConfig is the per-guild experience configuration row, materialized
// with defaults on first access.
type GuildXPConfig struct {
	GuildID            string
	BaseXP             int
	MaxXP              int
	XPPerLevel         int
	CooldownSeconds    int
	VIPCooldownSeconds int
	VIPMultiplier      float64
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// GetGuildXPConfig returns the stored configuration for guildID, inserting
// defaults first if no row exists. Racing creators resolve to a single row:
// the insert is a no-op when the row is already present.
func (s *Store) GetGuildXPConfig(ctx context.Context, guildID string, defaults GuildXPConfig) (GuildXPConfig, error) {
	now := time.Now().Unix()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return GuildXPConfig{}, unavailable(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO xp_guild_config (
			guild_id, base_xp, max_xp, xp_per_level,
			cooldown_seconds, vip_cooldown_seconds, vip_multiplier,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO NOTHING
	`, guildID, defaults.BaseXP, defaults.MaxXP, defaults.XPPerLevel,
		defaults.CooldownSeconds, defaults.VIPCooldownSeconds, defaults.VIPMultiplier,
		now, now)
	if err != nil {
		return GuildXPConfig{}, unavailable(err)
	}

	result := GuildXPConfig{GuildID: guildID}
	row := tx.QueryRowContext(ctx, `
		SELECT base_xp, max_xp, xp_per_level,
		cooldown_seconds, vip_cooldown_seconds, vip_multiplier
		FROM xp_guild_config WHERE guild_id = ?`, guildID)
	err = row.Scan(
		&result.BaseXP,
		&result.MaxXP,
		&result.XPPerLevel,
		&result.CooldownSeconds,
		&result.VIPCooldownSeconds,
		&result.VIPMultiplier,
	)
	if err != nil {
		return GuildXPConfig{}, unavailable(err)
	}
	if err = tx.Commit(); err != nil {
		return GuildXPConfig{}, unavailable(err)
	}
	return result, nil
}

// UpsertGuildXPConfig merges the full tunable set into the stored row.
func (s *Store) UpsertGuildXPConfig(ctx context.Context, cfg GuildXPConfig) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO xp_guild_config (
			guild_id, base_xp, max_xp, xp_per_level,
			cooldown_seconds, vip_cooldown_seconds, vip_multiplier,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			base_xp = excluded.base_xp,
			max_xp = excluded.max_xp,
			xp_per_level = excluded.xp_per_level,
			cooldown_seconds = excluded.cooldown_seconds,
			vip_cooldown_seconds = excluded.vip_cooldown_seconds,
			vip_multiplier = excluded.vip_multiplier,
			updated_at = excluded.updated_at
	`, cfg.GuildID, cfg.BaseXP, cfg.MaxXP, cfg.XPPerLevel,
		cfg.CooldownSeconds, cfg.VIPCooldownSeconds, cfg.VIPMultiplier,
		now, now)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
