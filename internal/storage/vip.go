package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type VIPGrant struct {
	GuildID   string
	UserID    string
	ExpiresAt time.Time
	GrantedBy string
	GrantedAt time.Time
}

// VIPGuildConfig carries the per-guild bonus multiplier table and the
// optional privilege role attached to grants.
type VIPGuildConfig struct {
	GuildID         string
	RoleID          string
	XPMultiplier    float64
	CoinsMultiplier float64
	DailyMultiplier float64
}

func (s *Store) GetVIPGrant(ctx context.Context, guildID, userID string) (VIPGrant, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT expires_at, granted_by, granted_at
		FROM vip_grants WHERE guild_id = ? AND user_id = ?`, guildID, userID)

	grant := VIPGrant{GuildID: guildID, UserID: userID}
	var expiresAt, grantedAt int64
	err := row.Scan(&expiresAt, &grant.GrantedBy, &grantedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VIPGrant{}, false, nil
		}
		return VIPGrant{}, false, unavailable(err)
	}
	grant.ExpiresAt = time.Unix(expiresAt, 0)
	grant.GrantedAt = time.Unix(grantedAt, 0)
	return grant, true, nil
}

func (s *Store) UpsertVIPGrant(ctx context.Context, grant VIPGrant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vip_grants (guild_id, user_id, expires_at, granted_by, granted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			expires_at = excluded.expires_at,
			granted_by = excluded.granted_by,
			granted_at = excluded.granted_at
	`, grant.GuildID, grant.UserID, grant.ExpiresAt.Unix(), grant.GrantedBy, grant.GrantedAt.Unix())
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// DeleteVIPGrant reports whether a grant was actually removed, so callers
// can distinguish "revoked" from "was not VIP".
func (s *Store) DeleteVIPGrant(ctx context.Context, guildID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM vip_grants WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	if err != nil {
		return false, unavailable(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, unavailable(err)
	}
	return affected > 0, nil
}

func (s *Store) ListActiveVIPGrants(ctx context.Context, guildID string, now time.Time, limit int) ([]VIPGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, expires_at, granted_by, granted_at
		FROM vip_grants
		WHERE guild_id = ? AND expires_at > ?
		ORDER BY expires_at ASC
		LIMIT ?
	`, guildID, now.Unix(), limit)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var grants []VIPGrant
	for rows.Next() {
		grant := VIPGrant{GuildID: guildID}
		var expiresAt, grantedAt int64
		if err := rows.Scan(&grant.UserID, &expiresAt, &grant.GrantedBy, &grantedAt); err != nil {
			return nil, unavailable(err)
		}
		grant.ExpiresAt = time.Unix(expiresAt, 0)
		grant.GrantedAt = time.Unix(grantedAt, 0)
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return grants, nil
}

func (s *Store) CountActiveVIPGrants(ctx context.Context, guildID string, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM vip_grants WHERE guild_id = ? AND expires_at > ?`,
		guildID, now.Unix()).Scan(&count)
	if err != nil {
		return 0, unavailable(err)
	}
	return count, nil
}

// ListExpiredVIPGrants returns every grant past its expiry across all
// guilds, for the periodic sweep.
func (s *Store) ListExpiredVIPGrants(ctx context.Context, now time.Time) ([]VIPGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, user_id, expires_at, granted_by, granted_at
		FROM vip_grants WHERE expires_at <= ?
	`, now.Unix())
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var grants []VIPGrant
	for rows.Next() {
		var grant VIPGrant
		var expiresAt, grantedAt int64
		if err := rows.Scan(&grant.GuildID, &grant.UserID, &expiresAt, &grant.GrantedBy, &grantedAt); err != nil {
			return nil, unavailable(err)
		}
		grant.ExpiresAt = time.Unix(expiresAt, 0)
		grant.GrantedAt = time.Unix(grantedAt, 0)
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return grants, nil
}

func (s *Store) DeleteExpiredVIPGrants(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM vip_grants WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, unavailable(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return affected, nil
}

func (s *Store) GetVIPGuildConfig(ctx context.Context, guildID string, defaults VIPGuildConfig) (VIPGuildConfig, error) {
	now := time.Now().Unix()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return VIPGuildConfig{}, unavailable(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vip_guild_config (guild_id, role_id, xp_multiplier, coins_multiplier, daily_multiplier, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO NOTHING
	`, guildID, defaults.RoleID, defaults.XPMultiplier, defaults.CoinsMultiplier, defaults.DailyMultiplier, now)
	if err != nil {
		return VIPGuildConfig{}, unavailable(err)
	}

	result := VIPGuildConfig{GuildID: guildID}
	row := tx.QueryRowContext(ctx, `
		SELECT role_id, xp_multiplier, coins_multiplier, daily_multiplier
		FROM vip_guild_config WHERE guild_id = ?`, guildID)
	err = row.Scan(&result.RoleID, &result.XPMultiplier, &result.CoinsMultiplier, &result.DailyMultiplier)
	if err != nil {
		return VIPGuildConfig{}, unavailable(err)
	}
	if err = tx.Commit(); err != nil {
		return VIPGuildConfig{}, unavailable(err)
	}
	return result, nil
}

func (s *Store) UpsertVIPGuildConfig(ctx context.Context, cfg VIPGuildConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vip_guild_config (guild_id, role_id, xp_multiplier, coins_multiplier, daily_multiplier, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			role_id = excluded.role_id,
			xp_multiplier = excluded.xp_multiplier,
			coins_multiplier = excluded.coins_multiplier,
			daily_multiplier = excluded.daily_multiplier,
			updated_at = excluded.updated_at
	`, cfg.GuildID, cfg.RoleID, cfg.XPMultiplier, cfg.CoinsMultiplier, cfg.DailyMultiplier, time.Now().Unix())
	if err != nil {
		return unavailable(err)
	}
	return nil
}
