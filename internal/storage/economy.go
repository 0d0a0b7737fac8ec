package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Wallet struct {
	GuildID     string
	UserID      string
	Balance     int64
	Bank        int64
	LastDailyAt time.Time
}

func (s *Store) GetWallet(ctx context.Context, guildID, userID string) (Wallet, error) {
	result := Wallet{GuildID: guildID, UserID: userID}

	row := s.db.QueryRowContext(ctx, `
		SELECT balance, bank, last_daily_at
		FROM wallets WHERE guild_id = ? AND user_id = ?`, guildID, userID)

	var lastDaily sql.NullInt64
	err := row.Scan(&result.Balance, &result.Bank, &lastDaily)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return Wallet{}, unavailable(err)
	}
	if lastDaily.Valid {
		result.LastDailyAt = time.Unix(lastDaily.Int64, 0)
	}
	return result, nil
}

func (s *Store) UpsertWallet(ctx context.Context, wallet Wallet) error {
	var lastDaily any
	if !wallet.LastDailyAt.IsZero() {
		lastDaily = wallet.LastDailyAt.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (guild_id, user_id, balance, bank, last_daily_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			balance = excluded.balance,
			bank = excluded.bank,
			last_daily_at = excluded.last_daily_at,
			updated_at = excluded.updated_at
	`, wallet.GuildID, wallet.UserID, wallet.Balance, wallet.Bank, lastDaily, time.Now().Unix())
	if err != nil {
		return unavailable(err)
	}
	return nil
}
