package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UserExperience is one user's progress within one guild. A zero-valued
// record with Level 1 stands in for "never messaged"; the row is only
// written on the first qualifying message.
type UserExperience struct {
	GuildID       string
	UserID        string
	XP            int
	Level         int
	MessageCount  int
	LastMessageAt time.Time
}

func (s *Store) GetUserExperience(ctx context.Context, guildID, userID string) (UserExperience, error) {
	result := UserExperience{GuildID: guildID, UserID: userID, Level: 1}

	row := s.db.QueryRowContext(ctx, `
		SELECT xp, level, message_count, last_message_at
		FROM user_experience WHERE guild_id = ? AND user_id = ?`, guildID, userID)

	var lastAt sql.NullInt64
	err := row.Scan(&result.XP, &result.Level, &result.MessageCount, &lastAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return UserExperience{}, unavailable(err)
	}
	if lastAt.Valid {
		result.LastMessageAt = time.Unix(lastAt.Int64, 0)
	}
	return result, nil
}

// UpsertUserExperience writes xp, level, message count and the cooldown
// stamp as one unit, so a failed write never leaves a stamped cooldown
// without its award.
func (s *Store) UpsertUserExperience(ctx context.Context, rec UserExperience) error {
	var lastAt any
	if !rec.LastMessageAt.IsZero() {
		lastAt = rec.LastMessageAt.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_experience (guild_id, user_id, xp, level, message_count, last_message_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			xp = excluded.xp,
			level = excluded.level,
			message_count = excluded.message_count,
			last_message_at = excluded.last_message_at,
			updated_at = excluded.updated_at
	`, rec.GuildID, rec.UserID, rec.XP, rec.Level, rec.MessageCount, lastAt, time.Now().Unix())
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) TopUserExperience(ctx context.Context, guildID string, limit, offset int) ([]UserExperience, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, xp, level, message_count
		FROM user_experience
		WHERE guild_id = ?
		ORDER BY xp DESC
		LIMIT ? OFFSET ?
	`, guildID, limit, offset)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var records []UserExperience
	for rows.Next() {
		rec := UserExperience{GuildID: guildID}
		if err := rows.Scan(&rec.UserID, &rec.XP, &rec.Level, &rec.MessageCount); err != nil {
			return nil, unavailable(err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return records, nil
}

func (s *Store) CountUserExperience(ctx context.Context, guildID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_experience WHERE guild_id = ?`, guildID).Scan(&count)
	if err != nil {
		return 0, unavailable(err)
	}
	return count, nil
}
