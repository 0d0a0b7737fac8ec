package economy

import (
	"context"
	"time"

	"lumina-community/internal/config"
	"lumina-community/internal/storage"
	"lumina-community/internal/vip"

	"go.uber.org/zap"
)

const dailyCooldown = 24 * time.Hour

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// DailyResult reports a claim attempt. When Granted is false, Wait holds
// the time remaining until the next claim.
type DailyResult struct {
	Granted bool
	Amount  int64
	Balance int64
	VIP     bool
	Wait    time.Duration
}

// Service hands out the daily reward and answers balance queries. VIPs get
// the guild's daily multiplier applied to the base reward, floored.
type Service struct {
	store    *storage.Store
	registry *vip.Registry
	logger   *zap.Logger
	defaults config.EconomyConfig
	clock    Clock
}

func NewService(store *storage.Store, registry *vip.Registry, defaults config.EconomyConfig, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		logger:   logger,
		defaults: defaults,
		clock:    realClock{},
	}
}

func (s *Service) WithClock(clock Clock) {
	s.clock = clock
}

// Daily claims the daily reward once per 24 hours, measured from the last
// successful claim. The wallet write carries both the new balance and the
// claim timestamp so a failed write never burns the cooldown.
func (s *Service) Daily(ctx context.Context, guildID, userID string) (DailyResult, error) {
	now := s.clock.Now()

	wallet, err := s.store.GetWallet(ctx, guildID, userID)
	if err != nil {
		return DailyResult{}, err
	}

	if !wallet.LastDailyAt.IsZero() {
		elapsed := now.Sub(wallet.LastDailyAt)
		if elapsed < dailyCooldown {
			return DailyResult{Wait: dailyCooldown - elapsed, Balance: wallet.Balance}, nil
		}
	}

	isVIP, err := s.registry.IsVIP(ctx, guildID, userID)
	if err != nil {
		s.logger.Warn("vip lookup failed, granting base daily",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.Error(err))
		isVIP = false
	}

	amount := int64(s.defaults.DailyReward)
	if isVIP {
		amount = int64(float64(amount) * s.registry.MultiplierFor(ctx, guildID, "daily"))
	}

	wallet.GuildID = guildID
	wallet.UserID = userID
	wallet.Balance += amount
	wallet.LastDailyAt = now
	if err := s.store.UpsertWallet(ctx, wallet); err != nil {
		return DailyResult{}, err
	}

	return DailyResult{
		Granted: true,
		Amount:  amount,
		Balance: wallet.Balance,
		VIP:     isVIP,
	}, nil
}

// Balance returns the user's wallet, zero-valued if they have never earned.
func (s *Service) Balance(ctx context.Context, guildID, userID string) (storage.Wallet, error) {
	return s.store.GetWallet(ctx, guildID, userID)
}
