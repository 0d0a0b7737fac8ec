package vip

import (
	"context"
	"errors"
	"time"

	"lumina-community/internal/config"
	"lumina-community/internal/storage"

	"go.uber.org/zap"
)

// ErrInvalidDays rejects grant requests with a non-positive duration; the
// value is reported back to the operator, never clamped.
var ErrInvalidDays = errors.New("vip grant requires a positive number of days")

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RoleHook is invoked when a grant should attach or detach the guild's VIP
// role. The registry stays unaware of the chat platform; the bot supplies
// the hook.
type RoleHook func(ctx context.Context, guildID, userID, roleID string, granted bool)

// Registry owns VIP grant lifecycle and answers status and multiplier
// queries for every feature that differentiates VIPs. Expired grants are
// treated as absent whether or not the sweep has removed them yet.
type Registry struct {
	store    *storage.Store
	logger   *zap.Logger
	defaults config.VIPConfig
	clock    Clock
	roleHook RoleHook
}

func NewRegistry(store *storage.Store, defaults config.VIPConfig, logger *zap.Logger) *Registry {
	return &Registry{
		store:    store,
		logger:   logger,
		defaults: defaults,
		clock:    realClock{},
	}
}

func (r *Registry) WithClock(clock Clock) {
	r.clock = clock
}

// SetRoleHook must be called before StartSweep.
func (r *Registry) SetRoleHook(hook RoleHook) {
	r.roleHook = hook
}

// IsVIP is true iff a grant exists and has not expired. Absence and expiry
// both answer false without error; storage failure answers false with the
// error so passive callers can ignore it and admin callers can report it.
func (r *Registry) IsVIP(ctx context.Context, guildID, userID string) (bool, error) {
	grant, ok, err := r.store.GetVIPGrant(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return r.clock.Now().Before(grant.ExpiresAt), nil
}

// Grant upserts a VIP grant expiring days from now and attaches the guild's
// VIP role when one is configured. Re-granting overwrites the previous
// expiry rather than extending it.
func (r *Registry) Grant(ctx context.Context, guildID, userID string, days int, grantedBy string) (storage.VIPGrant, error) {
	if days <= 0 {
		return storage.VIPGrant{}, ErrInvalidDays
	}

	now := r.clock.Now()
	grant := storage.VIPGrant{
		GuildID:   guildID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(days) * 24 * time.Hour),
		GrantedBy: grantedBy,
		GrantedAt: now,
	}
	if err := r.store.UpsertVIPGrant(ctx, grant); err != nil {
		return storage.VIPGrant{}, err
	}

	r.applyRole(ctx, guildID, userID, true)
	return grant, nil
}

// Revoke deletes the grant if present and reports whether anything was
// removed, so the caller can answer "was not VIP".
func (r *Registry) Revoke(ctx context.Context, guildID, userID string) (bool, error) {
	removed, err := r.store.DeleteVIPGrant(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	if removed {
		r.applyRole(ctx, guildID, userID, false)
	}
	return removed, nil
}

// Status returns the active grant for the user, if any. An expired grant
// still in storage reads as absent.
func (r *Registry) Status(ctx context.Context, guildID, userID string) (storage.VIPGrant, bool, error) {
	grant, ok, err := r.store.GetVIPGrant(ctx, guildID, userID)
	if err != nil || !ok {
		return storage.VIPGrant{}, false, err
	}
	if !r.clock.Now().Before(grant.ExpiresAt) {
		return storage.VIPGrant{}, false, nil
	}
	return grant, true, nil
}

func (r *Registry) ListActive(ctx context.Context, guildID string, limit int) ([]storage.VIPGrant, error) {
	return r.store.ListActiveVIPGrants(ctx, guildID, r.clock.Now(), limit)
}

func (r *Registry) CountActive(ctx context.Context, guildID string) (int, error) {
	return r.store.CountActiveVIPGrants(ctx, guildID, r.clock.Now())
}

// MultiplierFor looks up the guild's bonus table for a named kind ("xp",
// "coins", "daily"). Unknown kinds and storage failures are neutral.
func (r *Registry) MultiplierFor(ctx context.Context, guildID, kind string) float64 {
	cfg, err := r.Config(ctx, guildID)
	if err != nil {
		return 1.0
	}
	switch kind {
	case "xp":
		return cfg.XPMultiplier
	case "coins":
		return cfg.CoinsMultiplier
	case "daily":
		return cfg.DailyMultiplier
	default:
		return 1.0
	}
}

func (r *Registry) Config(ctx context.Context, guildID string) (storage.VIPGuildConfig, error) {
	return r.store.GetVIPGuildConfig(ctx, guildID, storage.VIPGuildConfig{
		GuildID:         guildID,
		XPMultiplier:    r.defaults.XPMultiplier,
		CoinsMultiplier: r.defaults.CoinsMultiplier,
		DailyMultiplier: r.defaults.DailyMultiplier,
	})
}

// SetRole stores the guild's VIP role; new grants attach it, revokes and
// the sweep detach it.
func (r *Registry) SetRole(ctx context.Context, guildID, roleID string) error {
	cfg, err := r.Config(ctx, guildID)
	if err != nil {
		return err
	}
	cfg.RoleID = roleID
	return r.store.UpsertVIPGuildConfig(ctx, cfg)
}

// SweepExpired removes grants past their expiry and reverses the role side
// effect. IsVIP never depends on the sweep; this is storage hygiene.
func (r *Registry) SweepExpired(ctx context.Context) (int64, error) {
	now := r.clock.Now()
	expired, err := r.store.ListExpiredVIPGrants(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, grant := range expired {
		r.applyRole(ctx, grant.GuildID, grant.UserID, false)
	}
	removed, err := r.store.DeleteExpiredVIPGrants(ctx, now)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// StartSweep runs SweepExpired on a ticker until ctx is cancelled. It never
// touches message-path resources.
func (r *Registry) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := r.SweepExpired(ctx)
				if err != nil {
					r.logger.Warn("vip sweep failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					r.logger.Info("vip sweep", zap.Int64("removed", removed))
				}
			}
		}
	}()
}

func (r *Registry) applyRole(ctx context.Context, guildID, userID string, granted bool) {
	if r.roleHook == nil {
		return
	}
	cfg, err := r.Config(ctx, guildID)
	if err != nil || cfg.RoleID == "" {
		return
	}
	r.roleHook(ctx, guildID, userID, cfg.RoleID, granted)
}
