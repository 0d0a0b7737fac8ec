package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testDefaults(guildID string) GuildXPConfig {
	return GuildXPConfig{
		GuildID:            guildID,
		BaseXP:             15,
		MaxXP:              25,
		XPPerLevel:         100,
		CooldownSeconds:    60,
		VIPCooldownSeconds: 30,
		VIPMultiplier:      2.0,
	}
}

func TestGetGuildXPConfigCreatesDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.GetGuildXPConfig(ctx, "g1", testDefaults("g1"))
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := store.GetGuildXPConfig(ctx, "g1", testDefaults("g1"))
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if first != second {
		t.Fatalf("repeated get diverged: %+v vs %+v", first, second)
	}
	if first.BaseXP != 15 || first.CooldownSeconds != 60 {
		t.Fatalf("defaults not applied: %+v", first)
	}
}

func TestUpsertGuildXPConfig(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg, err := store.GetGuildXPConfig(ctx, "g1", testDefaults("g1"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	cfg.CooldownSeconds = 120
	if err := store.UpsertGuildXPConfig(ctx, cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetGuildXPConfig(ctx, "g1", testDefaults("g1"))
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if got.CooldownSeconds != 120 {
		t.Fatalf("expected cooldown 120, got %d", got.CooldownSeconds)
	}
	if got.BaseXP != 15 {
		t.Fatalf("untouched field changed: %+v", got)
	}
}

func TestUserExperienceLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.GetUserExperience(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if rec.XP != 0 || rec.Level != 1 {
		t.Fatalf("fresh record should be level 1 with no xp: %+v", rec)
	}
	if !rec.LastMessageAt.IsZero() {
		t.Fatalf("fresh record should have no stamp: %v", rec.LastMessageAt)
	}

	rec.XP = 120
	rec.Level = 2
	rec.MessageCount = 8
	rec.LastMessageAt = time.Unix(5000, 0)
	if err := store.UpsertUserExperience(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetUserExperience(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if got.XP != 120 || got.Level != 2 || got.MessageCount != 8 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.LastMessageAt.Equal(time.Unix(5000, 0)) {
		t.Fatalf("stamp lost: %v", got.LastMessageAt)
	}
}

func TestTopUserExperience(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, xp := range []int{300, 100, 200} {
		rec := UserExperience{GuildID: "g1", UserID: string(rune('a' + i)), XP: xp, Level: 1}
		if err := store.UpsertUserExperience(ctx, rec); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	other := UserExperience{GuildID: "g2", UserID: "z", XP: 999, Level: 1}
	if err := store.UpsertUserExperience(ctx, other); err != nil {
		t.Fatalf("seed other guild: %v", err)
	}

	top, err := store.TopUserExperience(ctx, "g1", 2, 0)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].XP != 300 || top[1].XP != 200 {
		t.Fatalf("unexpected order: %+v", top)
	}

	rest, err := store.TopUserExperience(ctx, "g1", 2, 2)
	if err != nil {
		t.Fatalf("top offset: %v", err)
	}
	if len(rest) != 1 || rest[0].XP != 100 {
		t.Fatalf("unexpected page: %+v", rest)
	}
}

func TestVIPGrantLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(10000, 0)

	_, ok, err := store.GetVIPGrant(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get absent: %v", err)
	}
	if ok {
		t.Fatal("expected no grant")
	}

	grant := VIPGrant{GuildID: "g1", UserID: "u1", ExpiresAt: now.Add(time.Hour), GrantedBy: "admin", GrantedAt: now}
	if err := store.UpsertVIPGrant(ctx, grant); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := store.GetVIPGrant(ctx, "g1", "u1")
	if err != nil || !ok {
		t.Fatalf("get grant: ok=%v err=%v", ok, err)
	}
	if !got.ExpiresAt.Equal(grant.ExpiresAt) {
		t.Fatalf("expiry mismatch: %v vs %v", got.ExpiresAt, grant.ExpiresAt)
	}

	removed, err := store.DeleteVIPGrant(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}
	removed, err = store.DeleteVIPGrant(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if removed {
		t.Fatal("expected no removal the second time")
	}
}

func TestExpiredVIPGrants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(10000, 0)

	grants := []VIPGrant{
		{GuildID: "g1", UserID: "expired", ExpiresAt: now.Add(-time.Minute), GrantedBy: "a", GrantedAt: now.Add(-time.Hour)},
		{GuildID: "g1", UserID: "active", ExpiresAt: now.Add(time.Hour), GrantedBy: "a", GrantedAt: now},
		{GuildID: "g2", UserID: "expired2", ExpiresAt: now.Add(-time.Second), GrantedBy: "a", GrantedAt: now.Add(-time.Hour)},
	}
	for _, grant := range grants {
		if err := store.UpsertVIPGrant(ctx, grant); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	expired, err := store.ListExpiredVIPGrants(ctx, now)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 2 {
		t.Fatalf("expected 2 expired, got %d", len(expired))
	}

	removed, err := store.DeleteExpiredVIPGrants(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	count, err := store.CountActiveVIPGrants(ctx, "g1", now)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 active, got %d", count)
	}
}

func TestWalletLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	wallet, err := store.GetWallet(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if wallet.Balance != 0 || !wallet.LastDailyAt.IsZero() {
		t.Fatalf("fresh wallet should be empty: %+v", wallet)
	}

	wallet.GuildID = "g1"
	wallet.UserID = "u1"
	wallet.Balance = 1000
	wallet.LastDailyAt = time.Unix(7000, 0)
	if err := store.UpsertWallet(ctx, wallet); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetWallet(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if got.Balance != 1000 {
		t.Fatalf("expected balance 1000, got %d", got.Balance)
	}
	if !got.LastDailyAt.Equal(time.Unix(7000, 0)) {
		t.Fatalf("claim stamp lost: %v", got.LastDailyAt)
	}
}
