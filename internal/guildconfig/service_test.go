package guildconfig

import (
	"context"
	"testing"

	"lumina-community/internal/config"
	"lumina-community/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(store, config.DefaultConfig().XP)
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestGetReturnsDefaults(t *testing.T) {
	svc := newTestService(t)
	cfg, err := svc.Get(context.Background(), "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.BaseXP != 15 || cfg.MaxXP != 25 || cfg.CooldownSeconds != 60 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestApplyUpdatesOnlyGivenFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cfg, err := svc.Apply(ctx, "g1", Update{BaseXP: intPtr(10), MaxXP: intPtr(30)})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.BaseXP != 10 || cfg.MaxXP != 30 {
		t.Fatalf("update not applied: %+v", cfg)
	}
	if cfg.XPPerLevel != 100 {
		t.Fatalf("untouched field changed: %+v", cfg)
	}

	got, err := svc.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != cfg {
		t.Fatalf("persisted config diverged: %+v vs %+v", got, cfg)
	}
}

func TestApplyCooldownHalvesVIPCooldown(t *testing.T) {
	svc := newTestService(t)
	cfg, err := svc.Apply(context.Background(), "g1", Update{CooldownSeconds: intPtr(90)})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.CooldownSeconds != 90 {
		t.Fatalf("expected cooldown 90, got %d", cfg.CooldownSeconds)
	}
	if cfg.VIPCooldownSeconds != 45 {
		t.Fatalf("expected vip cooldown 45, got %d", cfg.VIPCooldownSeconds)
	}
}

func TestApplyExplicitVIPCooldownWins(t *testing.T) {
	svc := newTestService(t)
	cfg, err := svc.Apply(context.Background(), "g1", Update{
		CooldownSeconds:    intPtr(100),
		VIPCooldownSeconds: intPtr(20),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.VIPCooldownSeconds != 20 {
		t.Fatalf("expected vip cooldown 20, got %d", cfg.VIPCooldownSeconds)
	}
}

func TestApplyRejectsInvalid(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []Update{
		{BaseXP: intPtr(0)},
		{MaxXP: intPtr(5)},
		{XPPerLevel: intPtr(0)},
		{CooldownSeconds: intPtr(-1)},
		{VIPCooldownSeconds: intPtr(120)},
		{VIPMultiplier: floatPtr(0.5)},
	}
	for _, update := range cases {
		if _, err := svc.Apply(ctx, "g1", update); err == nil {
			t.Fatalf("expected rejection for %+v", update)
		}
	}

	// Nothing invalid may have been persisted.
	cfg, err := svc.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.BaseXP != 15 || cfg.VIPMultiplier != 2.0 {
		t.Fatalf("invalid update leaked into storage: %+v", cfg)
	}
}
