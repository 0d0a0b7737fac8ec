package economy

import (
	"context"
	"testing"
	"time"

	"lumina-community/internal/config"
	"lumina-community/internal/storage"
	"lumina-community/internal/vip"

	"go.uber.org/zap"
)

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

func newTestService(t *testing.T) (*Service, *vip.Registry) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	defaults := config.DefaultConfig()
	registry := vip.NewRegistry(store, defaults.VIP, zap.NewNop())
	registry.WithClock(fakeClock{now: time.Unix(100000, 0)})
	svc := NewService(store, registry, defaults.Economy, zap.NewNop())
	svc.WithClock(fakeClock{now: time.Unix(100000, 0)})
	return svc, registry
}

func TestDailyClaim(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Daily(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if !result.Granted {
		t.Fatal("expected reward")
	}
	if result.Amount != 1000 || result.Balance != 1000 {
		t.Fatalf("unexpected amounts: %+v", result)
	}
	if result.VIP {
		t.Fatal("unexpected vip flag")
	}
}

func TestDailyCooldown(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	t0 := time.Unix(100000, 0)

	if _, err := svc.Daily(ctx, "g1", "u1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	svc.WithClock(fakeClock{now: t0.Add(23 * time.Hour)})
	result, err := svc.Daily(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("blocked claim: %v", err)
	}
	if result.Granted {
		t.Fatal("expected cooldown block")
	}
	if result.Wait != time.Hour {
		t.Fatalf("expected 1h wait, got %v", result.Wait)
	}
	if result.Balance != 1000 {
		t.Fatalf("blocked claim changed balance: %d", result.Balance)
	}

	svc.WithClock(fakeClock{now: t0.Add(24 * time.Hour)})
	result, err = svc.Daily(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("boundary claim: %v", err)
	}
	if !result.Granted {
		t.Fatal("expected claim exactly at cooldown expiry")
	}
	if result.Balance != 2000 {
		t.Fatalf("expected balance 2000, got %d", result.Balance)
	}
}

func TestDailyVIPBonus(t *testing.T) {
	svc, registry := newTestService(t)
	ctx := context.Background()

	if _, err := registry.Grant(ctx, "g1", "u1", 7, "admin"); err != nil {
		t.Fatalf("grant: %v", err)
	}

	result, err := svc.Daily(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if !result.VIP {
		t.Fatal("expected vip flag")
	}
	if result.Amount != 2000 {
		t.Fatalf("expected doubled reward 2000, got %d", result.Amount)
	}
}

func TestBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wallet, err := svc.Balance(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if wallet.Balance != 0 || wallet.Bank != 0 {
		t.Fatalf("fresh wallet should be empty: %+v", wallet)
	}

	if _, err := svc.Daily(ctx, "g1", "u1"); err != nil {
		t.Fatalf("daily: %v", err)
	}
	wallet, err = svc.Balance(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("balance after claim: %v", err)
	}
	if wallet.Balance != 1000 {
		t.Fatalf("expected balance 1000, got %d", wallet.Balance)
	}
}
