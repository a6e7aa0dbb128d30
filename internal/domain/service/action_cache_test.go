package service

import (
	"testing"
	"time"
)

func TestRecentActionCacheWindow(t *testing.T) {
	cache := NewRecentActionCache(10 * time.Minute)
	now := time.Unix(1_700_000_000, 0)
	key := "BTC/USDT|binance|okx"

	if cache.Recently(key, now) {
		t.Fatal("fresh cache must report no recent action")
	}

	cache.Mark(key, now)
	if !cache.Recently(key, now.Add(9*time.Minute)) {
		t.Fatal("action within window must be recent")
	}
	if cache.Recently(key, now.Add(11*time.Minute)) {
		t.Fatal("action beyond window must expire")
	}
}

func TestRecentActionCachePrunes(t *testing.T) {
	cache := NewRecentActionCache(time.Minute)
	now := time.Unix(1_700_000_000, 0)

	cache.Mark("a", now)
	cache.Mark("b", now)

	// 过期后的查询顺带清理
	if cache.Recently("a", now.Add(2*time.Minute)) {
		t.Fatal("expired entry must not be recent")
	}
	if len(cache.actions) != 0 {
		t.Fatalf("expired entries should be pruned, %d left", len(cache.actions))
	}
	t.Logf("✓ expired actions pruned")
}

func TestPositionSizer(t *testing.T) {
	s := PositionSizer{BankPercent: 10, MaxContracts: 10}

	// 1000 USDT 的 10% 分 10 个槽位 → 每槽 10 USDT
	if got := s.SizeUSDT(1000); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
	if got := s.SizeUSDT(0); got != 0 {
		t.Fatalf("expected 0 for empty balance, got %v", got)
	}
	if got := (PositionSizer{}).SizeUSDT(1000); got != 0 {
		t.Fatalf("expected 0 for zero config, got %v", got)
	}
}
