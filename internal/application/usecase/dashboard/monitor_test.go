package dashboard

import (
	"testing"
	"time"

	"spreadmaster/internal/domain/model"
)

func TestMonitorSignificance(t *testing.T) {
	m := NewMonitor(true)
	now := time.Now()

	// 第一周期只建立基线
	if got := m.Observe([]model.SpreadQuote{quote("BTC/USDT", "binance", "okx", 1.0)}, now); got != nil {
		t.Fatalf("first cycle has no previous values, got %d advisories", len(got))
	}

	// 相对 +50%、绝对 +0.5pp：显著
	got := m.Observe([]model.SpreadQuote{quote("BTC/USDT", "binance", "okx", 1.5)}, now.Add(time.Second))
	if len(got) != 1 {
		t.Fatalf("want one advisory, got %d", len(got))
	}
	if got[0].Previous != 1.0 || got[0].Current != 1.5 {
		t.Fatalf("advisory payload wrong: %+v", got[0])
	}
}

func TestMonitorRequiresBothCriteria(t *testing.T) {
	m := NewMonitor(true)
	now := time.Now()

	// 相对变化够大但绝对变化只有 0.05pp
	m.Observe([]model.SpreadQuote{quote("A/USDT", "binance", "okx", 0.2)}, now)
	if got := m.Observe([]model.SpreadQuote{quote("A/USDT", "binance", "okx", 0.25)}, now.Add(time.Second)); len(got) != 0 {
		t.Fatalf("small absolute change must not be significant, got %d", len(got))
	}

	// 绝对变化够大但相对只有 10%
	m2 := NewMonitor(true)
	m2.Observe([]model.SpreadQuote{quote("B/USDT", "binance", "okx", 2.0)}, now)
	if got := m2.Observe([]model.SpreadQuote{quote("B/USDT", "binance", "okx", 2.2)}, now.Add(time.Second)); len(got) != 0 {
		t.Fatalf("small relative change must not be significant, got %d", len(got))
	}
}

func TestMonitorBatchRateLimitAndTop3(t *testing.T) {
	m := NewMonitor(true)
	now := time.Now()

	base := []model.SpreadQuote{
		quote("A/USDT", "binance", "okx", 1.0),
		quote("B/USDT", "binance", "okx", 1.0),
		quote("C/USDT", "binance", "okx", 1.0),
		quote("D/USDT", "binance", "okx", 1.0),
	}
	m.Observe(base, now)

	jump := []model.SpreadQuote{
		quote("A/USDT", "binance", "okx", 1.3),
		quote("B/USDT", "binance", "okx", 1.9), // 最大
		quote("C/USDT", "binance", "okx", 1.5),
		quote("D/USDT", "binance", "okx", 1.4),
	}
	got := m.Observe(jump, now.Add(time.Second))
	if len(got) != advisoryBatchTop {
		t.Fatalf("batch capped at %d, got %d", advisoryBatchTop, len(got))
	}
	if got[0].Key != "B/USDT|binance|okx" {
		t.Fatalf("largest absolute change first, got %s", got[0].Key)
	}

	// 30 秒内的第二批被限流
	again := m.Observe(base, now.Add(2*time.Second))
	if len(again) != 0 {
		t.Fatalf("second batch within 30s must be dropped, got %d", len(again))
	}

	// 窗口过后恢复
	m.Observe(jump, now.Add(40*time.Second))
	late := m.Observe(base, now.Add(75*time.Second))
	if len(late) == 0 {
		t.Fatal("batches must resume after the rate-limit window")
	}
}

func TestMonitorDisabled(t *testing.T) {
	m := NewMonitor(false)
	now := time.Now()
	m.Observe([]model.SpreadQuote{quote("A/USDT", "binance", "okx", 1.0)}, now)
	if got := m.Observe([]model.SpreadQuote{quote("A/USDT", "binance", "okx", 3.0)}, now.Add(time.Second)); got != nil {
		t.Fatal("disabled monitor must stay silent")
	}
}
