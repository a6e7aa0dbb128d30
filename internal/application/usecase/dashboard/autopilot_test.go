package dashboard

import (
	"testing"
	"time"

	"spreadmaster/internal/domain/model"
)

func pilotConfig(open, close float64, maxContracts int) model.AutoTradeConfig {
	return model.AutoTradeConfig{
		OpenThreshold:  open,
		CloseThreshold: close,
		MaxContracts:   maxContracts,
		BankPercent:    10,
	}
}

func TestPilotDisabledWhenThresholdZero(t *testing.T) {
	p := NewPilot(pilotConfig(0, 0, 10))
	sess := testSession([]string{"binance", "okx"}, []string{"BTC/USDT"})
	book := NewBook()

	// 开仓阈值为 0：无论价差多大都不开仓
	snap := []model.SpreadQuote{quote("BTC/USDT", "binance", "okx", 9.9)}
	if got := p.Entries(snap, sess, book, time.Now()); len(got) != 0 {
		t.Fatalf("zero threshold must yield no entries, got %d", len(got))
	}
	if p.Config().Enabled() {
		t.Fatal("both thresholds zero -> controller disabled")
	}
}

func TestPilotEntryRespectsFiltersAndExisting(t *testing.T) {
	p := NewPilot(pilotConfig(0.5, 0, 10))
	sess := testSession([]string{"binance", "okx"}, []string{"BTC/USDT"})
	book := NewBook()
	now := time.Now()

	held := quote("BTC/USDT", "okx", "binance", 0.9)
	book.Open(held, false, 0, 0, now)

	snap := []model.SpreadQuote{
		quote("BTC/USDT", "binance", "okx", 0.6),  // 合格
		quote("BTC/USDT", "binance", "okx", 0.3),  // 低于阈值（同键重复仅示意）
		quote("ETH/USDT", "binance", "okx", 2.0),  // 交易对未选中
		quote("BTC/USDT", "binance", "mexc", 2.0), // mexc 未启用
		held, // 已有活跃合约
	}
	got := p.Entries(snap, sess, book, now)
	if len(got) != 1 || got[0].Key() != "BTC/USDT|binance|okx" {
		t.Fatalf("exactly the qualifying unheld quote must be picked, got %d", len(got))
	}
}

func TestPilotMaxContractsCap(t *testing.T) {
	p := NewPilot(pilotConfig(0.5, 0, 2))
	sess := testSession([]string{"binance", "okx", "bybit"}, []string{"BTC/USDT", "ETH/USDT", "BNB/USDT"})
	book := NewBook()
	now := time.Now()

	book.Open(quote("BNB/USDT", "binance", "bybit", 1.0), false, 0, 0, now)

	snap := []model.SpreadQuote{
		quote("BTC/USDT", "binance", "okx", 1.2),
		quote("ETH/USDT", "bybit", "okx", 0.8),
	}
	// 上限 2、已持有 1：只允许再开 1 个
	got := p.Entries(snap, sess, book, now)
	if len(got) != 1 {
		t.Fatalf("cap must leave one slot, got %d entries", len(got))
	}

	book.Open(got[0], false, 0, 0, now)
	if got := p.Entries(snap, sess, book, now); len(got) != 0 {
		t.Fatalf("at capacity no entries allowed, got %d", len(got))
	}
}

func TestPilotSlotGoesToWidestSpread(t *testing.T) {
	// 前台模式、仅剩一个名额：窄价差排在快照前面也抢不到
	p := NewPilot(pilotConfig(0.5, 0, 1))
	sess := testSession([]string{"binance", "okx", "bybit"}, []string{"BTC/USDT", "ETH/USDT"})

	snap := []model.SpreadQuote{
		quote("BTC/USDT", "binance", "okx", 0.6),
		quote("ETH/USDT", "bybit", "okx", 1.4),
	}
	got := p.Entries(snap, sess, NewBook(), time.Now())
	if len(got) != 1 || got[0].Key() != "ETH/USDT|bybit|okx" {
		t.Fatalf("widest spread must claim the last slot, got %+v", got)
	}
}

func TestPilotCooldownOnlyInBackgroundMode(t *testing.T) {
	now := time.Now()
	snap := []model.SpreadQuote{quote("BTC/USDT", "binance", "okx", 1.2)}
	sess := testSession([]string{"binance", "okx"}, []string{"BTC/USDT"})

	// 前台模式：冷却窗口不生效
	fg := NewPilot(pilotConfig(0.5, 0, 10))
	fg.MarkAction("BTC/USDT|binance|okx", now)
	if got := fg.Entries(snap, sess, NewBook(), now); len(got) != 1 {
		t.Fatalf("foreground mode ignores cooldown, got %d", len(got))
	}

	// 后台常驻模式：10 分钟内不重复动作
	cfg := pilotConfig(0.5, 0, 10)
	cfg.AutoEnabled = true
	bg := NewPilot(cfg)
	bg.MarkAction("BTC/USDT|binance|okx", now)
	if got := bg.Entries(snap, sess, NewBook(), now); len(got) != 0 {
		t.Fatalf("background cooldown must suppress reopen, got %d", len(got))
	}
	if got := bg.Entries(snap, sess, NewBook(), now.Add(11*time.Minute)); len(got) != 1 {
		t.Fatalf("cooldown expired, entry expected, got %d", len(got))
	}
}

func TestPilotExtraCloseRule(t *testing.T) {
	cfg := pilotConfig(1.5, 0.3, 10)
	cfg.AutoEnabled = true
	p := NewPilot(cfg)

	rule := p.ExtraCloseRule()
	if rule == nil {
		t.Fatal("background mode must supply an extra close rule")
	}

	cases := []struct {
		name  string
		entry float64
		cur   float64
		want  bool
	}{
		{"below global threshold", 1.0, 0.25, true},
		{"thirty percent convergence", 2.0, 1.4, true},
		{"collapse below half entry", 2.0, 0.9, true},
		{"still open", 2.0, 1.8, false},
	}
	for _, tc := range cases {
		c := &model.Contract{EntrySpread: tc.entry, CurrentSpread: tc.cur}
		if got := rule(c); got != tc.want {
			t.Errorf("%s: rule = %v, want %v", tc.name, got, tc.want)
		}
	}

	// 前台模式没有附加规则
	if NewPilot(pilotConfig(1.5, 0.3, 10)).ExtraCloseRule() != nil {
		t.Fatal("foreground mode must not add close rules")
	}
}

func TestPilotApplySuggestion(t *testing.T) {
	p := NewPilot(pilotConfig(1.5, 0.3, 10))

	applied := p.ApplySuggestion(&model.ThresholdSuggestion{
		OpenThreshold:  5.0, // 越界 → 2.0
		CloseThreshold: 0.2,
		MaxContracts:   50, // 越界 → 20
	})
	if applied.OpenThreshold != model.ThresholdMax {
		t.Fatalf("open threshold = %v, want clamped %v", applied.OpenThreshold, model.ThresholdMax)
	}
	if applied.CloseThreshold != 0.2 {
		t.Fatalf("close threshold = %v, want 0.2", applied.CloseThreshold)
	}
	if applied.MaxContracts != model.MaxContractsMax {
		t.Fatalf("max contracts = %d, want clamped %d", applied.MaxContracts, model.MaxContractsMax)
	}

	// nil 建议：配置原样保留
	if again := p.ApplySuggestion(nil); again != applied {
		t.Fatal("nil suggestion must leave config untouched")
	}
}
