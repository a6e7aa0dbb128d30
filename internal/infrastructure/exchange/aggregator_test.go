package exchange

import (
	"context"
	"sync"
	"testing"
	"time"

	"spreadmaster/internal/domain/model"
)

// stubClient 可编程的交易所桩
type stubClient struct {
	name string

	mu      sync.Mutex
	bid     float64
	ask     float64
	err     error
	calls   int
	pingErr error
}

func (s *stubClient) Name() string         { return s.name }
func (s *stubClient) HasCredentials() bool { return false }

func (s *stubClient) BookTicker(ctx context.Context, pair string) (model.Ticker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return model.Ticker{}, s.err
	}
	return model.Ticker{
		Exchange:  s.name,
		Pair:      pair,
		Bid:       s.bid,
		Ask:       s.ask,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (s *stubClient) Candles(ctx context.Context, pair, interval string, limit int) ([]model.Candle, error) {
	return nil, nil
}
func (s *stubClient) Ping(ctx context.Context) error { return s.pingErr }
func (s *stubClient) Balances(ctx context.Context, assets []string) (map[string]float64, error) {
	return nil, ErrNotSupported
}

func (s *stubClient) set(bid, ask float64, err error) {
	s.mu.Lock()
	s.bid, s.ask, s.err = bid, ask, err
	s.mu.Unlock()
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func twoExchangeAggregator() (*Aggregator, *stubClient, *stubClient) {
	a := &stubClient{name: Binance, bid: 100.9, ask: 101.0}
	b := &stubClient{name: OKX, bid: 100.0, ask: 100.1}
	agg := NewAggregator(
		map[string]Client{Binance: a, OKX: b},
		[]string{Binance, OKX},
		[]string{"BTC/USDT"},
		0.1, 10.0,
	)
	return agg, a, b
}

func TestAggregatorPollBuildsQuotes(t *testing.T) {
	agg, _, _ := twoExchangeAggregator()

	snap, err := agg.Poll(context.Background())
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if len(snap.EnabledExchanges) != 2 || len(snap.SelectedPairs) != 1 {
		t.Fatalf("selection missing from snapshot: %+v", snap)
	}
	// binance bid 100.9 / okx ask 100.1 → 0.7992%（反方向为负，被 minSpread 过滤）
	if len(snap.Spreads) != 1 {
		t.Fatalf("quotes = %d, want 1 (%+v)", len(snap.Spreads), snap.Spreads)
	}
	q := snap.Spreads[0]
	if q.BidExchange != Binance || q.AskExchange != OKX {
		t.Fatalf("direction wrong: %+v", q)
	}
	if q.SpreadPercent != 0.7992 {
		t.Fatalf("spread = %v, want 0.7992", q.SpreadPercent)
	}
}

func TestAggregatorCooldownSkipsExchange(t *testing.T) {
	agg, a, _ := twoExchangeAggregator()

	// binance 整轮失败 → 进入冷却
	a.set(0, 0, &HTTPError{Status: 502})
	// 缓存为空（尚未成功过），失败后没有可回退的值
	if _, err := agg.Poll(context.Background()); err != nil {
		t.Fatalf("poll must tolerate one failing exchange: %v", err)
	}
	if until := agg.CooldownUntil(Binance); !until.After(time.Now()) {
		t.Fatal("502 must start a cooldown")
	}

	// 冷却期内下一轮不再调用 binance
	before := a.callCount()
	if _, err := agg.Poll(context.Background()); err != nil {
		t.Fatalf("second poll failed: %v", err)
	}
	if a.callCount() != before {
		t.Fatal("cooling exchange must be skipped")
	}
}

func TestAggregatorCooldownResetsOnSuccess(t *testing.T) {
	agg, a, _ := twoExchangeAggregator()

	a.set(0, 0, &HTTPError{Status: 500})
	_, _ = agg.Poll(context.Background())

	// 手动让冷却过期后恢复成功
	agg.mu.Lock()
	agg.cool[Binance].until = time.Now().Add(-time.Second)
	agg.mu.Unlock()

	a.set(100.9, 101.0, nil)
	_, _ = agg.Poll(context.Background())
	if until := agg.CooldownUntil(Binance); until.After(time.Now()) {
		t.Fatal("success must clear the cooldown")
	}
}

func TestAggregatorCacheServesDuringFailure(t *testing.T) {
	agg, a, _ := twoExchangeAggregator()

	// 先成功一轮填充缓存
	if snap, _ := agg.Poll(context.Background()); len(snap.Spreads) != 1 {
		t.Fatal("warmup poll must produce a quote")
	}

	// 失败的刷新在 TTL 内回退到缓存值
	a.set(0, 0, &HTTPError{Status: 500})
	snap, _ := agg.Poll(context.Background())
	if len(snap.Spreads) != 1 {
		t.Fatalf("cached ticker must keep the quote alive, got %d", len(snap.Spreads))
	}
}

func TestAggregatorSelectionMutations(t *testing.T) {
	agg, _, _ := twoExchangeAggregator()

	if err := agg.SetExchangeEnabled("binance", false); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if err := agg.SetExchangeEnabled("hyperliquid", true); err == nil {
		t.Fatal("unknown exchange must be rejected")
	}

	agg.SetPairs([]string{"eth/usdt", "ETH/USDT", "junk"})
	exchanges, pairs := agg.Selection()
	if len(exchanges) != 1 || exchanges[0] != OKX {
		t.Fatalf("enabled = %v, want [okx]", exchanges)
	}
	if len(pairs) != 1 || pairs[0] != "ETH/USDT" {
		t.Fatalf("pairs = %v, want [ETH/USDT]", pairs)
	}

	// 被禁用交易所的报价从快照消失
	snap, _ := agg.Poll(context.Background())
	if len(snap.Spreads) != 0 {
		t.Fatalf("single exchange cannot form a spread, got %d", len(snap.Spreads))
	}
}
