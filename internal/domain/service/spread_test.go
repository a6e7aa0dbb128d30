package service

import (
	"testing"

	"spreadmaster/internal/domain/model"
)

func TestSpreadPercentFormula(t *testing.T) {
	// 在 okx 以 100 买入，在 binance 以 101.2 卖出 → 1.2%
	if got := SpreadPercent(101.2, 100); got != 1.2 {
		t.Fatalf("expected 1.2, got %v", got)
	}
	// 负价差也要如实返回
	if got := SpreadPercent(99, 100); got != -1.0 {
		t.Fatalf("expected -1.0, got %v", got)
	}
	// 非法买价
	if got := SpreadPercent(100, 0); got != 0 {
		t.Fatalf("expected 0 for zero ask, got %v", got)
	}
}

func TestSpreadPercentRounding(t *testing.T) {
	// ((30001 - 30000) / 30000) * 100 = 0.00333... → 0.0033
	if got := SpreadPercent(30001, 30000); got != 0.0033 {
		t.Fatalf("expected 0.0033, got %v", got)
	}
}

func TestSpreadColorBands(t *testing.T) {
	cases := []struct {
		spread float64
		want   string
	}{
		{1.5, ColorHigh},
		{1.0, ColorHigh},
		{0.9999, ColorMedium},
		{0.5, ColorMedium},
		{0.4999, ColorLow},
		{0, ColorLow},
	}
	for _, c := range cases {
		if got := SpreadColor(c.spread); got != c.want {
			t.Errorf("spread %v: expected %s, got %s", c.spread, c.want, got)
		}
	}
}

func TestQuoteBuilderDirectedCombinations(t *testing.T) {
	b := NewQuoteBuilder(0.1, 10)

	tickers := map[string]model.Ticker{
		"binance": {Exchange: "binance", Pair: "BTC/USDT", Bid: 30300, Ask: 30310},
		"okx":     {Exchange: "okx", Pair: "BTC/USDT", Bid: 30000, Ask: 30010},
	}
	quotes := b.Build("BTC/USDT", tickers, 1000)

	// 只有 "okx 买 / binance 卖" 方向超过 0.1%
	if len(quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(quotes))
	}
	q := quotes[0]
	if q.BidExchange != "binance" || q.AskExchange != "okx" {
		t.Fatalf("wrong direction: %s/%s", q.BidExchange, q.AskExchange)
	}
	if q.Key() != "BTC/USDT|binance|okx" {
		t.Fatalf("unexpected key %s", q.Key())
	}
	if q.SpreadPercent != SpreadPercent(30300, 30010) {
		t.Fatalf("spread mismatch: %v", q.SpreadPercent)
	}
	if q.Color != SpreadColor(q.SpreadPercent) {
		t.Fatalf("color not derived from spread")
	}
}

func TestQuoteBuilderRejectsWideInnerSpread(t *testing.T) {
	b := NewQuoteBuilder(0.1, 10)

	// bitget 行情自身价差 1000/10000 = 10% >= 5%，必须整体丢弃
	tickers := map[string]model.Ticker{
		"binance": {Exchange: "binance", Pair: "BTC/USDT", Bid: 10500, Ask: 10510},
		"bitget":  {Exchange: "bitget", Pair: "BTC/USDT", Bid: 9000, Ask: 10000},
	}
	if quotes := b.Build("BTC/USDT", tickers, 0); len(quotes) != 0 {
		t.Fatalf("expected no quotes with bad ticker, got %d", len(quotes))
	}
	t.Logf("✓ wide inner spread rejected at source")
}

func TestQuoteBuilderBounds(t *testing.T) {
	b := NewQuoteBuilder(0.1, 10)

	// 20% 的"价差"超过 maxSpread，视为坏数据
	tickers := map[string]model.Ticker{
		"binance": {Exchange: "binance", Pair: "BTC/USDT", Bid: 12000, Ask: 12010},
		"okx":     {Exchange: "okx", Pair: "BTC/USDT", Bid: 9990, Ask: 10000},
	}
	if quotes := b.Build("BTC/USDT", tickers, 0); len(quotes) != 0 {
		t.Fatalf("expected out-of-band spread dropped, got %d quotes", len(quotes))
	}
}
