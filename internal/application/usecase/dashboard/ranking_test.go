package dashboard

import (
	"testing"

	"spreadmaster/internal/domain/model"
)

func testSession(exchanges, pairs []string) *Session {
	s := newSession(5000, DisplayLimitDefault)
	s.applySnapshot(&model.Snapshot{
		EnabledExchanges: exchanges,
		SelectedPairs:    pairs,
	})
	return s
}

func noContract(string) bool { return false }

func TestRankingPlaceholders(t *testing.T) {
	r := NewRanking()
	sess := testSession([]string{"binance", "okx"}, []string{"BTC/USDT"})

	// 快照本身为空：尚未收到数据
	rows, ph := r.Render(nil, sess, noContract)
	if len(rows) != 0 || ph != model.PlaceholderLoading {
		t.Fatalf("empty snapshot -> loading placeholder, got %q", ph)
	}

	// 快照非空但过滤后为空：当前选择无数据
	snap := []model.SpreadQuote{quote("ETH/USDT", "binance", "okx", 1.0)}
	rows, ph = r.Render(snap, sess, noContract)
	if len(rows) != 0 || ph != model.PlaceholderFiltered {
		t.Fatalf("filtered-empty -> selection placeholder, got %q", ph)
	}
}

func TestRankingFilterSortTruncate(t *testing.T) {
	r := NewRanking()
	sess := testSession([]string{"binance", "okx", "bybit"}, []string{"BTC/USDT", "ETH/USDT"})
	sess.displayLimit = 2

	snap := []model.SpreadQuote{
		quote("BTC/USDT", "binance", "okx", 0.6),
		quote("ETH/USDT", "bybit", "okx", 1.4),
		quote("BTC/USDT", "okx", "bybit", 0.9),
		quote("BTC/USDT", "binance", "mexc", 9.9),  // mexc 未启用
		quote("DOGE/USDT", "binance", "okx", 9.9),  // 交易对未选中
	}
	rows, ph := r.Render(snap, sess, noContract)
	if ph != model.PlaceholderNone {
		t.Fatalf("unexpected placeholder %q", ph)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want truncated to 2", len(rows))
	}
	if rows[0].SpreadPercent != 1.4 || rows[1].SpreadPercent != 0.9 {
		t.Fatalf("descending order violated: %v, %v", rows[0].SpreadPercent, rows[1].SpreadPercent)
	}
	if rows[0].Rank != 1 || rows[1].Rank != 2 {
		t.Fatal("rank numbering must be 1-based and sequential")
	}
}

func TestRankingSingleQuote(t *testing.T) {
	// 单条报价 + 双所与交易对均启用 + 默认展示条数 → 恰好该条排第一位
	r := NewRanking()
	sess := testSession([]string{"binance", "okx"}, []string{"BTC/USDT"})

	rows, ph := r.Render([]model.SpreadQuote{quote("BTC/USDT", "binance", "okx", 1.2)}, sess, noContract)
	if ph != model.PlaceholderNone || len(rows) != 1 {
		t.Fatalf("want exactly one row, got %d (ph=%q)", len(rows), ph)
	}
	if rows[0].Key != "BTC/USDT|binance|okx" || rows[0].Rank != 1 {
		t.Fatalf("unexpected head row %+v", rows[0])
	}
}

func TestRankingMovementTags(t *testing.T) {
	r := NewRanking()
	sess := testSession([]string{"binance", "okx", "bybit"}, []string{"BTC/USDT", "ETH/USDT", "BNB/USDT"})

	first := []model.SpreadQuote{
		quote("BTC/USDT", "binance", "okx", 2.0),
		quote("ETH/USDT", "bybit", "okx", 1.0),
	}
	rows, _ := r.Render(first, sess, noContract)
	for _, row := range rows {
		if row.Movement != model.MoveNone {
			t.Fatalf("unseen keys get no movement tag, got %v", row.Movement)
		}
	}

	// 第二周期：ETH 升到第一，BTC 降到第二，新键 BNB 无标记
	second := []model.SpreadQuote{
		quote("BTC/USDT", "binance", "okx", 0.8),
		quote("ETH/USDT", "bybit", "okx", 1.5),
		quote("BNB/USDT", "binance", "bybit", 0.5),
	}
	rows, _ = r.Render(second, sess, noContract)
	if rows[0].Movement != model.MoveUp {
		t.Fatalf("ETH must be tagged up, got %v", rows[0].Movement)
	}
	if rows[1].Movement != model.MoveDown {
		t.Fatalf("BTC must be tagged down, got %v", rows[1].Movement)
	}
	if rows[2].Movement != model.MoveNone {
		t.Fatalf("new key must be untagged, got %v", rows[2].Movement)
	}
}

func TestRankingTrendAndContractFlags(t *testing.T) {
	r := NewRanking()
	sess := testSession([]string{"binance", "okx"}, []string{"BTC/USDT"})
	key := "BTC/USDT|binance|okx"

	r.Render([]model.SpreadQuote{quote("BTC/USDT", "binance", "okx", 1.0)}, sess, noContract)
	rows, _ := r.Render([]model.SpreadQuote{quote("BTC/USDT", "binance", "okx", 1.1)}, sess, func(k string) bool {
		return k == key
	})
	if rows[0].TrendLevel != 1 {
		t.Fatalf("confirmed rise must advance trend to 1, got %d", rows[0].TrendLevel)
	}
	if !rows[0].HasContract {
		t.Fatal("has-contract flag must reflect the lifecycle callback")
	}
}
