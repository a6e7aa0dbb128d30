package model

import "strings"

// ========== Spread Models ==========

// SpreadQuote 跨所价差报价：在 AskExchange 买入、在 BidExchange 卖出
// 每个轮询周期整体替换，身份仅由 Key 决定
type SpreadQuote struct {
	Pair          string  `json:"pair"`           // 交易对，如 "BTC/USDT"
	BidExchange   string  `json:"bid_exchange"`   // 卖出交易所（吃对方买价）
	AskExchange   string  `json:"ask_exchange"`   // 买入交易所（吃对方卖价）
	BidPrice      float64 `json:"bid_price"`
	AskPrice      float64 `json:"ask_price"`
	SpreadPercent float64 `json:"spread_percent"` // 价差百分比，保留 4 位小数
	Color         string  `json:"color"`          // 前端分级色 (#22c55e / #eab308 / #6b7280)
	Timestamp     int64   `json:"ts_ms"`
}

// Key 报价身份键 pair|bidExchange|askExchange
func (q SpreadQuote) Key() string {
	return SpreadKey(q.Pair, q.BidExchange, q.AskExchange)
}

// SpreadKey 构造身份键
func SpreadKey(pair, bidExchange, askExchange string) string {
	return pair + "|" + bidExchange + "|" + askExchange
}

// SplitSpreadKey 拆分身份键，格式非法时 ok=false
func SplitSpreadKey(key string) (pair, bidExchange, askExchange string, ok bool) {
	parts := strings.Split(key, "|")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// Snapshot 一次轮询返回的完整状态
// 过滤集合由状态提供方持有，随每次快照带回
type Snapshot struct {
	Spreads          []SpreadQuote `json:"spreads"`
	EnabledExchanges []string      `json:"enabled_exchanges"`
	SelectedPairs    []string      `json:"selected_pairs"`
	Timestamp        int64         `json:"ts_ms"`
}
