package model

// ========== Exchange Market Data ==========

// Ticker 单所最优买卖价
type Ticker struct {
	Exchange  string  `json:"exchange"`
	Pair      string  `json:"pair"` // "BTC/USDT"
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Last      float64 `json:"last,omitempty"`
	Timestamp int64   `json:"ts_ms"`
}

// InnerSpread 交易所内部买卖价差比例 (ask-bid)/ask，用于数据质量过滤
func (t Ticker) InnerSpread() float64 {
	if t.Ask <= 0 {
		return 0
	}
	return (t.Ask - t.Bid) / t.Ask
}

// Candle OHLCV K线
type Candle struct {
	Timestamp int64   `json:"ts_ms"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// ChartData 图表黑盒的输入：K线 + 指标序列
type ChartData struct {
	Pair     string    `json:"pair"`
	Exchange string    `json:"exchange"`
	Interval string    `json:"interval"`
	Candles  []Candle  `json:"candles"`
	StochK   []float64 `json:"stoch_k"`
	StochD   []float64 `json:"stoch_d"`
}

// ========== Exchange Status ==========

// ExchangeStatus 交易所运行状态，由后台刷新服务维护
type ExchangeStatus struct {
	Name          string             `json:"name"`
	Enabled       bool               `json:"enabled"`
	Connected     bool               `json:"connected"` // 是否配置了 API 凭证（仅展示）
	Healthy       bool               `json:"healthy"`
	PingMs        float64            `json:"ping_ms"` // EWMA 0.7*old + 0.3*new
	LastError     string             `json:"last_error,omitempty"`
	LastChecked   int64              `json:"last_checked,omitempty"`
	CooldownUntil int64              `json:"cooldown_until,omitempty"` // 故障冷却截止 unix ms
	Balances      map[string]float64 `json:"balances,omitempty"`       // asset -> free
}

// BalanceAssets 状态刷新时查询的资产列表
var BalanceAssets = []string{"USDT", "BTC", "ETH", "BNB"}

// ========== Trading Pair Catalog ==========

// TradingPair 可选交易对及其排序优先级
type TradingPair struct {
	Symbol   string `json:"symbol"`
	Priority int    `json:"priority"` // 越大越靠前
	Active   bool   `json:"active"`
}

// DefaultPairs 主流交易对目录，首次启动时写入存储
func DefaultPairs() []TradingPair {
	return []TradingPair{
		{Symbol: "BTC/USDT", Priority: 10, Active: true},
		{Symbol: "ETH/USDT", Priority: 9, Active: true},
		{Symbol: "BNB/USDT", Priority: 8, Active: true},
		{Symbol: "SOL/USDT", Priority: 7, Active: true},
		{Symbol: "XRP/USDT", Priority: 6, Active: true},
		{Symbol: "ADA/USDT", Priority: 5, Active: true},
		{Symbol: "DOGE/USDT", Priority: 4, Active: true},
		{Symbol: "MATIC/USDT", Priority: 3, Active: true},
		{Symbol: "DOT/USDT", Priority: 2, Active: true},
		{Symbol: "LINK/USDT", Priority: 1, Active: true},
	}
}
