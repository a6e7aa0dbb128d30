package model

import "time"

// ========== Virtual Contract Models ==========

// Contract 虚拟价差合约：押注已打开的价差会收敛
// 由生命周期管理器独占持有，每个轮询周期刷新 CurrentSpread
type Contract struct {
	ID             string  `json:"id"`
	Key            string  `json:"key"` // pair|bidExchange|askExchange
	Pair           string  `json:"pair"`
	BuyExchange    string  `json:"buy_exchange"`  // 买入腿（ask 所）
	SellExchange   string  `json:"sell_exchange"` // 卖出腿（bid 所）
	EntrySpread    float64 `json:"entry_spread"`
	CurrentSpread  float64 `json:"current_spread"`
	OpenTime       int64   `json:"open_time"` // unix ms
	AutoClose      bool    `json:"auto_close"`
	CloseThreshold float64 `json:"close_threshold"` // 单合约平仓阈值（覆盖全局）
	SizeUSDT       float64 `json:"size_usdt,omitempty"`
}

// Profit 即时收益：价差收敛即为盈利
func (c *Contract) Profit() float64 {
	return c.EntrySpread - c.CurrentSpread
}

// Elapsed 持仓时长
func (c *Contract) Elapsed(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(c.OpenTime))
}

// ClosedContract 已平仓合约的不可变快照
type ClosedContract struct {
	Contract
	CloseTime  int64   `json:"close_time"` // unix ms
	Profit     float64 `json:"profit"`
	DurationMs int64   `json:"duration_ms"`
	WasAuto    bool    `json:"was_auto"` // 是否自动平仓
}

// ClosedHistoryLimit 平仓历史上限，超出后淘汰最旧记录
const ClosedHistoryLimit = 100

// ========== Auto-Trade Configuration ==========

// 配置边界（越界值收敛到边界而不是报错）
const (
	ThresholdMin    = 0.0
	ThresholdMax    = 2.0
	MaxContractsMin = 1
	MaxContractsMax = 20
	BankPercentMin  = 1
	BankPercentMax  = 100
)

// AutoTradeConfig 自动交易配置，进程级，外部持久化
// AutoEnabled 单独控制后台常驻模式；前台自动开平仓只看阈值
type AutoTradeConfig struct {
	AutoEnabled    bool    `json:"auto_enabled"`
	OpenThreshold  float64 `json:"open_threshold"`
	CloseThreshold float64 `json:"close_threshold"`
	MaxContracts   int     `json:"max_contracts"`
	BankPercent    int     `json:"bank_percent"`
}

// Enabled 自动控制器是否生效：任一阈值大于零即生效
func (c AutoTradeConfig) Enabled() bool {
	return c.OpenThreshold > 0 || c.CloseThreshold > 0
}

// Clamp 把所有字段收敛到文档化的边界内
func (c AutoTradeConfig) Clamp() AutoTradeConfig {
	c.OpenThreshold = ClampThreshold(c.OpenThreshold)
	c.CloseThreshold = ClampThreshold(c.CloseThreshold)
	if c.MaxContracts < MaxContractsMin {
		c.MaxContracts = MaxContractsMin
	}
	if c.MaxContracts > MaxContractsMax {
		c.MaxContracts = MaxContractsMax
	}
	if c.BankPercent < BankPercentMin {
		c.BankPercent = BankPercentMin
	}
	if c.BankPercent > BankPercentMax {
		c.BankPercent = BankPercentMax
	}
	return c
}

// ClampThreshold 价差阈值收敛到 [0,2]
func ClampThreshold(v float64) float64 {
	if v < ThresholdMin {
		return ThresholdMin
	}
	if v > ThresholdMax {
		return ThresholdMax
	}
	return v
}

// DefaultAutoTradeConfig 默认配置
func DefaultAutoTradeConfig() AutoTradeConfig {
	return AutoTradeConfig{
		OpenThreshold:  1.5,
		CloseThreshold: 0.3,
		MaxContracts:   10,
		BankPercent:    10,
	}
}

// ThresholdSuggestion 顾问返回的可应用建议
type ThresholdSuggestion struct {
	OpenThreshold  float64 `json:"open_threshold"`
	CloseThreshold float64 `json:"close_threshold"`
	MaxContracts   int     `json:"max_contracts"`
}

// StrategyAdvice 策略分析结果
type StrategyAdvice struct {
	Strategy    string               `json:"strategy"`
	Suggestions *ThresholdSuggestion `json:"suggestions,omitempty"`
}
