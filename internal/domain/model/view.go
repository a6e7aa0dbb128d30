package model

// ========== Display-Ready View ==========
// 纯渲染结构：引擎把会话状态映射成它，任何渲染端（终端、Web、原生 UI）只消费它

// Movement 行相对上一周期的排名变动
type Movement int

const (
	MoveNone Movement = 0
	MoveUp   Movement = +1
	MoveDown Movement = -1
)

// Placeholder 榜单为空时的两种占位语义
type Placeholder string

const (
	PlaceholderNone     Placeholder = ""
	PlaceholderLoading  Placeholder = "feed_not_loaded"     // 快照本身为空：尚未收到数据
	PlaceholderFiltered Placeholder = "empty_for_selection" // 快照非空但过滤后为空
)

// BoardRow 榜单单行
type BoardRow struct {
	Rank          int      `json:"rank"`
	Key           string   `json:"key"`
	Pair          string   `json:"pair"`
	BidExchange   string   `json:"bid_exchange"`
	AskExchange   string   `json:"ask_exchange"`
	BidPrice      float64  `json:"bid_price"`
	AskPrice      float64  `json:"ask_price"`
	SpreadPercent float64  `json:"spread_percent"`
	Color         string   `json:"color"`
	TrendLevel    int      `json:"trend_level"` // [-3,3]
	Movement      Movement `json:"movement"`
	HasContract   bool     `json:"has_contract"`
}

// ContractRow 活跃合约行，按即时收益降序
type ContractRow struct {
	ID             string  `json:"id"`
	Key            string  `json:"key"`
	Pair           string  `json:"pair"`
	BuyExchange    string  `json:"buy_exchange"`
	SellExchange   string  `json:"sell_exchange"`
	EntrySpread    float64 `json:"entry_spread"`
	CurrentSpread  float64 `json:"current_spread"`
	Profit         float64 `json:"profit"`
	OpenTime       int64   `json:"open_time"`
	ElapsedSeconds int64   `json:"elapsed_seconds"`
	AutoClose      bool    `json:"auto_close"`
	CloseThreshold float64 `json:"close_threshold"`
	SizeUSDT       float64 `json:"size_usdt,omitempty"`
}

// ClosedRow 已平仓合约行，最近的在前
type ClosedRow struct {
	ID          string  `json:"id"`
	Key         string  `json:"key"`
	Pair        string  `json:"pair"`
	EntrySpread float64 `json:"entry_spread"`
	CloseSpread float64 `json:"close_spread"`
	Profit      float64 `json:"profit"`
	OpenTime    int64   `json:"open_time"`
	CloseTime   int64   `json:"close_time"`
	DurationMs  int64   `json:"duration_ms"`
	WasAuto     bool    `json:"was_auto"`
}

// Advisory 显著变化提示（只提示，从不开平仓）
type Advisory struct {
	Key         string  `json:"key"`
	Previous    float64 `json:"previous"`
	Current     float64 `json:"current"`
	ChangeAbs   float64 `json:"change_abs"`
	ChangePct   float64 `json:"change_pct"` // 相对变化，0.25 = 25%
	GeneratedAt int64   `json:"generated_at"`
}

// BoardView 完整看板视图
type BoardView struct {
	GeneratedAt  int64           `json:"generated_at"`
	Seq          uint64          `json:"seq"` // 最近应用的轮询序号
	Paused       bool            `json:"paused"`
	IntervalMs   int64           `json:"interval_ms"`
	DisplayLimit int             `json:"display_limit"`
	Placeholder  Placeholder     `json:"placeholder,omitempty"`
	Rows         []BoardRow      `json:"rows"`
	Active       []ContractRow   `json:"active_contracts"`
	Closed       []ClosedRow     `json:"closed_contracts"`
	TotalProfit  float64         `json:"total_profit"` // 活跃合约即时收益合计
	AutoTrade    AutoTradeConfig `json:"auto_trade"`
	Advisories   []Advisory      `json:"advisories,omitempty"` // 最近的提示，最多 10 条
}

// ========== Trend Bar Mapping ==========

// TrendSegmentCount 动量条段数，1..6 从左到右
const TrendSegmentCount = 6

// TrendSegment 单段点亮状态
type TrendSegment int

const (
	SegmentOff  TrendSegment = 0
	SegmentUp   TrendSegment = +1 // 绿
	SegmentDown TrendSegment = -1 // 红
)

// TrendSegments 把趋势级别映射为 6 段动量条：
// 级别 ≥1/≥2/≥3 点亮第 4/5/6 段，级别 ≤-1/≤-2/≤-3 点亮第 3/2/1 段
func TrendSegments(level int) [TrendSegmentCount]TrendSegment {
	var segs [TrendSegmentCount]TrendSegment
	switch {
	case level >= 1:
		for i := 0; i < level && i < 3; i++ {
			segs[3+i] = SegmentUp
		}
	case level <= -1:
		for i := 0; i < -level && i < 3; i++ {
			segs[2-i] = SegmentDown
		}
	}
	return segs
}
