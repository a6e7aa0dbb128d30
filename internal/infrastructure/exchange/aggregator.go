package exchange

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/domain/model"
	dsvc "spreadmaster/internal/domain/service"
)

// tickerCacheTTL 行情缓存时效：拉取失败时窗口内回退到缓存值
const tickerCacheTTL = 2 * time.Second

type cachedTicker struct {
	ticker model.Ticker
	at     time.Time
}

type cooldownState struct {
	until  time.Time
	streak int
}

// Aggregator 行情聚合器：对所有启用交易所拉取最优买卖价，
// 组装跨所报价快照，并持有用户的交易所/交易对过滤选择。
// 实现引擎的 SpreadSource 以及状态刷新/图表服务的探测面
type Aggregator struct {
	mu      sync.Mutex
	clients map[string]Client
	enabled map[string]bool
	pairs   []string
	cache   map[string]cachedTicker // "exchange|pair"
	cool    map[string]*cooldownState

	builder *dsvc.QuoteBuilder

	// FetchErrorHook 每次交易所取数失败时回调（指标用），可为 nil
	FetchErrorHook func(exchange string)
}

func NewAggregator(clients map[string]Client, enabled []string, pairs []string, minSpread, maxSpread float64) *Aggregator {
	a := &Aggregator{
		clients: clients,
		enabled: make(map[string]bool, len(enabled)),
		cache:   make(map[string]cachedTicker),
		cool:    make(map[string]*cooldownState),
		builder: dsvc.NewQuoteBuilder(minSpread, maxSpread),
	}
	for _, name := range enabled {
		if _, ok := clients[name]; ok {
			a.enabled[name] = true
		}
	}
	a.pairs = normalizePairs(pairs)
	return a
}

// Poll 一次完整快照：逐所并发拉取行情，组装两两定向报价
// 单所失败只记日志并进入冷却，绝不让整次轮询失败
func (a *Aggregator) Poll(ctx context.Context) (*model.Snapshot, error) {
	now := time.Now()

	a.mu.Lock()
	pairs := append([]string(nil), a.pairs...)
	var active []string
	for name, on := range a.enabled {
		if !on {
			continue
		}
		if cs := a.cool[name]; cs != nil && cs.until.After(now) {
			continue // 冷却中：本轮直接跳过，报价自然消失
		}
		active = append(active, name)
	}
	a.mu.Unlock()

	type fetchResult struct {
		exchange string
		tickers  []model.Ticker
		err      error
	}
	results := make(chan fetchResult, len(active))

	var wg sync.WaitGroup
	for _, name := range active {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			client := a.clients[name]
			var got []model.Ticker
			var lastErr error
			for _, pair := range pairs {
				t, err := client.BookTicker(ctx, pair)
				if err != nil {
					lastErr = err
					if a.FetchErrorHook != nil {
						a.FetchErrorHook(name)
					}
					if cached, ok := a.cachedTicker(name, pair, now); ok {
						got = append(got, cached)
					}
					continue
				}
				a.storeTicker(name, pair, t, now)
				got = append(got, t)
			}
			results <- fetchResult{exchange: name, tickers: got, err: lastErr}
		}(name)
	}
	wg.Wait()
	close(results)

	// pair -> exchange -> ticker
	byPair := make(map[string]map[string]model.Ticker, len(pairs))
	for res := range results {
		a.settleCooldown(res.exchange, res.err, len(res.tickers) > 0, now)
		for _, t := range res.tickers {
			m, ok := byPair[t.Pair]
			if !ok {
				m = make(map[string]model.Ticker)
				byPair[t.Pair] = m
			}
			m[t.Exchange] = t
		}
	}

	var quotes []model.SpreadQuote
	for _, pair := range pairs {
		quotes = append(quotes, a.builder.Build(pair, byPair[pair], now.UnixMilli())...)
	}

	enabled, selected := a.Selection()
	return &model.Snapshot{
		Spreads:          quotes,
		EnabledExchanges: enabled,
		SelectedPairs:    selected,
		Timestamp:        now.UnixMilli(),
	}, nil
}

func (a *Aggregator) cachedTicker(name, pair string, now time.Time) (model.Ticker, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.cache[name+"|"+pair]
	if !ok || now.Sub(c.at) > tickerCacheTTL {
		return model.Ticker{}, false
	}
	return c.ticker, true
}

func (a *Aggregator) storeTicker(name, pair string, t model.Ticker, now time.Time) {
	a.mu.Lock()
	a.cache[name+"|"+pair] = cachedTicker{ticker: t, at: now}
	a.mu.Unlock()
}

// settleCooldown 成功清零失败计数，失败推进冷却矩阵
func (a *Aggregator) settleCooldown(name string, err error, anySuccess bool, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cs := a.cool[name]
	if cs == nil {
		cs = &cooldownState{}
		a.cool[name] = cs
	}
	if anySuccess || err == nil {
		cs.streak = 0
		cs.until = time.Time{}
		return
	}
	cs.streak++
	d := CooldownFor(err, cs.streak)
	cs.until = now.Add(d)
	log.Warn().
		Str("exchange", name).
		Int("streak", cs.streak).
		Dur("cooldown", d).
		Err(err).
		Msg("exchange cooling down")
}

// ========== 过滤选择（REST 处理器可并发调用） ==========

// Selection 当前启用交易所（排序）与选中交易对
func (a *Aggregator) Selection() (exchanges []string, pairs []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for name, on := range a.enabled {
		if on {
			exchanges = append(exchanges, name)
		}
	}
	sort.Strings(exchanges)
	pairs = append(pairs, a.pairs...)
	return exchanges, pairs
}

// SetExchangeEnabled 启停单个交易所
func (a *Aggregator) SetExchangeEnabled(name string, enabled bool) error {
	name = strings.ToLower(strings.TrimSpace(name))
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.clients[name]; !ok {
		return fmt.Errorf("unknown exchange %q", name)
	}
	a.enabled[name] = enabled
	return nil
}

// SetPairs 整体替换选中交易对
func (a *Aggregator) SetPairs(pairs []string) {
	normalized := normalizePairs(pairs)
	a.mu.Lock()
	a.pairs = normalized
	a.mu.Unlock()
}

// Catalog 全部已知交易所及启用状态，目录展示用
func (a *Aggregator) Catalog() map[string]bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]bool, len(a.clients))
	for name := range a.clients {
		out[name] = a.enabled[name]
	}
	return out
}

// ========== 状态探测面（service.StatusProbe） ==========

func (a *Aggregator) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.clients))
	for name := range a.clients {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (a *Aggregator) Enabled(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled[name]
}

func (a *Aggregator) Connected(name string) bool {
	client, ok := a.clients[name]
	return ok && client.HasCredentials()
}

func (a *Aggregator) CooldownUntil(name string) time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cs := a.cool[name]; cs != nil {
		return cs.until
	}
	return time.Time{}
}

func (a *Aggregator) Ping(ctx context.Context, name string) (time.Duration, error) {
	client, ok := a.clients[name]
	if !ok {
		return 0, fmt.Errorf("unknown exchange %q", name)
	}
	start := time.Now()
	if err := client.Ping(ctx); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func (a *Aggregator) Balances(ctx context.Context, name string, assets []string) (map[string]float64, error) {
	client, ok := a.clients[name]
	if !ok {
		return nil, fmt.Errorf("unknown exchange %q", name)
	}
	return client.Balances(ctx, assets)
}

// ========== 图表数据（service.CandleProvider） ==========

func (a *Aggregator) Candles(ctx context.Context, exchange, pair, interval string, limit int) ([]model.Candle, error) {
	client, ok := a.clients[strings.ToLower(exchange)]
	if !ok {
		return nil, fmt.Errorf("unknown exchange %q", exchange)
	}
	return client.Candles(ctx, pair, interval, limit)
}

func normalizePairs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" || !strings.Contains(u, "/") {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

var _ port.SpreadSource = (*Aggregator)(nil)
