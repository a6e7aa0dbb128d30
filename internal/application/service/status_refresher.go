package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"spreadmaster/internal/domain/model"
)

// ping 延迟的指数平滑系数：old*0.7 + new*0.3
const pingEWMAKeep = 0.7

// StatusProbe 交易所探测面，由行情聚合器实现
type StatusProbe interface {
	Names() []string
	Enabled(name string) bool
	Connected(name string) bool
	CooldownUntil(name string) time.Time
	Ping(ctx context.Context, name string) (time.Duration, error)
	Balances(ctx context.Context, name string, assets []string) (map[string]float64, error)
}

// StatusRefresher 后台状态刷新器：周期性 ping 各交易所、平滑延迟、
// 为配置了凭证的交易所拉取余额。展示用途，不影响交易逻辑
type StatusRefresher struct {
	probe    StatusProbe
	interval time.Duration

	mu       sync.RWMutex
	statuses map[string]model.ExchangeStatus
}

func NewStatusRefresher(probe StatusProbe, interval time.Duration) *StatusRefresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &StatusRefresher{
		probe:    probe,
		interval: interval,
		statuses: make(map[string]model.ExchangeStatus),
	}
}

// Run 刷新循环；启动即刷新一次，之后按间隔执行
func (s *StatusRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.refreshAll(ctx)
	log.Info().Dur("interval", s.interval).Msg("✓ exchange status refresher started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refreshAll(ctx)
		}
	}
}

func (s *StatusRefresher) refreshAll(ctx context.Context) {
	for _, name := range s.probe.Names() {
		if _, err := s.RefreshOne(ctx, name); err != nil {
			log.Debug().Err(err).Str("exchange", name).Msg("status refresh failed")
		}
	}
}

// RefreshOne 按需刷新单个交易所（REST 的 ping 端点也走这里）
func (s *StatusRefresher) RefreshOne(ctx context.Context, name string) (model.ExchangeStatus, error) {
	st := s.get(name)
	st.Name = name
	st.Enabled = s.probe.Enabled(name)
	st.Connected = s.probe.Connected(name)
	if until := s.probe.CooldownUntil(name); !until.IsZero() && until.After(time.Now()) {
		st.CooldownUntil = until.UnixMilli()
	} else {
		st.CooldownUntil = 0
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rtt, err := s.probe.Ping(pingCtx, name)
	st.LastChecked = time.Now().UnixMilli()
	if err != nil {
		st.Healthy = false
		st.LastError = err.Error()
		s.put(name, st)
		return st, err
	}

	st.Healthy = true
	st.LastError = ""
	ms := float64(rtt.Milliseconds())
	if st.PingMs == 0 {
		st.PingMs = ms
	} else {
		st.PingMs = st.PingMs*pingEWMAKeep + ms*(1-pingEWMAKeep)
	}

	if st.Connected {
		if balances, err := s.probe.Balances(ctx, name, model.BalanceAssets); err == nil {
			st.Balances = balances
		} else {
			log.Debug().Err(err).Str("exchange", name).Msg("balance fetch failed")
		}
	}

	s.put(name, st)
	return st, nil
}

// Statuses 全部交易所状态，按名称排序
func (s *StatusRefresher) Statuses() []model.ExchangeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ExchangeStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *StatusRefresher) get(name string) model.ExchangeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statuses[name]
}

func (s *StatusRefresher) put(name string, st model.ExchangeStatus) {
	s.mu.Lock()
	s.statuses[name] = st
	s.mu.Unlock()
}
