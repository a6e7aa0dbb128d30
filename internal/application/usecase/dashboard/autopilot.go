package dashboard

import (
	"sort"
	"time"

	"spreadmaster/internal/domain/model"
	"spreadmaster/internal/domain/service"
)

// 后台常驻模式的附加平仓参数
const (
	takeProfitConvergence = 0.30 // 价差收敛 30% 止盈
	collapseFactor        = 0.5  // 当前价差跌破入场一半视为塌陷
	candidateDiscount     = 0.85 // 候选排序用的折扣系数
)

// Pilot 自动交易控制器：对照全局阈值评估自动开仓与附加平仓规则
// 是否生效由阈值推导（任一阈值 > 0），AutoEnabled 单独打开后台常驻行为
type Pilot struct {
	cfg     model.AutoTradeConfig
	actions *service.RecentActionCache
}

func NewPilot(cfg model.AutoTradeConfig) *Pilot {
	return &Pilot{
		cfg:     cfg.Clamp(),
		actions: service.NewRecentActionCache(service.RecentActionWindow),
	}
}

func (p *Pilot) Config() model.AutoTradeConfig { return p.cfg }

// SetConfig 应用新配置（已收敛到边界）并返回生效值
func (p *Pilot) SetConfig(cfg model.AutoTradeConfig) model.AutoTradeConfig {
	p.cfg = cfg.Clamp()
	return p.cfg
}

// ApplySuggestion 合并顾问建议到当前配置
func (p *Pilot) ApplySuggestion(s *model.ThresholdSuggestion) model.AutoTradeConfig {
	if s == nil {
		return p.cfg
	}
	next := p.cfg
	next.OpenThreshold = s.OpenThreshold
	next.CloseThreshold = s.CloseThreshold
	if s.MaxContracts > 0 {
		next.MaxContracts = s.MaxContracts
	}
	return p.SetConfig(next)
}

// Entries 在完整未过滤快照上挑选自动开仓候选
// 遵守交易所/交易对过滤，但不受展示条数限制；活跃数达到 maxContracts 上限即停止
func (p *Pilot) Entries(snapshot []model.SpreadQuote, sess *Session, book *Book, now time.Time) []model.SpreadQuote {
	if p.cfg.OpenThreshold <= 0 {
		return nil
	}

	slots := p.cfg.MaxContracts - book.ActiveCount()
	if slots <= 0 {
		return nil
	}

	var candidates []model.SpreadQuote
	for _, q := range snapshot {
		if q.SpreadPercent < p.cfg.OpenThreshold {
			continue
		}
		if !sess.passesFilters(q) {
			continue
		}
		if book.HasActive(q.Key()) {
			continue
		}
		if p.cfg.AutoEnabled && p.actions.Recently(q.Key(), now) {
			continue
		}
		candidates = append(candidates, q)
	}

	// 名额有限时宽价差优先，与快照顺序无关
	sort.SliceStable(candidates, func(i, j int) bool {
		return score(candidates[i]) > score(candidates[j])
	})
	if len(candidates) > slots {
		candidates = candidates[:slots]
	}
	return candidates
}

// score 候选打分：折扣后的价差百分比
func score(q model.SpreadQuote) float64 {
	return q.SpreadPercent * candidateDiscount
}

// MarkAction 记录一次自动动作（后台模式的冷却窗口）
func (p *Pilot) MarkAction(key string, now time.Time) {
	p.actions.Mark(key, now)
}

// ExtraCloseRule 后台模式的附加平仓规则；未开启时返回 nil
func (p *Pilot) ExtraCloseRule() func(*model.Contract) bool {
	if !p.cfg.AutoEnabled {
		return nil
	}
	closeThreshold := p.cfg.CloseThreshold
	return func(c *model.Contract) bool {
		if closeThreshold > 0 && c.CurrentSpread <= closeThreshold {
			return true
		}
		if c.EntrySpread > 0 {
			if (c.EntrySpread-c.CurrentSpread)/c.EntrySpread >= takeProfitConvergence {
				return true
			}
			if c.CurrentSpread < c.EntrySpread*collapseFactor {
				return true
			}
		}
		return false
	}
}
