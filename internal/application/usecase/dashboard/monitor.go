package dashboard

import (
	"math"
	"sort"
	"time"

	"spreadmaster/internal/domain/model"
)

// 显著变化判定与批次限流参数
const (
	significantRelChange = 0.20             // 相对变化超过 20%
	significantAbsChange = 0.1              // 且绝对变化超过 0.1 个百分点
	advisoryBatchEvery   = 30 * time.Second // 每 30 秒最多一批
	advisoryBatchTop     = 3                // 每批取绝对变化最大的 3 条
)

// Monitor 显著变化监视器：对照上一周期值检测价差突变
// 只产出提示消息，从不开平仓；仅在辅助模式开启时运行
type Monitor struct {
	enabled   bool
	prev      map[string]float64
	lastBatch time.Time
}

func NewMonitor(enabled bool) *Monitor {
	return &Monitor{
		enabled: enabled,
		prev:    make(map[string]float64),
	}
}

// Observe 处理一次完整快照，返回本周期的提示批次（可能为空）
// 上一周期值表每次整体替换，与快照的 ephemeral 语义一致
func (m *Monitor) Observe(snapshot []model.SpreadQuote, now time.Time) []model.Advisory {
	if !m.enabled {
		return nil
	}

	cur := make(map[string]float64, len(snapshot))
	var candidates []model.Advisory
	for _, q := range snapshot {
		key := q.Key()
		cur[key] = q.SpreadPercent

		prev, seen := m.prev[key]
		if !seen || prev == 0 {
			continue
		}
		abs := math.Abs(q.SpreadPercent - prev)
		rel := abs / math.Abs(prev)
		if rel > significantRelChange && abs > significantAbsChange {
			candidates = append(candidates, model.Advisory{
				Key:         key,
				Previous:    prev,
				Current:     q.SpreadPercent,
				ChangeAbs:   abs,
				ChangePct:   rel,
				GeneratedAt: now.UnixMilli(),
			})
		}
	}
	m.prev = cur

	if len(candidates) == 0 {
		return nil
	}
	// 批次限流：距上一批不足 30 秒时丢弃本周期候选
	if !m.lastBatch.IsZero() && now.Sub(m.lastBatch) < advisoryBatchEvery {
		return nil
	}
	m.lastBatch = now

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ChangeAbs > candidates[j].ChangeAbs
	})
	if len(candidates) > advisoryBatchTop {
		candidates = candidates[:advisoryBatchTop]
	}
	return candidates
}
