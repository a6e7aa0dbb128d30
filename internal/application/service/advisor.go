package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/domain/model"
)

// HeuristicAdvisor 进程内顾问：基于当前价差分布与持仓情况的确定性启发式
// 实现 port.Advisor，不依赖外部模型服务
type HeuristicAdvisor struct{}

func NewHeuristicAdvisor() *HeuristicAdvisor { return &HeuristicAdvisor{} }

// Chat 关键词问答，附带当前上下文里的数字
func (a *HeuristicAdvisor) Chat(ctx context.Context, message string, extra map[string]any) (string, error) {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "spread"):
		return "A spread is the margin between selling on the bid exchange and buying on the ask exchange. Ranked rows show the widest opportunities first; a contract bets the spread will converge.", nil
	case strings.Contains(msg, "threshold"):
		return "The open threshold gates autonomous entries, the close threshold exits converged positions. Both are clamped to [0,2] percentage points. Set either above zero to activate the controller.", nil
	case strings.Contains(msg, "contract"):
		return "Contracts are virtual: profit = entry spread minus current spread, so a narrowing spread earns. One active contract per spread key; closed history keeps the last 100.", nil
	case strings.Contains(msg, "trend"):
		return "The trend bar tracks confirmed spread moves (over 0.003pp per cycle) on a bounded [-3,3] level. It is momentum, not a forecast.", nil
	default:
		return "Ask me about spreads, thresholds, contracts or trend bars. The strategy endpoint can also suggest threshold settings from live data.", nil
	}
}

// Strategy 分析快照并给出可直接应用的阈值建议
// 建议值由观测分布推导并收敛到文档化边界
func (a *HeuristicAdvisor) Strategy(ctx context.Context, req port.StrategyRequest) (*model.StrategyAdvice, error) {
	if len(req.Spreads) == 0 {
		return &model.StrategyAdvice{
			Strategy: "No live spread data yet. Keep polling; suggestions need at least one snapshot.",
		}, nil
	}

	values := make([]float64, 0, len(req.Spreads))
	for _, q := range req.Spreads {
		values = append(values, q.SpreadPercent)
	}
	sort.Float64s(values)

	max := values[len(values)-1]
	median := values[len(values)/2]
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))

	// 开仓阈值取中位数与最大值之间，避免追着极值跑；
	// 平仓阈值取开仓的三分之一，留出收敛空间
	openTh := model.ClampThreshold((median + max) / 2)
	closeTh := model.ClampThreshold(openTh / 3)

	totalProfit := 0.0
	for _, c := range req.Active {
		totalProfit += c.Profit()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Observing %d spreads: max %.4f%%, median %.4f%%, mean %.4f%%. ", len(values), max, median, avg)
	fmt.Fprintf(&sb, "%d active contracts, running profit %+.4f%%. ", len(req.Active), totalProfit)
	switch {
	case max < 0.3:
		sb.WriteString("Opportunities are thin; consider pausing autonomous entries until spreads widen.")
	case len(req.Active) >= req.Settings.MaxContracts:
		sb.WriteString("Position slots are full; raising the close threshold would recycle capital faster.")
	default:
		fmt.Fprintf(&sb, "Suggested entry at %.4f%% keeps you above the median while leaving room to converge.", openTh)
	}

	return &model.StrategyAdvice{
		Strategy: sb.String(),
		Suggestions: &model.ThresholdSuggestion{
			OpenThreshold:  openTh,
			CloseThreshold: closeTh,
			MaxContracts:   req.Settings.MaxContracts,
		},
	}, nil
}

var _ port.Advisor = (*HeuristicAdvisor)(nil)
