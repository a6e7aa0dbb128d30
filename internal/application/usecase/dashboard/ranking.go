package dashboard

import (
	"sort"

	"spreadmaster/internal/domain/model"
	"spreadmaster/internal/domain/service"
)

// Ranking 排名引擎：过滤、排序、截断，并对相邻周期做排名差分
// 趋势级别只为展示中的行推进；排名表与价差表在每次渲染末尾整体替换
type Ranking struct {
	tracker  *service.TrendTracker
	prevRank map[string]int
	gen      uint64 // 高亮代号，防止旧定时器清掉新一轮的高亮
}

func NewRanking() *Ranking {
	return &Ranking{
		tracker:  service.NewTrendTracker(),
		prevRank: make(map[string]int),
	}
}

// Render 产出榜单行和占位语义
// snapshot 为空 → "尚未收到数据"；过滤后为空 → "当前选择无数据"
func (r *Ranking) Render(snapshot []model.SpreadQuote, sess *Session, hasContract func(key string) bool) ([]model.BoardRow, model.Placeholder) {
	if len(snapshot) == 0 {
		return nil, model.PlaceholderLoading
	}

	filtered := make([]model.SpreadQuote, 0, len(snapshot))
	for _, q := range snapshot {
		if sess.passesFilters(q) {
			filtered = append(filtered, q)
		}
	}
	if len(filtered) == 0 {
		return nil, model.PlaceholderFiltered
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].SpreadPercent != filtered[j].SpreadPercent {
			return filtered[i].SpreadPercent > filtered[j].SpreadPercent
		}
		return filtered[i].Key() < filtered[j].Key()
	})
	if len(filtered) > sess.displayLimit {
		filtered = filtered[:sess.displayLimit]
	}

	rows := make([]model.BoardRow, 0, len(filtered))
	newRank := make(map[string]int, len(filtered))
	newSpreads := make(map[string]float64, len(filtered))

	for idx, q := range filtered {
		key := q.Key()

		movement := model.MoveNone
		if prevIdx, seen := r.prevRank[key]; seen {
			switch {
			case prevIdx > idx:
				movement = model.MoveUp
			case prevIdx < idx:
				movement = model.MoveDown
			}
		}

		rows = append(rows, model.BoardRow{
			Rank:          idx + 1,
			Key:           key,
			Pair:          q.Pair,
			BidExchange:   q.BidExchange,
			AskExchange:   q.AskExchange,
			BidPrice:      q.BidPrice,
			AskPrice:      q.AskPrice,
			SpreadPercent: q.SpreadPercent,
			Color:         q.Color,
			TrendLevel:    r.tracker.Update(key, q.SpreadPercent),
			Movement:      movement,
			HasContract:   hasContract(key),
		})

		newRank[key] = idx
		newSpreads[key] = q.SpreadPercent
	}

	r.prevRank = newRank
	r.tracker.CommitSpreads(newSpreads)
	return rows, model.PlaceholderNone
}

// NextGen 新一轮高亮代号
func (r *Ranking) NextGen() uint64 {
	r.gen++
	return r.gen
}

// Gen 当前高亮代号
func (r *Ranking) Gen() uint64 { return r.gen }
