package service

// TrendThreshold 判定一次确认变动的最小绝对价差（百分点）
const TrendThreshold = 0.003

// TrendLevelCap 趋势级别绝对值上限
const TrendLevelCap = 3

// TrendTracker 按报价键维护有界趋势级别 [-3,3]
// 级别表进程级存活；上一周期价差表由排名引擎在每次渲染末尾整体提交，
// 因此某键缺席一个周期后再出现时视为无历史（不与陈旧值比较）
type TrendTracker struct {
	threshold float64
	levels    map[string]int
	prev      map[string]float64
}

func NewTrendTracker() *TrendTracker {
	return &TrendTracker{
		threshold: TrendThreshold,
		levels:    make(map[string]int),
		prev:      make(map[string]float64),
	}
}

// Update 比较当前价差与上一周期值并推进级别
// 无历史值时不动作，返回当前级别
// 跨越零轴的确认变动必须落在 ±1 上，绝不落在 0（滞回，避免边界抖动）
func (t *TrendTracker) Update(key string, current float64) int {
	prev, ok := t.prev[key]
	if !ok {
		return t.levels[key]
	}

	level := t.levels[key]
	diff := current - prev
	switch {
	case diff > t.threshold:
		if level < 0 {
			if level == -1 {
				level = 1
			} else {
				level++
			}
		} else if level < TrendLevelCap {
			level++
		}
	case diff < -t.threshold:
		if level > 0 {
			if level == 1 {
				level = -1
			} else {
				level--
			}
		} else if level > -TrendLevelCap {
			level--
		}
	}

	t.levels[key] = level
	return level
}

// Level 当前级别，未知键为 0
func (t *TrendTracker) Level(key string) int {
	return t.levels[key]
}

// CommitSpreads 整体替换上一周期价差表（排名引擎渲染第 6 步调用）
func (t *TrendTracker) CommitSpreads(spreads map[string]float64) {
	t.prev = spreads
}
