package dashboard

import "spreadmaster/internal/application/port"

type SpreadSource = port.SpreadSource
type ContractRepository = port.ContractRepository

// 轮询间隔与展示条数的边界
const (
	IntervalMinMs = 2000
	IntervalMaxMs = 30000

	DisplayLimitDefault = 15
	DisplayLimitMin     = 1
	DisplayLimitMax     = 50

	// 排名变动高亮的自清除延迟
	HighlightDefaultMs = 600
)

func clampIntervalMs(ms int64) int64 {
	if ms < IntervalMinMs {
		return IntervalMinMs
	}
	if ms > IntervalMaxMs {
		return IntervalMaxMs
	}
	return ms
}

func clampDisplayLimit(n int) int {
	if n <= 0 {
		return DisplayLimitDefault
	}
	if n < DisplayLimitMin {
		return DisplayLimitMin
	}
	if n > DisplayLimitMax {
		return DisplayLimitMax
	}
	return n
}
