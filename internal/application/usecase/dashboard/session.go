package dashboard

import (
	"strings"

	"spreadmaster/internal/domain/model"
)

// Session 轮询调度器独占持有的全部可变状态
// 只允许在引擎事件循环内读写（严格单写者）
type Session struct {
	enabledExchanges map[string]bool
	selectedPairs    map[string]bool

	displayLimit int
	intervalMs   int64
	paused       bool

	snapshot   []model.SpreadQuote // 最近应用的完整未过滤快照
	snapshotAt int64

	issuedSeq  uint64 // 已发出的轮询序号
	appliedSeq uint64 // 已应用的最大序号，旧响应直接丢弃

	advisories []model.Advisory // 最近的提示，最新在前，最多 10 条
}

const advisoryKeep = 10

func newSession(intervalMs int64, displayLimit int) *Session {
	return &Session{
		enabledExchanges: make(map[string]bool),
		selectedPairs:    make(map[string]bool),
		displayLimit:     clampDisplayLimit(displayLimit),
		intervalMs:       clampIntervalMs(intervalMs),
	}
}

// nextSeq 发出下一个轮询序号
func (s *Session) nextSeq() uint64 {
	s.issuedSeq++
	return s.issuedSeq
}

// applySnapshot 应用一次成功轮询：报价整体替换，过滤集合随快照带回
func (s *Session) applySnapshot(snap *model.Snapshot) {
	s.snapshot = snap.Spreads
	s.snapshotAt = snap.Timestamp

	s.enabledExchanges = make(map[string]bool, len(snap.EnabledExchanges))
	for _, ex := range snap.EnabledExchanges {
		s.enabledExchanges[strings.ToLower(strings.TrimSpace(ex))] = true
	}
	s.selectedPairs = make(map[string]bool, len(snap.SelectedPairs))
	for _, p := range snap.SelectedPairs {
		s.selectedPairs[strings.ToUpper(strings.TrimSpace(p))] = true
	}
}

// passesFilters 报价两腿交易所均启用且交易对被选中
func (s *Session) passesFilters(q model.SpreadQuote) bool {
	if !s.enabledExchanges[strings.ToLower(q.BidExchange)] {
		return false
	}
	if !s.enabledExchanges[strings.ToLower(q.AskExchange)] {
		return false
	}
	return s.selectedPairs[strings.ToUpper(q.Pair)]
}

// quoteByKey 在完整快照里按键查找
func (s *Session) quoteByKey(key string) (model.SpreadQuote, bool) {
	for _, q := range s.snapshot {
		if q.Key() == key {
			return q, true
		}
	}
	return model.SpreadQuote{}, false
}

// pushAdvisories 新批次提示放到最前，截断到保留上限
func (s *Session) pushAdvisories(batch []model.Advisory) {
	if len(batch) == 0 {
		return
	}
	s.advisories = append(batch, s.advisories...)
	if len(s.advisories) > advisoryKeep {
		s.advisories = s.advisories[:advisoryKeep]
	}
}
