package dashboard

import (
	"time"

	"github.com/google/uuid"

	"spreadmaster/internal/domain/model"
)

// Book 虚拟合约账本：none → active → closed 状态机
// 活跃集按键唯一；平仓记录最新在前，超过上限淘汰最旧
type Book struct {
	active map[string]*model.Contract
	closed []*model.ClosedContract
}

func NewBook() *Book {
	return &Book{active: make(map[string]*model.Contract)}
}

// Load 启动时从镜像恢复
func (b *Book) Load(active []*model.Contract, closed []*model.ClosedContract) {
	for _, c := range active {
		if c != nil && c.Key != "" {
			b.active[c.Key] = c
		}
	}
	b.closed = append([]*model.ClosedContract(nil), closed...)
	b.trimClosed()
}

// Open 开仓；同键已有活跃合约时幂等返回 nil（重复点击/自动触发不产生重复仓位）
func (b *Book) Open(q model.SpreadQuote, autoClose bool, closeThreshold, sizeUSDT float64, now time.Time) *model.Contract {
	key := q.Key()
	if _, exists := b.active[key]; exists {
		return nil
	}
	c := &model.Contract{
		ID:             uuid.NewString(),
		Key:            key,
		Pair:           q.Pair,
		BuyExchange:    q.AskExchange,
		SellExchange:   q.BidExchange,
		EntrySpread:    q.SpreadPercent,
		CurrentSpread:  q.SpreadPercent,
		OpenTime:       now.UnixMilli(),
		AutoClose:      autoClose,
		CloseThreshold: model.ClampThreshold(closeThreshold),
		SizeUSDT:       sizeUSDT,
	}
	b.active[key] = c
	return c
}

// Close 平仓；无匹配合约时静默返回 nil
// profit = entrySpread - currentSpread，价差收敛即盈利
func (b *Book) Close(key string, now time.Time, wasAuto bool) *model.ClosedContract {
	c, ok := b.active[key]
	if !ok {
		return nil
	}
	delete(b.active, key)

	closeTime := now.UnixMilli()
	cc := &model.ClosedContract{
		Contract:   *c,
		CloseTime:  closeTime,
		Profit:     c.EntrySpread - c.CurrentSpread,
		DurationMs: closeTime - c.OpenTime,
		WasAuto:    wasAuto,
	}
	b.closed = append([]*model.ClosedContract{cc}, b.closed...)
	b.trimClosed()
	return cc
}

// UpdateFromSnapshot 用完整未过滤快照刷新每个活跃合约的当前价差，
// 标记满足平仓条件的合约，遍历结束后统一平仓（遍历中不改动活跃集）
// extraRule 为后台模式附加的平仓规则，可为 nil
func (b *Book) UpdateFromSnapshot(quotes []model.SpreadQuote, extraRule func(*model.Contract) bool, now time.Time) []*model.ClosedContract {
	byKey := make(map[string]model.SpreadQuote, len(quotes))
	for _, q := range quotes {
		byKey[q.Key()] = q
	}

	var marked []string
	for key, c := range b.active {
		q, found := byKey[key]
		if found {
			c.CurrentSpread = q.SpreadPercent
		}
		if c.AutoClose && c.CloseThreshold > 0 && c.CurrentSpread <= c.CloseThreshold {
			marked = append(marked, key)
			continue
		}
		if extraRule != nil && extraRule(c) {
			marked = append(marked, key)
		}
	}

	closed := make([]*model.ClosedContract, 0, len(marked))
	for _, key := range marked {
		if cc := b.Close(key, now, true); cc != nil {
			closed = append(closed, cc)
		}
	}
	return closed
}

// ToggleAutoClose 翻转单合约的自动平仓开关；不自行设置阈值
func (b *Book) ToggleAutoClose(key string) (bool, bool) {
	c, ok := b.active[key]
	if !ok {
		return false, false
	}
	c.AutoClose = !c.AutoClose
	return c.AutoClose, true
}

// SetCloseThreshold 设置单合约平仓阈值（独立于全局阈值的手动覆盖）
func (b *Book) SetCloseThreshold(key string, v float64) bool {
	c, ok := b.active[key]
	if !ok {
		return false
	}
	c.CloseThreshold = model.ClampThreshold(v)
	return true
}

func (b *Book) HasActive(key string) bool {
	_, ok := b.active[key]
	return ok
}

func (b *Book) ActiveCount() int { return len(b.active) }

// Actives 活跃合约（未排序，展示层按收益降序排）
func (b *Book) Actives() []*model.Contract {
	out := make([]*model.Contract, 0, len(b.active))
	for _, c := range b.active {
		out = append(out, c)
	}
	return out
}

// ClosedList 平仓历史，最新在前
func (b *Book) ClosedList() []*model.ClosedContract {
	return b.closed
}

// TotalProfit 活跃合约即时收益合计
func (b *Book) TotalProfit() float64 {
	total := 0.0
	for _, c := range b.active {
		total += c.Profit()
	}
	return total
}

// ClearClosed 清空平仓历史
func (b *Book) ClearClosed() {
	b.closed = nil
}

func (b *Book) trimClosed() {
	if len(b.closed) > model.ClosedHistoryLimit {
		b.closed = b.closed[:model.ClosedHistoryLimit]
	}
}
