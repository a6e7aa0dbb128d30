package dashboard

import (
	"sort"
	"time"

	"spreadmaster/internal/domain/model"
)

// buildView 把会话状态映射成纯展示结构
// 活跃合约按即时收益降序，平仓记录最新在前（账本即为此序）
func buildView(sess *Session, book *Book, pilot *Pilot, rows []model.BoardRow, ph model.Placeholder, now time.Time) *model.BoardView {
	actives := book.Actives()
	sort.SliceStable(actives, func(i, j int) bool {
		if actives[i].Profit() != actives[j].Profit() {
			return actives[i].Profit() > actives[j].Profit()
		}
		return actives[i].Key < actives[j].Key
	})

	activeRows := make([]model.ContractRow, 0, len(actives))
	for _, c := range actives {
		activeRows = append(activeRows, model.ContractRow{
			ID:             c.ID,
			Key:            c.Key,
			Pair:           c.Pair,
			BuyExchange:    c.BuyExchange,
			SellExchange:   c.SellExchange,
			EntrySpread:    c.EntrySpread,
			CurrentSpread:  c.CurrentSpread,
			Profit:         c.Profit(),
			OpenTime:       c.OpenTime,
			ElapsedSeconds: int64(c.Elapsed(now).Seconds()),
			AutoClose:      c.AutoClose,
			CloseThreshold: c.CloseThreshold,
			SizeUSDT:       c.SizeUSDT,
		})
	}

	closedRows := make([]model.ClosedRow, 0, len(book.ClosedList()))
	for _, cc := range book.ClosedList() {
		closedRows = append(closedRows, model.ClosedRow{
			ID:          cc.ID,
			Key:         cc.Key,
			Pair:        cc.Pair,
			EntrySpread: cc.EntrySpread,
			CloseSpread: cc.CurrentSpread,
			Profit:      cc.Profit,
			OpenTime:    cc.OpenTime,
			CloseTime:   cc.CloseTime,
			DurationMs:  cc.DurationMs,
			WasAuto:     cc.WasAuto,
		})
	}

	return &model.BoardView{
		GeneratedAt:  now.UnixMilli(),
		Seq:          sess.appliedSeq,
		Paused:       sess.paused,
		IntervalMs:   sess.intervalMs,
		DisplayLimit: sess.displayLimit,
		Placeholder:  ph,
		Rows:         rows,
		Active:       activeRows,
		Closed:       closedRows,
		TotalProfit:  book.TotalProfit(),
		AutoTrade:    pilot.Config(),
		Advisories:   append([]model.Advisory(nil), sess.advisories...),
	}
}
