package service

import (
	"math"

	"spreadmaster/internal/domain/model"
)

// 价差分级色，与前端保持一致
const (
	ColorHigh   = "#22c55e" // >= 1.0%
	ColorMedium = "#eab308" // >= 0.5%
	ColorLow    = "#6b7280"
)

// SpreadPercent 跨所价差百分比：在 ask 所买入、在 bid 所卖出
// ((sellBid - buyAsk) / buyAsk) * 100，保留 4 位小数
func SpreadPercent(sellBid, buyAsk float64) float64 {
	if buyAsk <= 0 {
		return 0
	}
	return round4(((sellBid - buyAsk) / buyAsk) * 100)
}

// SpreadColor 按百分比分级（pure decision）
func SpreadColor(spreadPercent float64) string {
	switch {
	case spreadPercent >= 1.0:
		return ColorHigh
	case spreadPercent >= 0.5:
		return ColorMedium
	default:
		return ColorLow
	}
}

// MaxInnerSpread 交易所自身买卖价差超过 5% 视为坏数据
const MaxInnerSpread = 0.05

// QuoteBuilder 由每所行情组装跨所报价
type QuoteBuilder struct {
	MinSpread float64 // 低于此值的报价丢弃
	MaxSpread float64 // 高于此值视为坏数据丢弃
}

func NewQuoteBuilder(minSpread, maxSpread float64) *QuoteBuilder {
	return &QuoteBuilder{MinSpread: minSpread, MaxSpread: maxSpread}
}

// Build 对单个交易对的全部有效行情做两两定向组合
// tickers: exchange -> ticker；内部价差过宽的行情在此被拒绝
func (b *QuoteBuilder) Build(pair string, tickers map[string]model.Ticker, ts int64) []model.SpreadQuote {
	valid := make([]model.Ticker, 0, len(tickers))
	for _, t := range tickers {
		if t.Bid <= 0 || t.Ask <= 0 {
			continue
		}
		if t.InnerSpread() >= MaxInnerSpread {
			continue
		}
		valid = append(valid, t)
	}
	if len(valid) < 2 {
		return nil
	}

	var quotes []model.SpreadQuote
	for _, sell := range valid {
		for _, buy := range valid {
			if sell.Exchange == buy.Exchange {
				continue
			}
			sp := SpreadPercent(sell.Bid, buy.Ask)
			if sp < b.MinSpread || sp > b.MaxSpread {
				continue
			}
			quotes = append(quotes, model.SpreadQuote{
				Pair:          pair,
				BidExchange:   sell.Exchange,
				AskExchange:   buy.Exchange,
				BidPrice:      sell.Bid,
				AskPrice:      buy.Ask,
				SpreadPercent: sp,
				Color:         SpreadColor(sp),
				Timestamp:     ts,
			})
		}
	}
	return quotes
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
