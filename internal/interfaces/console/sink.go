package console

import (
	"fmt"
	"strings"
	"time"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/domain/model"
)

// ANSI 色
const (
	reset  = "\033[0m"
	green  = "\033[32m"
	yellow = "\033[33m"
	red    = "\033[31m"
	gray   = "\033[90m"

	clearScreen = "\033[H\033[2J"
)

// Sink 终端看板：每次视图更新整屏重画
type Sink struct{}

func NewSink() port.Sink { return &Sink{} }

func (s *Sink) PublishBoard(v *model.BoardView) error {
	var b strings.Builder
	b.WriteString(clearScreen)

	state := "running"
	if v.Paused {
		state = "paused"
	}
	fmt.Fprintf(&b, "spreadmaster  %s  interval=%dms  seq=%d  %s\n\n",
		time.UnixMilli(v.GeneratedAt).Format("15:04:05"), v.IntervalMs, v.Seq, state)

	switch v.Placeholder {
	case model.PlaceholderLoading:
		b.WriteString(gray + "  waiting for exchange data..." + reset + "\n")
	case model.PlaceholderFiltered:
		b.WriteString(gray + "  no spreads match the current filters" + reset + "\n")
	default:
		b.WriteString("  #   pair          route                 spread     trend    \n")
		for _, row := range v.Rows {
			fmt.Fprintf(&b, " %2d%s  %-12s  %-9s → %-9s %s%7.4f%%%s  %s%s\n",
				row.Rank, moveArrow(row.Movement), row.Pair,
				row.AskExchange, row.BidExchange,
				spreadANSI(row.Color), row.SpreadPercent, reset,
				trendBar(row.TrendLevel), contractMark(row.HasContract))
		}
	}

	if len(v.Active) > 0 {
		fmt.Fprintf(&b, "\n  contracts (total %+.4f)\n", v.TotalProfit)
		for _, c := range v.Active {
			fmt.Fprintf(&b, "    %-12s entry %.4f now %.4f  %s%+.4f%s  %s\n",
				c.Pair, c.EntrySpread, c.CurrentSpread,
				profitANSI(c.Profit), c.Profit, reset,
				elapsedLabel(c.ElapsedSeconds))
		}
	}

	for _, a := range v.Advisories {
		fmt.Fprintf(&b, "\n  %s! %s moved %.4f → %.4f%s", yellow, a.Key, a.Previous, a.Current, reset)
	}
	b.WriteString("\n")

	fmt.Print(b.String())
	return nil
}

// trendBar 六段动量条：▮ 点亮 ▯ 熄灭
func trendBar(level int) string {
	segs := model.TrendSegments(level)
	var b strings.Builder
	for _, seg := range segs {
		switch seg {
		case model.SegmentUp:
			b.WriteString(green + "▮" + reset)
		case model.SegmentDown:
			b.WriteString(red + "▮" + reset)
		default:
			b.WriteString(gray + "▯" + reset)
		}
	}
	return b.String()
}

func moveArrow(m model.Movement) string {
	switch m {
	case model.MoveUp:
		return green + "↑" + reset
	case model.MoveDown:
		return red + "↓" + reset
	}
	return " "
}

func spreadANSI(color string) string {
	switch color {
	case "#22c55e":
		return green
	case "#eab308":
		return yellow
	}
	return gray
}

func profitANSI(p float64) string {
	if p >= 0 {
		return green
	}
	return red
}

func contractMark(has bool) string {
	if has {
		return " ◆"
	}
	return ""
}

func elapsedLabel(sec int64) string {
	if sec >= 3600 {
		return fmt.Sprintf("%dh%02dm", sec/3600, sec%3600/60)
	}
	if sec >= 60 {
		return fmt.Sprintf("%dm%02ds", sec/60, sec%60)
	}
	return fmt.Sprintf("%ds", sec)
}
