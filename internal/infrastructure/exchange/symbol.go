package exchange

import "strings"

// VenueSymbol 规范交易对转交易所符号
// "BTC/USDT" → binance/bybit/bitget/mexc: BTCUSDT，okx: BTC-USDT
func VenueSymbol(venue, pair string) string {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	switch venue {
	case OKX:
		return strings.ReplaceAll(pair, "/", "-")
	default:
		return strings.ReplaceAll(pair, "/", "")
	}
}

// VenueInterval 规范 K线周期（1m/5m/15m/1h/4h/1d）转交易所参数
func VenueInterval(venue, interval string) string {
	interval = strings.ToLower(strings.TrimSpace(interval))
	switch venue {
	case Bybit:
		// bybit v5 用分钟数/字母：1 5 15 60 240 D
		switch interval {
		case "1m":
			return "1"
		case "5m":
			return "5"
		case "15m":
			return "15"
		case "1h":
			return "60"
		case "4h":
			return "240"
		case "1d":
			return "D"
		}
		return "1"
	case Bitget:
		switch interval {
		case "1m":
			return "1min"
		case "5m":
			return "5min"
		case "15m":
			return "15min"
		case "1h":
			return "1h"
		case "4h":
			return "4h"
		case "1d":
			return "1day"
		}
		return "1min"
	case OKX:
		// okx 小时以上用大写
		switch interval {
		case "1h":
			return "1H"
		case "4h":
			return "4H"
		case "1d":
			return "1D"
		}
		return interval
	default:
		// binance/mexc 使用规范格式
		return interval
	}
}
