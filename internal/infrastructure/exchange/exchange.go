package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"spreadmaster/internal/domain/model"
)

// 规范交易所名
const (
	Binance = "binance"
	Bybit   = "bybit"
	OKX     = "okx"
	Bitget  = "bitget"
	MEXC    = "mexc"
)

// ErrNotSupported 该交易所未实现此能力（如余额查询）
var ErrNotSupported = errors.New("not supported by this exchange")

// Client 单交易所公共行情客户端，余额接口需要凭证
type Client interface {
	Name() string
	BookTicker(ctx context.Context, pair string) (model.Ticker, error)
	Candles(ctx context.Context, pair, interval string, limit int) ([]model.Candle, error)
	Ping(ctx context.Context) error
	Balances(ctx context.Context, assets []string) (map[string]float64, error)
	HasCredentials() bool
}

// HTTPError REST 响应的非 2xx 状态，冷却矩阵按状态码分类
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// 故障冷却矩阵
const (
	cooldown502     = 30 * time.Second
	cooldown429     = 60 * time.Second
	cooldown5xx     = 15 * time.Second
	cooldownNetwork = 5 * time.Second
	cooldownCap     = 30 * time.Second
)

// CooldownFor 按失败原因与连续失败次数决定冷却时长
// 502→30s，429→60s，其余 5xx→15s，网络错误→5s，其他→2·2^n 封顶 30s
func CooldownFor(err error, streak int) time.Duration {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Status == 502:
			return cooldown502
		case httpErr.Status == 429:
			return cooldown429
		case httpErr.Status >= 500:
			return cooldown5xx
		}
	} else if isNetworkError(err) {
		return cooldownNetwork
	}

	if streak < 0 {
		streak = 0
	}
	d := 2 * time.Second
	for i := 0; i < streak && d < cooldownCap; i++ {
		d *= 2
	}
	if d > cooldownCap {
		d = cooldownCap
	}
	return d
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)
}
