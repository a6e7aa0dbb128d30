package service

import (
	"context"
	"fmt"

	"spreadmaster/internal/domain/model"
	dsvc "spreadmaster/internal/domain/service"
)

// CandleProvider K线提供方，由行情聚合器实现
type CandleProvider interface {
	Candles(ctx context.Context, exchange, pair, interval string, limit int) ([]model.Candle, error)
}

// ChartService 图表黑盒的数据装配：K线 + 随机指标序列
type ChartService struct {
	provider CandleProvider
}

func NewChartService(provider CandleProvider) *ChartService {
	return &ChartService{provider: provider}
}

// Chart 拉取 K线并计算 %K/%D，产出可直接渲染的结构
func (s *ChartService) Chart(ctx context.Context, exchange, pair, interval string, limit int) (*model.ChartData, error) {
	if interval == "" {
		interval = "1m"
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	candles, err := s.provider.Candles(ctx, exchange, pair, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("candles %s %s: %w", exchange, pair, err)
	}

	k, d := dsvc.Stochastic(candles, dsvc.StochKPeriod, dsvc.StochDPeriod, dsvc.StochSmooth)
	return &model.ChartData{
		Pair:     pair,
		Exchange: exchange,
		Interval: interval,
		Candles:  candles,
		StochK:   k,
		StochD:   d,
	}, nil
}
