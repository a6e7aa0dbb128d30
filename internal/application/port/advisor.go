package port

import (
	"context"

	"spreadmaster/internal/domain/model"
)

// StrategyRequest 策略分析入参：当前快照、活跃合约与配置
type StrategyRequest struct {
	Spreads  []model.SpreadQuote   `json:"spreads"`
	Active   []model.Contract      `json:"activeContracts"`
	Settings model.AutoTradeConfig `json:"settings"`
}

// Advisor 顾问协作方：聊天问答 + 策略建议
// Strategy 返回的建议会被自动应用到自动控制器配置
type Advisor interface {
	Chat(ctx context.Context, message string, extra map[string]any) (string, error)
	Strategy(ctx context.Context, req StrategyRequest) (*model.StrategyAdvice, error)
}
