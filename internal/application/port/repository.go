package port

import (
	"context"

	"spreadmaster/internal/domain/model"
)

// ContractRepository 合约镜像仓储：内存状态为准，存储失败只记日志
type ContractRepository interface {
	// Contract mirror
	SaveContract(ctx context.Context, c *model.Contract) error
	CloseContract(ctx context.Context, key string, currentSpread, profit float64, closeTime int64, wasAuto bool) error
	UpdateContract(ctx context.Context, c *model.Contract) error
	LoadContracts(ctx context.Context) (active []*model.Contract, closed []*model.ClosedContract, err error)
	PurgeClosed(ctx context.Context) error

	// Auto-trade settings
	SaveSettings(ctx context.Context, cfg model.AutoTradeConfig) error
	LoadSettings(ctx context.Context) (model.AutoTradeConfig, bool, error)

	// Trading pair catalog
	ListPairs(ctx context.Context) ([]model.TradingPair, error)
}
