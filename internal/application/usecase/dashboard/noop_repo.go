package dashboard

import (
	"context"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/domain/model"
)

type noopRepo struct{}

// NewNoopRepo 无存储配置时的占位镜像
func NewNoopRepo() port.ContractRepository { return &noopRepo{} }

func (n *noopRepo) SaveContract(ctx context.Context, c *model.Contract) error { return nil }
func (n *noopRepo) CloseContract(ctx context.Context, key string, currentSpread, profit float64, closeTime int64, wasAuto bool) error {
	return nil
}
func (n *noopRepo) UpdateContract(ctx context.Context, c *model.Contract) error { return nil }
func (n *noopRepo) LoadContracts(ctx context.Context) ([]*model.Contract, []*model.ClosedContract, error) {
	return nil, nil, nil
}
func (n *noopRepo) PurgeClosed(ctx context.Context) error { return nil }
func (n *noopRepo) SaveSettings(ctx context.Context, cfg model.AutoTradeConfig) error {
	return nil
}
func (n *noopRepo) LoadSettings(ctx context.Context) (model.AutoTradeConfig, bool, error) {
	return model.AutoTradeConfig{}, false, nil
}
func (n *noopRepo) ListPairs(ctx context.Context) ([]model.TradingPair, error) { return nil, nil }

var _ port.ContractRepository = (*noopRepo)(nil)
