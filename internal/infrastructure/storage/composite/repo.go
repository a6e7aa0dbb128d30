package composite

import (
	"context"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/domain/model"
)

// Repo 把合约镜像扇出到多个后端（sqlite 常驻 + postgres 可选）
// 写操作全员执行并返回第一个错误，读操作只走首个后端
type Repo struct {
	repos []port.ContractRepository
}

func New(repos ...port.ContractRepository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.ContractRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) SaveContract(ctx context.Context, c *model.Contract) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveContract(ctx, c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) UpdateContract(ctx context.Context, c *model.Contract) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.UpdateContract(ctx, c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) CloseContract(ctx context.Context, key string, currentSpread, profit float64, closeTime int64, wasAuto bool) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.CloseContract(ctx, key, currentSpread, profit, closeTime, wasAuto); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) PurgeClosed(ctx context.Context) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.PurgeClosed(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) SaveSettings(ctx context.Context, cfg model.AutoTradeConfig) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveSettings(ctx, cfg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) LoadContracts(ctx context.Context) ([]*model.Contract, []*model.ClosedContract, error) {
	if len(r.repos) == 0 {
		return nil, nil, nil
	}
	return r.repos[0].LoadContracts(ctx)
}

func (r *Repo) LoadSettings(ctx context.Context) (model.AutoTradeConfig, bool, error) {
	if len(r.repos) == 0 {
		return model.AutoTradeConfig{}, false, nil
	}
	return r.repos[0].LoadSettings(ctx)
}

func (r *Repo) ListPairs(ctx context.Context) ([]model.TradingPair, error) {
	if len(r.repos) == 0 {
		return nil, nil
	}
	return r.repos[0].ListPairs(ctx)
}

var _ port.ContractRepository = (*Repo)(nil)
