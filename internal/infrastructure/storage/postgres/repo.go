package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/domain/model"
)

// Repo 合约镜像的 Postgres 实现，多实例共享历史时启用
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS contracts (
  id TEXT PRIMARY KEY,
  contract_key TEXT NOT NULL,
  pair TEXT NOT NULL,
  buy_exchange TEXT NOT NULL,
  sell_exchange TEXT NOT NULL,
  entry_spread DOUBLE PRECISION NOT NULL,
  current_spread DOUBLE PRECISION NOT NULL,
  open_time BIGINT NOT NULL,
  auto_close BOOLEAN NOT NULL DEFAULT FALSE,
  close_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
  size_usdt DOUBLE PRECISION NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'open',
  close_time BIGINT,
  profit DOUBLE PRECISION,
  duration_ms BIGINT,
  was_auto BOOLEAN,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contracts_key ON contracts(contract_key);
CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);

CREATE TABLE IF NOT EXISTS autotrade_settings (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  auto_enabled BOOLEAN NOT NULL,
  open_threshold DOUBLE PRECISION NOT NULL,
  close_threshold DOUBLE PRECISION NOT NULL,
  max_contracts INTEGER NOT NULL,
  bank_percent INTEGER NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS trading_pairs (
  symbol TEXT PRIMARY KEY,
  priority INTEGER NOT NULL DEFAULT 0,
  active BOOLEAN NOT NULL DEFAULT TRUE
);
`)
	return err
}

func (r *Repo) SaveContract(ctx context.Context, c *model.Contract) error {
	now := time.Now().UnixMilli()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contracts(
			id, contract_key, pair, buy_exchange, sell_exchange,
			entry_spread, current_spread, open_time, auto_close, close_threshold,
			size_usdt, status, created_at, updated_at
		) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'open', $12, $13)
		ON CONFLICT(id) DO UPDATE SET
			current_spread=excluded.current_spread,
			auto_close=excluded.auto_close,
			close_threshold=excluded.close_threshold,
			updated_at=excluded.updated_at
	`, c.ID, c.Key, c.Pair, c.BuyExchange, c.SellExchange,
		c.EntrySpread, c.CurrentSpread, c.OpenTime, c.AutoClose, c.CloseThreshold,
		c.SizeUSDT, now, now)
	return err
}

func (r *Repo) UpdateContract(ctx context.Context, c *model.Contract) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contracts SET
			current_spread=$1, auto_close=$2, close_threshold=$3, updated_at=$4
		WHERE id=$5 AND status='open'
	`, c.CurrentSpread, c.AutoClose, c.CloseThreshold, time.Now().UnixMilli(), c.ID)
	return err
}

func (r *Repo) CloseContract(ctx context.Context, key string, currentSpread, profit float64, closeTime int64, wasAuto bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contracts SET
			status='closed', current_spread=$1, profit=$2, close_time=$3,
			duration_ms=$3-open_time, was_auto=$4, updated_at=$5
		WHERE contract_key=$6 AND status='open'
	`, currentSpread, profit, closeTime, wasAuto, time.Now().UnixMilli(), key)
	return err
}

func (r *Repo) LoadContracts(ctx context.Context) ([]*model.Contract, []*model.ClosedContract, error) {
	active, err := r.loadActive(ctx)
	if err != nil {
		return nil, nil, err
	}
	closed, err := r.loadClosed(ctx)
	if err != nil {
		return nil, nil, err
	}
	return active, closed, nil
}

func (r *Repo) loadActive(ctx context.Context) ([]*model.Contract, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, contract_key, pair, buy_exchange, sell_exchange,
		       entry_spread, current_spread, open_time, auto_close, close_threshold, size_usdt
		FROM contracts
		WHERE status='open'
		ORDER BY open_time ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var active []*model.Contract
	for rows.Next() {
		var c model.Contract
		if err := rows.Scan(&c.ID, &c.Key, &c.Pair, &c.BuyExchange, &c.SellExchange,
			&c.EntrySpread, &c.CurrentSpread, &c.OpenTime, &c.AutoClose, &c.CloseThreshold, &c.SizeUSDT); err != nil {
			return nil, err
		}
		active = append(active, &c)
	}
	return active, rows.Err()
}

func (r *Repo) loadClosed(ctx context.Context) ([]*model.ClosedContract, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, contract_key, pair, buy_exchange, sell_exchange,
		       entry_spread, current_spread, open_time, size_usdt,
		       close_time, profit, duration_ms, was_auto
		FROM contracts
		WHERE status='closed'
		ORDER BY close_time DESC
		LIMIT $1
	`, model.ClosedHistoryLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var closed []*model.ClosedContract
	for rows.Next() {
		var cc model.ClosedContract
		var closeTime, durationMs sql.NullInt64
		var profit sql.NullFloat64
		var wasAuto sql.NullBool
		if err := rows.Scan(&cc.ID, &cc.Key, &cc.Pair, &cc.BuyExchange, &cc.SellExchange,
			&cc.EntrySpread, &cc.CurrentSpread, &cc.OpenTime, &cc.SizeUSDT,
			&closeTime, &profit, &durationMs, &wasAuto); err != nil {
			return nil, err
		}
		cc.CloseTime = closeTime.Int64
		cc.Profit = profit.Float64
		cc.DurationMs = durationMs.Int64
		cc.WasAuto = wasAuto.Bool
		closed = append(closed, &cc)
	}
	// 账本平仓历史最新在前，查询序与之一致
	return closed, rows.Err()
}

func (r *Repo) PurgeClosed(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM contracts WHERE status='closed'`)
	return err
}

func (r *Repo) SaveSettings(ctx context.Context, cfg model.AutoTradeConfig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO autotrade_settings(id, auto_enabled, open_threshold, close_threshold, max_contracts, bank_percent, updated_at)
		VALUES(1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT(id) DO UPDATE SET
			auto_enabled=excluded.auto_enabled,
			open_threshold=excluded.open_threshold,
			close_threshold=excluded.close_threshold,
			max_contracts=excluded.max_contracts,
			bank_percent=excluded.bank_percent,
			updated_at=excluded.updated_at
	`, cfg.AutoEnabled, cfg.OpenThreshold, cfg.CloseThreshold,
		cfg.MaxContracts, cfg.BankPercent, time.Now().UnixMilli())
	return err
}

func (r *Repo) LoadSettings(ctx context.Context) (model.AutoTradeConfig, bool, error) {
	var cfg model.AutoTradeConfig
	err := r.db.QueryRowContext(ctx, `
		SELECT auto_enabled, open_threshold, close_threshold, max_contracts, bank_percent
		FROM autotrade_settings WHERE id=1
	`).Scan(&cfg.AutoEnabled, &cfg.OpenThreshold, &cfg.CloseThreshold, &cfg.MaxContracts, &cfg.BankPercent)
	if err == sql.ErrNoRows {
		return model.AutoTradeConfig{}, false, nil
	}
	if err != nil {
		return model.AutoTradeConfig{}, false, err
	}
	return cfg.Clamp(), true, nil
}

func (r *Repo) ListPairs(ctx context.Context) ([]model.TradingPair, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, priority, active FROM trading_pairs ORDER BY priority DESC, symbol ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []model.TradingPair
	for rows.Next() {
		var p model.TradingPair
		if err := rows.Scan(&p.Symbol, &p.Priority, &p.Active); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

var _ port.ContractRepository = (*Repo)(nil)
