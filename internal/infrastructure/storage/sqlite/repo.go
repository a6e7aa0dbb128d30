package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/domain/model"
)

// Repo 合约镜像的 SQLite 实现：内存状态为准，这里只做重启恢复
type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := r.seedPairs(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS contracts (
  id TEXT PRIMARY KEY,
  contract_key TEXT NOT NULL,
  pair TEXT NOT NULL,
  buy_exchange TEXT NOT NULL,
  sell_exchange TEXT NOT NULL,
  entry_spread REAL NOT NULL,
  current_spread REAL NOT NULL,
  open_time INTEGER NOT NULL,
  auto_close INTEGER NOT NULL DEFAULT 0,
  close_threshold REAL NOT NULL DEFAULT 0,
  size_usdt REAL NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'open',
  close_time INTEGER,
  profit REAL,
  duration_ms INTEGER,
  was_auto INTEGER,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contracts_key ON contracts(contract_key);
CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);
CREATE INDEX IF NOT EXISTS idx_contracts_open_time ON contracts(open_time);

CREATE TABLE IF NOT EXISTS autotrade_settings (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  auto_enabled INTEGER NOT NULL,
  open_threshold REAL NOT NULL,
  close_threshold REAL NOT NULL,
  max_contracts INTEGER NOT NULL,
  bank_percent INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trading_pairs (
  symbol TEXT PRIMARY KEY,
  priority INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1
);
`)
	return err
}

// seedPairs 首次启动写入默认交易对目录，已有行不覆盖
func (r *Repo) seedPairs(ctx context.Context) error {
	for _, p := range model.DefaultPairs() {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO trading_pairs(symbol, priority, active) VALUES(?, ?, ?)
			ON CONFLICT(symbol) DO NOTHING
		`, p.Symbol, p.Priority, boolInt(p.Active))
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) SaveContract(ctx context.Context, c *model.Contract) error {
	now := time.Now().UnixMilli()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contracts(
			id, contract_key, pair, buy_exchange, sell_exchange,
			entry_spread, current_spread, open_time, auto_close, close_threshold,
			size_usdt, status, created_at, updated_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'open', ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_spread=excluded.current_spread,
			auto_close=excluded.auto_close,
			close_threshold=excluded.close_threshold,
			updated_at=excluded.updated_at
	`, c.ID, c.Key, c.Pair, c.BuyExchange, c.SellExchange,
		c.EntrySpread, c.CurrentSpread, c.OpenTime, boolInt(c.AutoClose), c.CloseThreshold,
		c.SizeUSDT, now, now)
	return err
}

func (r *Repo) UpdateContract(ctx context.Context, c *model.Contract) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contracts SET
			current_spread=?, auto_close=?, close_threshold=?, updated_at=?
		WHERE id=? AND status='open'
	`, c.CurrentSpread, boolInt(c.AutoClose), c.CloseThreshold, time.Now().UnixMilli(), c.ID)
	return err
}

func (r *Repo) CloseContract(ctx context.Context, key string, currentSpread, profit float64, closeTime int64, wasAuto bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contracts SET
			status='closed', current_spread=?, profit=?, close_time=?,
			duration_ms=?-open_time, was_auto=?, updated_at=?
		WHERE contract_key=? AND status='open'
	`, currentSpread, profit, closeTime, closeTime, boolInt(wasAuto), time.Now().UnixMilli(), key)
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
		var autoClose int
		if err := rows.Scan(&c.ID, &c.Key, &c.Pair, &c.BuyExchange, &c.SellExchange,
			&c.EntrySpread, &c.CurrentSpread, &c.OpenTime, &autoClose, &c.CloseThreshold, &c.SizeUSDT); err != nil {
			return nil, err
		}
		c.AutoClose = autoClose != 0
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
		LIMIT ?
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
		var wasAuto sql.NullInt64
		if err := rows.Scan(&cc.ID, &cc.Key, &cc.Pair, &cc.BuyExchange, &cc.SellExchange,
			&cc.EntrySpread, &cc.CurrentSpread, &cc.OpenTime, &cc.SizeUSDT,
			&closeTime, &profit, &durationMs, &wasAuto); err != nil {
			return nil, err
		}
		cc.CloseTime = closeTime.Int64
		cc.Profit = profit.Float64
		cc.DurationMs = durationMs.Int64
		cc.WasAuto = wasAuto.Int64 != 0
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
		VALUES(1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			auto_enabled=excluded.auto_enabled,
			open_threshold=excluded.open_threshold,
			close_threshold=excluded.close_threshold,
			max_contracts=excluded.max_contracts,
			bank_percent=excluded.bank_percent,
			updated_at=excluded.updated_at
	`, boolInt(cfg.AutoEnabled), cfg.OpenThreshold, cfg.CloseThreshold,
		cfg.MaxContracts, cfg.BankPercent, time.Now().UnixMilli())
	return err
}

func (r *Repo) LoadSettings(ctx context.Context) (model.AutoTradeConfig, bool, error) {
	var cfg model.AutoTradeConfig
	var autoEnabled int
	err := r.db.QueryRowContext(ctx, `
		SELECT auto_enabled, open_threshold, close_threshold, max_contracts, bank_percent
		FROM autotrade_settings WHERE id=1
	`).Scan(&autoEnabled, &cfg.OpenThreshold, &cfg.CloseThreshold, &cfg.MaxContracts, &cfg.BankPercent)
	if err == sql.ErrNoRows {
		return model.AutoTradeConfig{}, false, nil
	}
	if err != nil {
		return model.AutoTradeConfig{}, false, err
	}
	cfg.AutoEnabled = autoEnabled != 0
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
		var active int
		if err := rows.Scan(&p.Symbol, &p.Priority, &active); err != nil {
			return nil, err
		}
		p.Active = active != 0
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ port.ContractRepository = (*Repo)(nil)
