package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"spreadmaster/internal/domain/model"
)

type Config struct {
	App struct {
		Listen         string  `toml:"listen"`
		PollIntervalMs int64   `toml:"poll_interval_ms"`
		DisplayLimit   int     `toml:"display_limit"`
		HighlightMs    int64   `toml:"highlight_ms"`
		MinSpread      float64 `toml:"min_spread"`
		MaxSpread      float64 `toml:"max_spread"`
		Console        bool    `toml:"console"`
		DepositUSDT    float64 `toml:"deposit_usdt"`
	} `toml:"app"`

	Pairs struct {
		Selected []string `toml:"selected"`
	} `toml:"pairs"`

	AutoTrade struct {
		AutoEnabled    bool    `toml:"auto_enabled"`
		OpenThreshold  float64 `toml:"open_threshold"`
		CloseThreshold float64 `toml:"close_threshold"`
		MaxContracts   int     `toml:"max_contracts"`
		BankPercent    int     `toml:"bank_percent"`
	} `toml:"autotrade"`

	Advisor struct {
		Enabled bool `toml:"enabled"`
	} `toml:"advisor"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"-"` // 只从 POSTGRES_DSN 环境变量读取
	} `toml:"postgres"`

	Redis struct {
		Enabled       bool   `toml:"enabled"`
		Addr          string `toml:"addr"`
		Password      string `toml:"-"` // 只从 REDIS_PASSWORD 环境变量读取
		DB            int    `toml:"db"`
		Prefix        string `toml:"prefix"`
		TTLSeconds    int    `toml:"ttl_seconds"`
		AdvisoryStream string `toml:"advisory_stream"`
		AdvisoryChan   string `toml:"advisory_channel"`
	} `toml:"redis"`

	Exchanges map[string]ExchangeConfig `toml:"exchange"`
}

type ExchangeConfig struct {
	Enabled      bool    `toml:"enabled"`
	BaseURL      string  `toml:"base_url"`
	RateLimitRPS float64 `toml:"rate_limit_rps"`

	// 凭证只从环境变量读（<NAME>_API_KEY / <NAME>_API_SECRET），仅用于余额展示
	APIKey    string `toml:"-"`
	APISecret string `toml:"-"`
}

// 已知交易所与默认限速（req/s）
var defaultRateLimits = map[string]float64{
	"binance": 20,
	"bybit":   10,
	"okx":     5,
	"bitget":  10,
	"mexc":    20,
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvSecrets(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.App.Listen) == "" {
		cfg.App.Listen = ":8080"
	}
	if cfg.App.PollIntervalMs <= 0 {
		cfg.App.PollIntervalMs = 5000
	}
	if cfg.App.DisplayLimit <= 0 {
		cfg.App.DisplayLimit = 15
	}
	if cfg.App.HighlightMs <= 0 {
		cfg.App.HighlightMs = 600
	}
	if cfg.App.MinSpread <= 0 {
		cfg.App.MinSpread = 0.1
	}
	if cfg.App.MaxSpread <= 0 {
		cfg.App.MaxSpread = 10.0
	}
	if cfg.App.DepositUSDT <= 0 {
		cfg.App.DepositUSDT = 10000
	}

	if cfg.AutoTrade.MaxContracts == 0 {
		cfg.AutoTrade.MaxContracts = 10
	}
	if cfg.AutoTrade.BankPercent == 0 {
		cfg.AutoTrade.BankPercent = 10
	}

	if len(cfg.Pairs.Selected) == 0 {
		for _, p := range model.DefaultPairs() {
			cfg.Pairs.Selected = append(cfg.Pairs.Selected, p.Symbol)
		}
	}

	if strings.TrimSpace(cfg.SQLite.Path) == "" {
		cfg.SQLite.Path = "data/spreadmaster.db"
	}

	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if strings.TrimSpace(cfg.Redis.Prefix) == "" {
		cfg.Redis.Prefix = "spreadmaster"
	}
	if cfg.Redis.TTLSeconds <= 0 {
		cfg.Redis.TTLSeconds = 60
	}

	if cfg.Exchanges == nil {
		cfg.Exchanges = make(map[string]ExchangeConfig)
	}
	// 未在文件里出现的已知交易所默认启用公共行情
	for name, rps := range defaultRateLimits {
		ex, ok := cfg.Exchanges[name]
		if !ok {
			ex = ExchangeConfig{Enabled: true}
		}
		if ex.RateLimitRPS <= 0 {
			ex.RateLimitRPS = rps
		}
		cfg.Exchanges[name] = ex
	}
}

// applyEnvSecrets 凭证与 DSN 只来自环境，不落入配置文件
func applyEnvSecrets(cfg *Config) {
	cfg.Postgres.DSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	cfg.Redis.Password = strings.TrimSpace(os.Getenv("REDIS_PASSWORD"))

	for name, ex := range cfg.Exchanges {
		prefix := strings.ToUpper(name)
		ex.APIKey = strings.TrimSpace(os.Getenv(prefix + "_API_KEY"))
		ex.APISecret = strings.TrimSpace(os.Getenv(prefix + "_API_SECRET"))
		cfg.Exchanges[name] = ex
	}
}

func validate(cfg *Config) error {
	cfg.Pairs.Selected = normalizePairs(cfg.Pairs.Selected)
	if len(cfg.Pairs.Selected) == 0 {
		return errors.New("pairs.selected is empty")
	}

	// 自动交易配置收敛到文档化边界，越界不报错
	clamped := model.AutoTradeConfig{
		AutoEnabled:    cfg.AutoTrade.AutoEnabled,
		OpenThreshold:  cfg.AutoTrade.OpenThreshold,
		CloseThreshold: cfg.AutoTrade.CloseThreshold,
		MaxContracts:   cfg.AutoTrade.MaxContracts,
		BankPercent:    cfg.AutoTrade.BankPercent,
	}.Clamp()
	cfg.AutoTrade.OpenThreshold = clamped.OpenThreshold
	cfg.AutoTrade.CloseThreshold = clamped.CloseThreshold
	cfg.AutoTrade.MaxContracts = clamped.MaxContracts
	cfg.AutoTrade.BankPercent = clamped.BankPercent

	if cfg.App.MinSpread >= cfg.App.MaxSpread {
		return fmt.Errorf("app.min_spread %v must be below app.max_spread %v", cfg.App.MinSpread, cfg.App.MaxSpread)
	}
	if cfg.Postgres.Enabled && cfg.Postgres.DSN == "" {
		return errors.New("postgres enabled but POSTGRES_DSN not set")
	}

	for name := range cfg.Exchanges {
		if _, known := defaultRateLimits[name]; !known {
			return fmt.Errorf("unknown exchange %q in config", name)
		}
	}
	return nil
}

// AutoTradeConfig 配置段转领域模型
func (c *Config) AutoTradeConfig() model.AutoTradeConfig {
	return model.AutoTradeConfig{
		AutoEnabled:    c.AutoTrade.AutoEnabled,
		OpenThreshold:  c.AutoTrade.OpenThreshold,
		CloseThreshold: c.AutoTrade.CloseThreshold,
		MaxContracts:   c.AutoTrade.MaxContracts,
		BankPercent:    c.AutoTrade.BankPercent,
	}
}

// EnabledExchanges 启用的交易所名单，排序保证确定性
func (c *Config) EnabledExchanges() []string {
	var out []string
	for name, ex := range c.Exchanges {
		if ex.Enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func normalizePairs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" || !strings.Contains(u, "/") {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
