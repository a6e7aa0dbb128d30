package exchange

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"spreadmaster/internal/infrastructure/config"
)

// ClientFactory 交易所客户端构造函数
type ClientFactory func(cfg config.ExchangeConfig) Client

// clientFactories 交易所名 -> 构造函数；新交易所在此登记即可被配置启用
var clientFactories = map[string]ClientFactory{
	Binance: func(cfg config.ExchangeConfig) Client {
		return NewBinance(cfg.BaseURL, cfg.RateLimitRPS, cfg.APIKey, cfg.APISecret)
	},
	Bybit: func(cfg config.ExchangeConfig) Client {
		return NewBybit(cfg.BaseURL, cfg.RateLimitRPS)
	},
	OKX: func(cfg config.ExchangeConfig) Client {
		return NewOKX(cfg.BaseURL, cfg.RateLimitRPS)
	},
	Bitget: func(cfg config.ExchangeConfig) Client {
		return NewBitget(cfg.BaseURL, cfg.RateLimitRPS)
	},
	MEXC: func(cfg config.ExchangeConfig) Client {
		return NewMEXC(cfg.BaseURL, cfg.RateLimitRPS)
	},
}

// BuildClients 按配置构造全部已知交易所客户端（含未启用的，启用状态由聚合器管理）
func BuildClients(cfg *config.Config) (map[string]Client, error) {
	clients := make(map[string]Client, len(cfg.Exchanges))
	for name, exCfg := range cfg.Exchanges {
		factory, ok := clientFactories[name]
		if !ok {
			return nil, fmt.Errorf("no client factory for exchange %q", name)
		}
		clients[name] = factory(exCfg)
		log.Debug().Str("exchange", name).Bool("enabled", exCfg.Enabled).Msg("exchange client built")
	}
	return clients, nil
}
