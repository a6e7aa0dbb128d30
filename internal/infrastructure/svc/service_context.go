package svc

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/application/service"
	"spreadmaster/internal/application/usecase/dashboard"
	"spreadmaster/internal/infrastructure/config"
	"spreadmaster/internal/infrastructure/exchange"
	"spreadmaster/internal/infrastructure/metrics"
	compositerepo "spreadmaster/internal/infrastructure/storage/composite"
	postgresrepo "spreadmaster/internal/infrastructure/storage/postgres"
	rediscache "spreadmaster/internal/infrastructure/storage/redis"
	sqliterepo "spreadmaster/internal/infrastructure/storage/sqlite"
	"spreadmaster/internal/interfaces/console"
)

// ServiceContext 应用启动的唯一装配点，按依赖顺序初始化全部组件
type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 基础设施层（第一层初始化）
	redisClient *redisclient.Client
	cache       *rediscache.Cache
	repo        port.ContractRepository
	Metrics     *metrics.Metrics

	// 行情层
	Aggregator *exchange.Aggregator

	// 应用层
	Engine    *dashboard.Service
	Refresher *service.StatusRefresher
	Charts    *service.ChartService
	Advisor   port.Advisor

	// 资源管理
	closerChain []func() error
}

// New 创建并初始化 ServiceContext
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		Metrics:     metrics.New(),
		closerChain: make([]func() error, 0),
	}

	if err := sc.initializeComponents(); err != nil {
		// 清理已初始化的资源
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

// initializeComponents 按依赖关系有序初始化：存储 → 缓存 → 行情 → 引擎 → 周边服务
func (sc *ServiceContext) initializeComponents() error {
	if err := sc.initStorage(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}
	if sc.Config.Redis.Enabled {
		if err := sc.initRedis(); err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
	}
	if err := sc.initMarketData(); err != nil {
		return err
	}
	sc.initEngine()

	sc.Refresher = service.NewStatusRefresher(sc.Aggregator, 30*time.Second)
	sc.Charts = service.NewChartService(sc.Aggregator)
	if sc.Config.Advisor.Enabled {
		sc.Advisor = service.NewHeuristicAdvisor()
	}

	log.Info().Msg("✓ All components initialized")
	return nil
}

// initStorage 初始化合约镜像存储（SQLite 常驻，Postgres 可选，二者扇出）
func (sc *ServiceContext) initStorage() error {
	var repos []port.ContractRepository

	if sc.Config.SQLite.Enabled {
		repo, err := sqliterepo.New(sc.Config.SQLite.Path)
		if err != nil {
			return fmt.Errorf("sqlite repo creation failed: %w", err)
		}
		repos = append(repos, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing sqlite connection")
			return repo.Close()
		})
		log.Info().Str("path", sc.Config.SQLite.Path).Msg("✓ SQLite initialized")
	}

	if sc.Config.Postgres.Enabled {
		repo, err := postgresrepo.New(sc.Config.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres repo creation failed: %w", err)
		}
		repos = append(repos, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing postgres connection")
			return repo.Close()
		})
		log.Info().Msg("✓ Postgres initialized")
	}

	switch len(repos) {
	case 0:
		// 无存储运行：合约只活在内存里
		sc.repo = dashboard.NewNoopRepo()
		log.Warn().Msg("no storage backend enabled, contracts are memory-only")
	case 1:
		sc.repo = repos[0]
	default:
		sc.repo = compositerepo.New(repos...)
	}
	return nil
}

// initRedis 初始化 Redis 报价缓存
func (sc *ServiceContext) initRedis() error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sc.redisClient = rdb
	ttl := time.Duration(sc.Config.Redis.TTLSeconds) * time.Second
	sc.cache = rediscache.New(
		rdb,
		sc.Config.Redis.Prefix,
		ttl,
		sc.Config.Redis.AdvisoryStream,
		sc.Config.Redis.AdvisoryChan,
	)

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", sc.Config.Redis.Addr).
		Int("db", sc.Config.Redis.DB).
		Msg("✓ Redis initialized")
	return nil
}

// initMarketData 构建交易所客户端与行情聚合器
func (sc *ServiceContext) initMarketData() error {
	clients, err := exchange.BuildClients(sc.Config)
	if err != nil {
		return fmt.Errorf("exchange client initialization failed: %w", err)
	}

	enabled := sc.Config.EnabledExchanges()
	if len(enabled) == 0 {
		return ErrNoExchangesEnabled
	}

	sc.Aggregator = exchange.NewAggregator(
		clients,
		enabled,
		sc.Config.Pairs.Selected,
		sc.Config.App.MinSpread,
		sc.Config.App.MaxSpread,
	)
	sc.Aggregator.FetchErrorHook = sc.Metrics.FetchError

	log.Info().
		Int("exchanges", len(enabled)).
		Int("pairs", len(sc.Config.Pairs.Selected)).
		Msg("✓ Market data aggregator initialized")
	return nil
}

// initEngine 装配看板引擎
func (sc *ServiceContext) initEngine() {
	var sinks []port.Sink
	if sc.Config.App.Console {
		sinks = append(sinks, console.NewSink())
	}

	deps := dashboard.ServiceDeps{
		Source:         sc.Aggregator,
		Repo:           sc.repo,
		Sinks:          sinks,
		Instr:          sc.Metrics,
		IntervalMs:     sc.Config.App.PollIntervalMs,
		DisplayLimit:   sc.Config.App.DisplayLimit,
		HighlightMs:    sc.Config.App.HighlightMs,
		AutoTrade:      sc.Config.AutoTradeConfig(),
		AdvisorEnabled: sc.Config.Advisor.Enabled,
		DepositUSDT:    sc.Config.App.DepositUSDT,
	}
	if sc.cache != nil {
		deps.Cache = sc.cache
	}
	sc.Engine = dashboard.NewService(deps)
}

// Repo 合约镜像仓储
func (sc *ServiceContext) Repo() port.ContractRepository { return sc.repo }

// AddSink 注册额外的视图消费端（WebSocket hub 等），必须在引擎启动前调用
func (sc *ServiceContext) AddSink(sink port.Sink) {
	sc.Engine.AddSink(sink)
}

// Close 按初始化的相反顺序释放全部资源
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	return nil
}
