package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"spreadmaster/internal/infrastructure/config"
	"spreadmaster/internal/infrastructure/logger"
	"spreadmaster/internal/infrastructure/svc"
	"spreadmaster/internal/interfaces/rest"
)

func main() {
	// .env 里只放密钥类环境变量，文件缺失不算错误
	_ = godotenv.Load()
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	// WebSocket 推送挂到引擎的 sink 链上，必须在 Run 之前
	hub := rest.NewHub()
	hub.Latest = sc.Engine.View
	sc.AddSink(hub)

	server := rest.NewServer(rest.ServerDeps{
		Engine:    sc.Engine,
		Market:    sc.Aggregator,
		Refresher: sc.Refresher,
		Charts:    sc.Charts,
		Advisor:   sc.Advisor,
		Repo:      sc.Repo(),
		Metrics:   sc.Metrics.Handler(),
		Hub:       hub,
		Listen:    cfg.App.Listen,
	})

	// 后台服务：交易所状态巡检
	go func() {
		if err := sc.Refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("status refresher exited")
		}
	}()

	// HTTP 接入层
	go func() {
		if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("http server exited")
			stop()
		}
	}()

	log.Info().
		Str("config", *configPath).
		Str("listen", cfg.App.Listen).
		Int64("interval_ms", cfg.App.PollIntervalMs).
		Msg("spreadmaster started")

	// 引擎事件循环承载主 goroutine，ctx 取消后退出
	if err := sc.Engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("dashboard engine exited")
	}
}
