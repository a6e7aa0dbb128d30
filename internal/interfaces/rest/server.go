package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/application/service"
	"spreadmaster/internal/application/usecase/dashboard"
)

// MarketControl 行情层的过滤与探测面，由聚合器实现
type MarketControl interface {
	Selection() (exchanges []string, pairs []string)
	SetExchangeEnabled(name string, enabled bool) error
	SetPairs(pairs []string)
	Catalog() map[string]bool
	Ping(ctx context.Context, name string) (time.Duration, error)
	Balances(ctx context.Context, name string, assets []string) (map[string]float64, error)
}

// Server HTTP 接入层：REST + WebSocket 推送 + Prometheus
type Server struct {
	engine    *dashboard.Service
	market    MarketControl
	refresher *service.StatusRefresher
	charts    *service.ChartService
	advisor   port.Advisor // 可选，nil 时 assistant 接口返回 503
	repo      port.ContractRepository
	metrics   http.Handler
	hub       *Hub

	listen string
}

type ServerDeps struct {
	Engine    *dashboard.Service
	Market    MarketControl
	Refresher *service.StatusRefresher
	Charts    *service.ChartService
	Advisor   port.Advisor
	Repo      port.ContractRepository
	Metrics   http.Handler
	Hub       *Hub
	Listen    string
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		engine:    deps.Engine,
		market:    deps.Market,
		refresher: deps.Refresher,
		charts:    deps.Charts,
		advisor:   deps.Advisor,
		repo:      deps.Repo,
		metrics:   deps.Metrics,
		hub:       deps.Hub,
		listen:    deps.Listen,
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/spreads", s.handleSpreads)

	mux.HandleFunc("GET /api/contracts", s.handleContracts)
	mux.HandleFunc("POST /api/contracts/open", s.handleOpenContract)
	mux.HandleFunc("POST /api/contracts/close", s.handleCloseContract)
	mux.HandleFunc("POST /api/contracts/autoclose", s.handleToggleAutoClose)
	mux.HandleFunc("POST /api/contracts/threshold", s.handleCloseThreshold)
	mux.HandleFunc("DELETE /api/contracts/closed", s.handleClearClosed)

	mux.HandleFunc("GET /api/exchanges", s.handleExchangeCatalog)
	mux.HandleFunc("POST /api/exchanges", s.handleSetExchange)
	mux.HandleFunc("GET /api/exchanges/status", s.handleExchangeStatus)
	mux.HandleFunc("GET /api/exchange/{name}/ping", s.handleExchangePing)
	mux.HandleFunc("GET /api/exchange/{name}/balance", s.handleExchangeBalance)

	mux.HandleFunc("GET /api/pairs", s.handlePairs)
	mux.HandleFunc("POST /api/settings/pairs", s.handleSetPairs)
	mux.HandleFunc("GET /api/settings/autotrade", s.handleGetAutoTrade)
	mux.HandleFunc("POST /api/settings/autotrade", s.handleSetAutoTrade)
	mux.HandleFunc("POST /api/settings/display", s.handleSetDisplayLimit)

	mux.HandleFunc("POST /api/toggle_pause", s.handleTogglePause)
	mux.HandleFunc("POST /api/set_interval", s.handleSetInterval)

	mux.HandleFunc("GET /api/chart/{pair...}", s.handleChart)

	mux.HandleFunc("POST /api/assistant/chat", s.handleAssistantChat)
	mux.HandleFunc("POST /api/assistant/strategy", s.handleAssistantStrategy)

	mux.HandleFunc("GET /ws", s.hub.handleWS)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return corsMiddleware(mux)
}

// Run 启动 HTTP 服务并在 ctx 取消时优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("listen", s.listen).Msg("✓ HTTP server started")
		errs <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errs:
		return err
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
