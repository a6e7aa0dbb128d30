package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"spreadmaster/internal/application/usecase/dashboard"
	"spreadmaster/internal/domain/model"
)

// ========== 看板 ==========

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	exchanges, pairs := s.market.Selection()
	writeJSON(w, http.StatusOK, map[string]any{
		"view":      s.engine.View(),
		"statuses":  s.refresher.Statuses(),
		"exchanges": exchanges,
		"pairs":     pairs,
	})
}

func (s *Server) handleSpreads(w http.ResponseWriter, r *http.Request) {
	v := s.engine.View()
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":        v.Rows,
		"placeholder": v.Placeholder,
		"seq":         v.Seq,
	})
}

// ========== 合约 ==========

type keyRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleContracts(w http.ResponseWriter, r *http.Request) {
	v := s.engine.View()
	writeJSON(w, http.StatusOK, map[string]any{
		"active":       v.Active,
		"closed":       v.Closed,
		"total_profit": v.TotalProfit,
	})
}

func (s *Server) handleOpenContract(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.OpenContract(r.Context(), req.Key); err != nil {
		if errors.Is(err, dashboard.ErrQuoteNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCloseContract(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.CloseContract(r.Context(), req.Key); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleToggleAutoClose(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	enabled, found, err := s.engine.ToggleAutoClose(r.Context(), req.Key)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no active contract for key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"auto_close": enabled})
}

func (s *Server) handleCloseThreshold(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   string  `json:"key"`
		Value float64 `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	found, err := s.engine.SetCloseThreshold(r.Context(), req.Key, req.Value)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no active contract for key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClearClosed(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearClosed(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ========== 交易所 ==========

func (s *Server) handleExchangeCatalog(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Name      string `json:"name"`
		Enabled   bool   `json:"enabled"`
		Connected bool   `json:"connected"`
	}
	connected := make(map[string]bool)
	for _, st := range s.refresher.Statuses() {
		connected[st.Name] = st.Connected
	}
	var out []entry
	for name, enabled := range s.market.Catalog() {
		out = append(out, entry{Name: name, Enabled: enabled, Connected: connected[name]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetExchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.market.SetExchangeEnabled(req.Name, req.Enabled); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// 过滤变化立即生效：发出一次轮询而不是等下一个 tick
	if err := s.engine.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExchangeStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.refresher.Statuses())
}

func (s *Server) handleExchangePing(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	st, err := s.refresher.RefreshOne(r.Context(), name)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"name": name, "healthy": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleExchangeBalance(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	assets := model.BalanceAssets
	if q := r.URL.Query().Get("assets"); q != "" {
		assets = strings.Split(q, ",")
	}
	balances, err := s.market.Balances(r.Context(), name, assets)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "balances": balances})
}

// ========== 交易对与设置 ==========

func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.repo.ListPairs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_, selected := s.market.Selection()
	writeJSON(w, http.StatusOK, map[string]any{
		"catalog":  catalog,
		"selected": selected,
	})
}

func (s *Server) handleSetPairs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pairs []string `json:"pairs"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.market.SetPairs(req.Pairs)
	if err := s.engine.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	_, selected := s.market.Selection()
	writeJSON(w, http.StatusOK, map[string]any{"selected": selected})
}

func (s *Server) handleGetAutoTrade(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.engine.AutoTrade()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSetAutoTrade(w http.ResponseWriter, r *http.Request) {
	var cfg model.AutoTradeConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}
	applied, err := s.engine.SetAutoTrade(r.Context(), cfg)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, applied)
}

func (s *Server) handleSetDisplayLimit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Limit int `json:"limit"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	applied, err := s.engine.SetDisplayLimit(req.Limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"limit": applied})
}

// ========== 调度 ==========

func (s *Server) handleTogglePause(w http.ResponseWriter, r *http.Request) {
	paused, err := s.engine.TogglePause()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IntervalMs int64 `json:"interval_ms"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	applied, err := s.engine.SetInterval(req.IntervalMs)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"interval_ms": applied})
}

// ========== 图表 ==========

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	pair := r.PathValue("pair") // "BTC/USDT" 含斜杠，用尾部通配捕获
	q := r.URL.Query()
	exchange := q.Get("exchange")
	if exchange == "" {
		exchange = "binance"
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	data, err := s.charts.Chart(r.Context(), exchange, pair, q.Get("interval"), limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// ========== 顾问 ==========

func (s *Server) handleAssistantChat(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "advisor disabled")
		return
	}
	var req struct {
		Message string         `json:"message"`
		Context map[string]any `json:"context"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := s.advisor.Chat(r.Context(), req.Message, req.Context)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleAssistantStrategy(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "advisor disabled")
		return
	}
	req, err := s.engine.StrategyRequest()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	advice, err := s.advisor.Strategy(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp := map[string]any{"strategy": advice.Strategy}
	if advice.Suggestions != nil {
		applied, err := s.engine.ApplySuggestion(r.Context(), advice.Suggestions)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		resp["suggestions"] = advice.Suggestions
		resp["applied"] = applied
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
