package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"spreadmaster/internal/application/port"
	"spreadmaster/internal/domain/model"
	"spreadmaster/internal/domain/service"
)

// ErrQuoteNotFound 手动开仓时键不在最新快照里
var ErrQuoteNotFound = errors.New("quote not found in latest snapshot")

// ErrEngineStopped 引擎已退出，命令不再受理
var ErrEngineStopped = errors.New("dashboard engine stopped")

type ServiceDeps struct {
	Source SpreadSource
	Repo   ContractRepository
	Cache  port.SpreadCache    // 可选，nil 时跳过
	Sinks  []port.Sink         // 渲染消费端，可为空
	Instr  port.Instruments    // 可选，nil 时跳过

	IntervalMs     int64
	DisplayLimit   int
	HighlightMs    int64
	AutoTrade      model.AutoTradeConfig
	AdvisorEnabled bool // 辅助模式：开启显著变化监视
	DepositUSDT    float64
}

// Service 轮询调度器 + 引擎事件循环
// 全部会话状态只在 Run 的循环 goroutine 内读写（严格单写者）；
// 外部动作经命令通道进入循环，读取走不可变的已发布视图
type Service struct {
	deps ServiceDeps

	sess    *Session
	ranking *Ranking
	book    *Book
	pilot   *Pilot
	monitor *Monitor

	cmds  chan func()
	polls chan pollResult

	runCtx context.Context // Run 的 ctx，在途轮询挂在它上面

	ticker *time.Ticker
	tickC  <-chan time.Time

	lastRows []model.BoardRow
	lastPh   model.Placeholder

	stopped chan struct{}

	mu   sync.RWMutex
	view *model.BoardView
}

type pollResult struct {
	seq  uint64
	snap *model.Snapshot
	err  error
}

func NewService(deps ServiceDeps) *Service {
	if deps.HighlightMs <= 0 {
		deps.HighlightMs = HighlightDefaultMs
	}
	s := &Service{
		deps:    deps,
		sess:    newSession(deps.IntervalMs, deps.DisplayLimit),
		ranking: NewRanking(),
		book:    NewBook(),
		pilot:   NewPilot(deps.AutoTrade),
		monitor: NewMonitor(deps.AdvisorEnabled),
		cmds:    make(chan func(), 64),
		polls:   make(chan pollResult, 8),
		stopped: make(chan struct{}),
	}
	s.storeView(buildView(s.sess, s.book, s.pilot, nil, model.PlaceholderLoading, time.Now()))
	return s
}

// Run 引擎主循环；ctx 取消后返回
func (s *Service) Run(ctx context.Context) error {
	defer close(s.stopped)

	if s.deps.Source == nil {
		return errors.New("no spread source")
	}
	s.runCtx = ctx
	s.restore(ctx)

	s.ticker = time.NewTicker(time.Duration(s.sess.intervalMs) * time.Millisecond)
	s.tickC = s.ticker.C
	defer s.ticker.Stop()

	// 独立 1s 定时器：只刷新持仓时长显示，不触碰价差状态
	elapsed := time.NewTicker(time.Second)
	defer elapsed.Stop()

	// 启动即发出首次轮询，不等第一个 tick
	s.issuePoll(ctx)

	log.Info().
		Int64("interval_ms", s.sess.intervalMs).
		Int("display_limit", s.sess.displayLimit).
		Bool("advisor", s.deps.AdvisorEnabled).
		Msg("✓ dashboard engine started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.tickC:
			s.issuePoll(ctx)

		case <-elapsed.C:
			s.republish(time.Now())

		case res := <-s.polls:
			s.applyPoll(ctx, res)

		case fn := <-s.cmds:
			fn()
		}
	}
}

// restore 启动时从镜像恢复合约与自动交易配置
func (s *Service) restore(ctx context.Context) {
	if cfg, ok, err := s.deps.Repo.LoadSettings(ctx); err != nil {
		log.Error().Err(err).Msg("load auto-trade settings failed")
	} else if ok {
		s.pilot.SetConfig(cfg)
	}

	active, closed, err := s.deps.Repo.LoadContracts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load contracts failed")
		return
	}
	s.book.Load(active, closed)
	if len(active) > 0 || len(closed) > 0 {
		log.Info().
			Int("active", len(active)).
			Int("closed", len(closed)).
			Msg("✓ contracts restored from mirror")
	}
}

// issuePoll 发出一次带序号的轮询；响应回到循环后按序号去重
func (s *Service) issuePoll(ctx context.Context) {
	seq := s.sess.nextSeq()
	go func() {
		snap, err := s.deps.Source.Poll(ctx)
		select {
		case s.polls <- pollResult{seq: seq, snap: snap, err: err}:
		case <-ctx.Done():
		}
	}()
}

// applyPoll 应用一次轮询结果
// 失败或过期响应不触碰任何状态；空快照按"尚无数据"渲染，过滤集合保持不变
func (s *Service) applyPoll(ctx context.Context, res pollResult) {
	now := time.Now()

	if res.err != nil {
		log.Warn().Err(res.err).Uint64("seq", res.seq).Msg("poll failed, state retained")
		if s.deps.Instr != nil {
			s.deps.Instr.PollError()
		}
		return
	}
	if res.seq <= s.sess.appliedSeq {
		log.Debug().Uint64("seq", res.seq).Uint64("applied", s.sess.appliedSeq).Msg("stale poll response discarded")
		if s.deps.Instr != nil {
			s.deps.Instr.PollStale()
		}
		return
	}
	s.sess.appliedSeq = res.seq

	if res.snap == nil {
		s.renderAndPublish(ctx, now)
		return
	}
	s.sess.applySnapshot(res.snap)
	if s.deps.Instr != nil {
		s.deps.Instr.PollApplied(len(res.snap.Spreads))
	}

	s.renderAndPublish(ctx, now)

	if s.deps.Cache != nil && len(res.snap.Spreads) > 0 {
		if err := s.deps.Cache.UpsertLatestSpreads(ctx, res.snap.Spreads); err != nil {
			log.Warn().Err(err).Msg("spread cache write failed")
		}
	}
}

// renderAndPublish 完整渲染管线：
// 榜单渲染 → 自动开仓 → 合约刷新/自动平仓 → 显著变化提示 → 发布视图
// 合约处理针对完整未过滤快照，过滤只影响展示
func (s *Service) renderAndPublish(ctx context.Context, now time.Time) {
	rows, ph := s.ranking.Render(s.sess.snapshot, s.sess, s.book.HasActive)

	s.autoEnter(ctx, now)
	s.updateContracts(ctx, now)

	if batch := s.monitor.Observe(s.sess.snapshot, now); len(batch) > 0 {
		s.sess.pushAdvisories(batch)
		if s.deps.Instr != nil {
			s.deps.Instr.AdvisoryBatch()
		}
		for _, a := range batch {
			log.Info().
				Str("key", a.Key).
				Float64("prev", a.Previous).
				Float64("cur", a.Current).
				Msg("significant spread change")
			if s.deps.Cache != nil {
				if err := s.deps.Cache.InsertAdvisory(ctx, a); err != nil {
					log.Warn().Err(err).Msg("advisory publish failed")
				}
			}
		}
	}

	s.lastRows = rows
	s.lastPh = ph
	s.publish(now)
	s.scheduleHighlightClear(rows)
}

// autoEnter 自动控制器挑选并打开新仓位
func (s *Service) autoEnter(ctx context.Context, now time.Time) {
	for _, q := range s.pilot.Entries(s.sess.snapshot, s.sess, s.book, now) {
		cfg := s.pilot.Config()
		size := 0.0
		if cfg.AutoEnabled {
			sizer := service.PositionSizer{BankPercent: cfg.BankPercent, MaxContracts: cfg.MaxContracts}
			size = sizer.SizeUSDT(s.deps.DepositUSDT)
		}
		c := s.book.Open(q, cfg.CloseThreshold > 0, cfg.CloseThreshold, size, now)
		if c == nil {
			continue
		}
		s.pilot.MarkAction(c.Key, now)
		log.Info().
			Str("key", c.Key).
			Float64("entry", c.EntrySpread).
			Msg("contract opened automatically")
		if s.deps.Instr != nil {
			s.deps.Instr.ContractOpened(true)
		}
		if err := s.deps.Repo.SaveContract(ctx, c); err != nil {
			log.Error().Err(err).Str("key", c.Key).Msg("contract mirror create failed")
		}
	}
}

// updateContracts 刷新活跃合约当前价差并执行自动平仓
func (s *Service) updateContracts(ctx context.Context, now time.Time) {
	closed := s.book.UpdateFromSnapshot(s.sess.snapshot, s.pilot.ExtraCloseRule(), now)
	for _, cc := range closed {
		s.pilot.MarkAction(cc.Key, now)
		log.Info().
			Str("key", cc.Key).
			Float64("profit", cc.Profit).
			Msg("contract closed automatically")
		if s.deps.Instr != nil {
			s.deps.Instr.ContractClosed(true)
		}
		if err := s.deps.Repo.CloseContract(ctx, cc.Key, cc.CurrentSpread, cc.Profit, cc.CloseTime, true); err != nil {
			log.Error().Err(err).Str("key", cc.Key).Msg("contract mirror close failed")
		}
	}
	for _, c := range s.book.Actives() {
		if err := s.deps.Repo.UpdateContract(ctx, c); err != nil {
			log.Warn().Err(err).Str("key", c.Key).Msg("contract mirror update failed")
		}
	}
}

// scheduleHighlightClear 排名变动高亮在固定延迟后自清除
// 代号守卫：更新一轮渲染后旧定时器不得清掉新高亮
func (s *Service) scheduleHighlightClear(rows []model.BoardRow) {
	moved := false
	for _, r := range rows {
		if r.Movement != model.MoveNone {
			moved = true
			break
		}
	}
	if !moved {
		return
	}
	gen := s.ranking.NextGen()
	time.AfterFunc(time.Duration(s.deps.HighlightMs)*time.Millisecond, func() {
		_ = s.do(func() {
			if s.ranking.Gen() != gen {
				return
			}
			// 已发布视图持有旧切片：清除标记写进新副本，旧视图原样不动
			cleared := make([]model.BoardRow, len(s.lastRows))
			copy(cleared, s.lastRows)
			for i := range cleared {
				cleared[i].Movement = model.MoveNone
			}
			s.lastRows = cleared
			s.publish(time.Now())
		})
	})
}

// publish 构建不可变视图，存储并推给所有 sink
func (s *Service) publish(now time.Time) {
	v := buildView(s.sess, s.book, s.pilot, s.lastRows, s.lastPh, now)
	s.storeView(v)
	if s.deps.Instr != nil {
		s.deps.Instr.SetActiveContracts(len(v.Active))
		s.deps.Instr.SetTotalProfit(v.TotalProfit)
	}
	for _, sink := range s.deps.Sinks {
		if err := sink.PublishBoard(v); err != nil {
			log.Warn().Err(err).Msg("sink publish failed")
		}
	}
}

// republish 只重算时长与收益展示，价差状态保持不变
func (s *Service) republish(now time.Time) {
	s.publish(now)
}

func (s *Service) storeView(v *model.BoardView) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

// AddSink 注册额外的视图消费端，必须在 Run 之前调用
func (s *Service) AddSink(sink port.Sink) {
	s.deps.Sinks = append(s.deps.Sinks, sink)
}

// View 最近发布的视图，任何 goroutine 可读
func (s *Service) View() *model.BoardView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// do 把动作送入事件循环并等待执行完成
func (s *Service) do(fn func()) error {
	done := make(chan struct{})
	select {
	case s.cmds <- func() { fn(); close(done) }:
	case <-s.stopped:
		return ErrEngineStopped
	}
	select {
	case <-done:
		return nil
	case <-s.stopped:
		return ErrEngineStopped
	}
}

// ========== 外部动作（REST 处理器等调用） ==========

// Refresh 用户主动刷新：立即发出一次轮询，暂停期间也允许
// 轮询挂在 Run 的 ctx 上：调用方（HTTP 请求）返回并取消自己的 ctx 后，
// 在途轮询照常完成并应用
func (s *Service) Refresh(ctx context.Context) error {
	return s.do(func() { s.issuePoll(s.runCtx) })
}

// TogglePause 暂停停止 tick 调度（在途响应照常应用）；恢复时重建定时器
func (s *Service) TogglePause() (paused bool, err error) {
	err = s.do(func() {
		s.sess.paused = !s.sess.paused
		if s.sess.paused {
			s.ticker.Stop()
			s.tickC = nil
		} else {
			s.ticker = time.NewTicker(time.Duration(s.sess.intervalMs) * time.Millisecond)
			s.tickC = s.ticker.C
		}
		paused = s.sess.paused
		s.publish(time.Now())
	})
	return paused, err
}

// SetInterval 调整轮询间隔（收敛到边界），取消并重建定时器
// 不影响在途请求
func (s *Service) SetInterval(ms int64) (applied int64, err error) {
	err = s.do(func() {
		s.sess.intervalMs = clampIntervalMs(ms)
		if !s.sess.paused {
			s.ticker.Stop()
			s.ticker = time.NewTicker(time.Duration(s.sess.intervalMs) * time.Millisecond)
			s.tickC = s.ticker.C
		}
		applied = s.sess.intervalMs
		s.publish(time.Now())
	})
	return applied, err
}

// SetDisplayLimit 调整展示条数并立即重渲染当前快照
func (s *Service) SetDisplayLimit(n int) (applied int, err error) {
	err = s.do(func() {
		s.sess.displayLimit = clampDisplayLimit(n)
		applied = s.sess.displayLimit
		now := time.Now()
		s.lastRows, s.lastPh = s.ranking.Render(s.sess.snapshot, s.sess, s.book.HasActive)
		s.publish(now)
		s.scheduleHighlightClear(s.lastRows)
	})
	return applied, err
}

// OpenContract 手动开仓；键不在最新快照中时报错，重复开仓幂等忽略
func (s *Service) OpenContract(ctx context.Context, key string) error {
	var opErr error
	err := s.do(func() {
		q, found := s.sess.quoteByKey(key)
		if !found {
			opErr = ErrQuoteNotFound
			return
		}
		now := time.Now()
		c := s.book.Open(q, false, 0, 0, now)
		if c == nil {
			return // 同键已有活跃合约：幂等
		}
		log.Info().Str("key", key).Float64("entry", c.EntrySpread).Msg("contract opened")
		if s.deps.Instr != nil {
			s.deps.Instr.ContractOpened(false)
		}
		if err := s.deps.Repo.SaveContract(ctx, c); err != nil {
			log.Error().Err(err).Str("key", key).Msg("contract mirror create failed")
		}
		s.rerender(now)
	})
	if err != nil {
		return err
	}
	return opErr
}

// CloseContract 手动平仓；无匹配合约时静默忽略
func (s *Service) CloseContract(ctx context.Context, key string) error {
	return s.do(func() {
		now := time.Now()
		cc := s.book.Close(key, now, false)
		if cc == nil {
			return
		}
		log.Info().Str("key", key).Float64("profit", cc.Profit).Msg("contract closed")
		if s.deps.Instr != nil {
			s.deps.Instr.ContractClosed(false)
		}
		if err := s.deps.Repo.CloseContract(ctx, cc.Key, cc.CurrentSpread, cc.Profit, cc.CloseTime, false); err != nil {
			log.Error().Err(err).Str("key", key).Msg("contract mirror close failed")
		}
		s.rerender(now)
	})
}

// ToggleAutoClose 翻转单合约自动平仓开关
func (s *Service) ToggleAutoClose(ctx context.Context, key string) (enabled, found bool, err error) {
	err = s.do(func() {
		enabled, found = s.book.ToggleAutoClose(key)
		if !found {
			return
		}
		s.mirrorUpdate(ctx, key)
		s.publish(time.Now())
	})
	return enabled, found, err
}

// SetCloseThreshold 设置单合约平仓阈值（手动覆盖，独立于全局阈值）
func (s *Service) SetCloseThreshold(ctx context.Context, key string, v float64) (found bool, err error) {
	err = s.do(func() {
		found = s.book.SetCloseThreshold(key, v)
		if !found {
			return
		}
		s.mirrorUpdate(ctx, key)
		s.publish(time.Now())
	})
	return found, err
}

// ClearClosed 清空平仓历史（内存 + 镜像）
func (s *Service) ClearClosed(ctx context.Context) error {
	return s.do(func() {
		s.book.ClearClosed()
		if err := s.deps.Repo.PurgeClosed(ctx); err != nil {
			log.Error().Err(err).Msg("closed history purge failed")
		}
		s.publish(time.Now())
	})
}

// AutoTrade 当前自动交易配置
func (s *Service) AutoTrade() (cfg model.AutoTradeConfig, err error) {
	err = s.do(func() { cfg = s.pilot.Config() })
	return cfg, err
}

// SetAutoTrade 应用并持久化自动交易配置（越界值收敛）
func (s *Service) SetAutoTrade(ctx context.Context, cfg model.AutoTradeConfig) (applied model.AutoTradeConfig, err error) {
	err = s.do(func() {
		applied = s.pilot.SetConfig(cfg)
		if err := s.deps.Repo.SaveSettings(ctx, applied); err != nil {
			log.Error().Err(err).Msg("auto-trade settings mirror failed")
		}
		s.publish(time.Now())
	})
	return applied, err
}

// ApplySuggestion 顾问建议直接应用到控制器配置并持久化
func (s *Service) ApplySuggestion(ctx context.Context, sug *model.ThresholdSuggestion) (applied model.AutoTradeConfig, err error) {
	err = s.do(func() {
		applied = s.pilot.ApplySuggestion(sug)
		if err := s.deps.Repo.SaveSettings(ctx, applied); err != nil {
			log.Error().Err(err).Msg("auto-trade settings mirror failed")
		}
		s.publish(time.Now())
	})
	return applied, err
}

// StrategyRequest 为顾问组装当前引擎状态
func (s *Service) StrategyRequest() (req port.StrategyRequest, err error) {
	err = s.do(func() {
		req.Spreads = append([]model.SpreadQuote(nil), s.sess.snapshot...)
		for _, c := range s.book.Actives() {
			req.Active = append(req.Active, *c)
		}
		req.Settings = s.pilot.Config()
	})
	return req, err
}

// rerender 合约集变化后立即重算展示（HasContract 标记随之更新）
func (s *Service) rerender(now time.Time) {
	s.lastRows, s.lastPh = s.ranking.Render(s.sess.snapshot, s.sess, s.book.HasActive)
	s.publish(now)
	s.scheduleHighlightClear(s.lastRows)
}

func (s *Service) mirrorUpdate(ctx context.Context, key string) {
	for _, c := range s.book.Actives() {
		if c.Key != key {
			continue
		}
		if err := s.deps.Repo.UpdateContract(ctx, c); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("contract mirror update failed")
		}
		return
	}
}
