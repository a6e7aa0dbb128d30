package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"spreadmaster/internal/domain/model"
)

// fakeSource 可编程的状态提供方
type fakeSource struct {
	mu sync.Mutex
	fn func(ctx context.Context) (*model.Snapshot, error)
}

func (f *fakeSource) Poll(ctx context.Context) (*model.Snapshot, error) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx)
}

func (f *fakeSource) set(fn func(ctx context.Context) (*model.Snapshot, error)) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
}

// recordingRepo 记录镜像调用的桩仓储
type recordingRepo struct {
	noopRepo
	mu     sync.Mutex
	saved  []string
	closed []string
}

func (r *recordingRepo) SaveContract(ctx context.Context, c *model.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, c.Key)
	return nil
}

func (r *recordingRepo) CloseContract(ctx context.Context, key string, cur, profit float64, closeTime int64, wasAuto bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, key)
	return nil
}

func (r *recordingRepo) savedKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.saved...)
}

func snapshotOf(quotes ...model.SpreadQuote) *model.Snapshot {
	return &model.Snapshot{
		Spreads:          quotes,
		EnabledExchanges: []string{"binance", "okx", "bybit"},
		SelectedPairs:    []string{"BTC/USDT", "ETH/USDT"},
		Timestamp:        time.Now().UnixMilli(),
	}
}

func startEngine(t *testing.T, deps ServiceDeps) (*Service, context.CancelFunc) {
	t.Helper()
	svc := NewService(deps)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = svc.Run(ctx) }()
	return svc, cancel
}

func waitView(t *testing.T, svc *Service, cond func(*model.BoardView) bool) *model.BoardView {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if v := svc.View(); v != nil && cond(v) {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached, last view: %+v", svc.View())
	return nil
}

func TestEngineInitialPollAndManualLifecycle(t *testing.T) {
	src := &fakeSource{}
	src.set(func(ctx context.Context) (*model.Snapshot, error) {
		return snapshotOf(quote("BTC/USDT", "binance", "okx", 1.2)), nil
	})
	repo := &recordingRepo{}

	svc, cancel := startEngine(t, ServiceDeps{
		Source:     src,
		Repo:       repo,
		IntervalMs: 30000,
	})
	defer cancel()

	v := waitView(t, svc, func(v *model.BoardView) bool { return len(v.Rows) == 1 })
	if v.Rows[0].Key != "BTC/USDT|binance|okx" {
		t.Fatalf("unexpected head row %+v", v.Rows[0])
	}

	key := v.Rows[0].Key
	if err := svc.OpenContract(context.Background(), key); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	v = waitView(t, svc, func(v *model.BoardView) bool { return len(v.Active) == 1 })
	if v.Rows[0].HasContract != true {
		t.Fatal("board row must flag the active contract")
	}
	if got := repo.savedKeys(); len(got) != 1 || got[0] != key {
		t.Fatalf("mirror create expected for %s, got %v", key, got)
	}

	// 重复开仓幂等
	if err := svc.OpenContract(context.Background(), key); err != nil {
		t.Fatalf("duplicate open must not error: %v", err)
	}
	if len(repo.savedKeys()) != 1 {
		t.Fatal("duplicate open must not hit the mirror")
	}

	// 未知键开仓报错
	if err := svc.OpenContract(context.Background(), "X/USDT|a|b"); err != ErrQuoteNotFound {
		t.Fatalf("want ErrQuoteNotFound, got %v", err)
	}

	if err := svc.CloseContract(context.Background(), key); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	waitView(t, svc, func(v *model.BoardView) bool {
		return len(v.Active) == 0 && len(v.Closed) == 1
	})
}

func TestEngineStaleResponseDiscarded(t *testing.T) {
	src := &fakeSource{}
	firstDone := make(chan struct{})
	calls := 0
	var mu sync.Mutex
	src.set(func(ctx context.Context) (*model.Snapshot, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			// 第一次请求等第二次先返回，制造乱序到达
			<-firstDone
			return snapshotOf(quote("BTC/USDT", "binance", "okx", 0.1)), nil
		}
		defer close(firstDone)
		return snapshotOf(quote("BTC/USDT", "binance", "okx", 2.0)), nil
	})

	svc, cancel := startEngine(t, ServiceDeps{
		Source:     src,
		Repo:       NewNoopRepo(),
		IntervalMs: 30000,
	})
	defer cancel()

	// 两次轮询在途：seq1 慢、seq2 快
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	v := waitView(t, svc, func(v *model.BoardView) bool { return v.Seq == 2 })
	if len(v.Rows) != 1 || v.Rows[0].SpreadPercent != 2.0 {
		t.Fatalf("newer snapshot must win, got %+v", v.Rows)
	}

	// seq1 迟到后不得覆盖 seq2 的数据
	time.Sleep(50 * time.Millisecond)
	v = svc.View()
	if v.Seq != 2 || v.Rows[0].SpreadPercent != 2.0 {
		t.Fatalf("stale response applied: seq=%d rows=%+v", v.Seq, v.Rows)
	}
}

func TestEngineRefreshOutlivesCaller(t *testing.T) {
	src := &fakeSource{}
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	src.set(func(ctx context.Context) (*model.Snapshot, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return snapshotOf(quote("BTC/USDT", "binance", "okx", 1.0)), nil
		}
		// 第二次是用户刷新：等调用方先取消自己的上下文
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return snapshotOf(quote("BTC/USDT", "binance", "okx", 2.0)), nil
	})

	svc, cancel := startEngine(t, ServiceDeps{
		Source:     src,
		Repo:       NewNoopRepo(),
		IntervalMs: 30000,
	})
	defer cancel()
	waitView(t, svc, func(v *model.BoardView) bool { return v.Seq == 1 })

	// 模拟 HTTP 处理器：Refresh 返回后请求上下文立即取消
	reqCtx, cancelReq := context.WithCancel(context.Background())
	if err := svc.Refresh(reqCtx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	cancelReq()
	close(release)

	v := waitView(t, svc, func(v *model.BoardView) bool { return v.Seq == 2 })
	if len(v.Rows) != 1 || v.Rows[0].SpreadPercent != 2.0 {
		t.Fatalf("refresh poll must survive the caller's context, got %+v", v.Rows)
	}
}

func TestEnginePollErrorRetainsState(t *testing.T) {
	src := &fakeSource{}
	src.set(func(ctx context.Context) (*model.Snapshot, error) {
		return snapshotOf(quote("BTC/USDT", "binance", "okx", 1.2)), nil
	})
	svc, cancel := startEngine(t, ServiceDeps{
		Source:     src,
		Repo:       NewNoopRepo(),
		IntervalMs: 30000,
	})
	defer cancel()
	waitView(t, svc, func(v *model.BoardView) bool { return len(v.Rows) == 1 })

	// 之后的轮询全部失败：内存状态原样保留
	src.set(func(ctx context.Context) (*model.Snapshot, error) {
		return nil, context.DeadlineExceeded
	})
	_ = svc.Refresh(context.Background())
	time.Sleep(50 * time.Millisecond)

	v := svc.View()
	if len(v.Rows) != 1 || v.Rows[0].SpreadPercent != 1.2 {
		t.Fatalf("failed poll must not touch state, got %+v", v.Rows)
	}
}

func TestEngineAutoEntryOnPoll(t *testing.T) {
	src := &fakeSource{}
	src.set(func(ctx context.Context) (*model.Snapshot, error) {
		return snapshotOf(quote("ETH/USDT", "bybit", "okx", 0.6)), nil
	})
	repo := &recordingRepo{}

	svc, cancel := startEngine(t, ServiceDeps{
		Source:     src,
		Repo:       repo,
		IntervalMs: 30000,
		AutoTrade:  model.AutoTradeConfig{OpenThreshold: 0.5, MaxContracts: 10, BankPercent: 10},
	})
	defer cancel()

	// 阈值 0.5、报价 0.6：自动开仓
	v := waitView(t, svc, func(v *model.BoardView) bool { return len(v.Active) == 1 })
	if v.Active[0].Key != "ETH/USDT|bybit|okx" {
		t.Fatalf("unexpected auto contract %+v", v.Active[0])
	}
	if got := repo.savedKeys(); len(got) != 1 {
		t.Fatalf("auto entry must mirror create, got %v", got)
	}
}

func TestEnginePauseStopsTicks(t *testing.T) {
	src := &fakeSource{}
	var mu sync.Mutex
	polls := 0
	src.set(func(ctx context.Context) (*model.Snapshot, error) {
		mu.Lock()
		polls++
		mu.Unlock()
		return snapshotOf(quote("BTC/USDT", "binance", "okx", 1.0)), nil
	})

	svc, cancel := startEngine(t, ServiceDeps{
		Source:     src,
		Repo:       NewNoopRepo(),
		IntervalMs: 30000,
	})
	defer cancel()
	waitView(t, svc, func(v *model.BoardView) bool { return v.Seq >= 1 })

	paused, err := svc.TogglePause()
	if err != nil || !paused {
		t.Fatalf("pause failed: paused=%v err=%v", paused, err)
	}
	mu.Lock()
	before := polls
	mu.Unlock()

	time.Sleep(80 * time.Millisecond)
	mu.Lock()
	after := polls
	mu.Unlock()
	if after != before {
		t.Fatalf("ticks fired while paused: %d -> %d", before, after)
	}

	// 暂停期间用户主动刷新仍然允许
	_ = svc.Refresh(context.Background())
	waitView(t, svc, func(v *model.BoardView) bool { return v.Seq >= 2 })

	if resumed, _ := svc.TogglePause(); resumed {
		t.Fatal("second toggle must resume")
	}
}

func TestEngineSettingsClamping(t *testing.T) {
	src := &fakeSource{}
	src.set(func(ctx context.Context) (*model.Snapshot, error) {
		return snapshotOf(), nil
	})
	svc, cancel := startEngine(t, ServiceDeps{
		Source:     src,
		Repo:       NewNoopRepo(),
		IntervalMs: 30000,
	})
	defer cancel()
	waitView(t, svc, func(v *model.BoardView) bool { return v.Seq >= 1 })

	if got, _ := svc.SetInterval(100); got != IntervalMinMs {
		t.Fatalf("interval clamp = %d, want %d", got, IntervalMinMs)
	}
	if got, _ := svc.SetDisplayLimit(999); got != DisplayLimitMax {
		t.Fatalf("display limit clamp = %d, want %d", got, DisplayLimitMax)
	}

	applied, _ := svc.SetAutoTrade(context.Background(), model.AutoTradeConfig{
		OpenThreshold:  7,
		CloseThreshold: -1,
		MaxContracts:   0,
		BankPercent:    500,
	})
	if applied.OpenThreshold != model.ThresholdMax || applied.CloseThreshold != 0 {
		t.Fatalf("threshold clamps wrong: %+v", applied)
	}
	if applied.MaxContracts != model.MaxContractsMin || applied.BankPercent != model.BankPercentMax {
		t.Fatalf("count clamps wrong: %+v", applied)
	}
}

func TestEngineHighlightSelfClears(t *testing.T) {
	src := &fakeSource{}
	var mu sync.Mutex
	phase := 0
	src.set(func(ctx context.Context) (*model.Snapshot, error) {
		mu.Lock()
		defer mu.Unlock()
		if phase == 0 {
			return snapshotOf(
				quote("BTC/USDT", "binance", "okx", 2.0),
				quote("ETH/USDT", "bybit", "okx", 1.0),
			), nil
		}
		return snapshotOf(
			quote("BTC/USDT", "binance", "okx", 0.8),
			quote("ETH/USDT", "bybit", "okx", 1.5),
		), nil
	})

	svc, cancel := startEngine(t, ServiceDeps{
		Source:      src,
		Repo:        NewNoopRepo(),
		IntervalMs:  30000,
		HighlightMs: 40, // 测试用短延迟
	})
	defer cancel()
	waitView(t, svc, func(v *model.BoardView) bool { return v.Seq == 1 })

	mu.Lock()
	phase = 1
	mu.Unlock()
	_ = svc.Refresh(context.Background())

	v := waitView(t, svc, func(v *model.BoardView) bool {
		return v.Seq == 2 && len(v.Rows) == 2 && v.Rows[0].Movement == model.MoveUp
	})
	if v.Rows[1].Movement != model.MoveDown {
		t.Fatalf("expected down tag, got %v", v.Rows[1].Movement)
	}
	highlighted := v

	// 高亮在下一次轮询之前自行清除
	waitView(t, svc, func(v *model.BoardView) bool {
		return v.Seq == 2 &&
			v.Rows[0].Movement == model.MoveNone &&
			v.Rows[1].Movement == model.MoveNone
	})

	// 清除只进新视图：之前发布出去的视图不得被就地改写
	if highlighted.Rows[0].Movement != model.MoveUp || highlighted.Rows[1].Movement != model.MoveDown {
		t.Fatalf("published view mutated after the fact: %+v", highlighted.Rows)
	}
}
