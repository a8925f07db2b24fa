package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/KNICEX/forex-bot/internal/entity"
	"github.com/KNICEX/forex-bot/internal/repo"
	"github.com/KNICEX/forex-bot/internal/service/strategy"
	"github.com/KNICEX/forex-bot/internal/service/terminal"
	"github.com/jpillora/backoff"
)

type assignmentState struct {
	Assignment
	lastEval time.Time
}

// worker 一个账户一个，独立失败域
// 会话归它独占，退出时负责断开；任何单账户故障不外溢到其他账户
type worker struct {
	accountId   int64
	server      string
	session     terminal.Session
	assignments []*assignmentState
	cfg         Config

	executor    *Executor
	accountRepo repo.AccountRepo
	bus         *EventBus
	cancel      context.CancelFunc

	state atomic.Int32
	// 完成的轮询周期数，failure isolation 测试和状态展示用
	cycles atomic.Int64
}

func newWorker(account Account, cfg Config, tradeRepo repo.TradeRepo, accountRepo repo.AccountRepo, bus *EventBus) *worker {
	w := &worker{
		accountId:   account.Id,
		server:      account.Server,
		session:     account.Session,
		cfg:         cfg,
		executor:    NewExecutor(account.Id, account.Session, tradeRepo, bus),
		accountRepo: accountRepo,
		bus:         bus,
	}
	for _, as := range account.Assignments {
		w.assignments = append(w.assignments, &assignmentState{Assignment: as})
	}
	w.state.Store(int32(WorkerConnecting))
	return w
}

func (w *worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

func (w *worker) setState(s WorkerState) {
	w.state.Store(int32(s))
}

func (w *worker) Cycles() int64 {
	return w.cycles.Load()
}

func (w *worker) run(ctx context.Context) {
	// 无论怎么退出，会话只断开这一次
	defer w.session.Disconnect()

	bo := &backoff.Backoff{
		Min:    w.cfg.BackoffMin,
		Max:    w.cfg.BackoffMax,
		Factor: 2,
		Jitter: true,
	}
	failures := 0
	var lastSnapshot time.Time

	for {
		if ctx.Err() != nil {
			w.setState(WorkerCancelled)
			slog.Info("worker cancelled", "account", w.accountId)
			w.bus.Publish(EventInfo, w.accountId, "worker stopped")
			return
		}

		if !w.session.IsConnected() {
			if failures == 0 {
				w.setState(WorkerConnecting)
			} else {
				w.setState(WorkerReconnecting)
			}
			if err := w.connect(ctx); err != nil {
				failures++
				slog.Error("connect failed", "account", w.accountId, "server", w.server,
					"attempt", failures, "error", err)
				if failures >= w.cfg.MaxFailures {
					w.setState(WorkerFatal)
					slog.Error("worker giving up, account stopped until engine restart",
						"account", w.accountId, "failures", failures)
					w.bus.Publish(EventError, w.accountId,
						"account stopped after %d consecutive connect failures", failures)
					return
				}
				w.sleep(ctx, bo.Duration())
				continue
			}
			failures = 0
			bo.Reset()
			slog.Info("connected", "account", w.accountId, "server", w.server)
			w.bus.Publish(EventInfo, w.accountId, "connected to %s", w.server)
		}

		w.setState(WorkerPolling)
		now := time.Now()
		for _, as := range w.assignments {
			// Stopping 之后不再发起任何终端动作
			if ctx.Err() != nil {
				break
			}
			if !as.lastEval.IsZero() && now.Sub(as.lastEval) < as.Interval {
				continue
			}
			as.lastEval = now
			w.evaluate(as)
		}

		if ctx.Err() == nil && time.Since(lastSnapshot) >= w.cfg.SnapshotInterval {
			w.refreshSnapshot()
			lastSnapshot = time.Now()
		}

		w.cycles.Add(1)
		w.sleep(ctx, w.nextWake(time.Now()))
	}
}

func (w *worker) connect(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
	defer cancel()
	return w.session.Connect(callCtx)
}

// evaluate 评估一个绑定并执行产生的信号
// 策略内部的任何异常都按无信号处理，不允许拖垮 worker
func (w *worker) evaluate(as *assignmentState) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("strategy panic, treated as no signal", "account", w.accountId,
				"strategy", as.Strategy.Name(), "symbol", as.Symbol, "panic", r)
		}
	}()

	// 终端调用不被取消打断，只受超时约束；取消在循环层观察
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.CallTimeout)
	defer cancel()

	signal, err := as.Strategy.CheckSignal(ctx, w.session, as.Symbol)
	if err != nil {
		if errors.Is(err, terminal.ErrNoData) {
			slog.Debug("insufficient market data, skip cycle",
				"account", w.accountId, "symbol", as.Symbol)
			return
		}
		slog.Error("strategy evaluation failed, treated as no signal", "account", w.accountId,
			"strategy", as.Strategy.Name(), "symbol", as.Symbol, "error", err)
		return
	}
	if signal == strategy.SignalNone || signal == "" {
		return
	}

	w.bus.Publish(EventInfo, w.accountId, "signal %s on %s from %s", signal, as.Symbol, as.Strategy.Name())
	if err := w.executor.Execute(ctx, as.Assignment, signal); err != nil {
		slog.Error("signal execution failed", "account", w.accountId,
			"symbol", as.Symbol, "signal", signal, "error", err)
	}
}

func (w *worker) refreshSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.CallTimeout)
	defer cancel()

	info, err := w.session.AccountInfo(ctx)
	if err != nil {
		slog.Warn("account info unavailable", "account", w.accountId, "error", err)
		return
	}
	err = w.accountRepo.Upsert(ctx, entity.Account{
		AccountId: w.accountId,
		Server:    w.server,
		Balance:   info.Balance,
		Equity:    info.Equity,
		Leverage:  info.Leverage,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		slog.Error("account snapshot persist failed", "account", w.accountId, "error", err)
	}
}

// nextWake 距下一个到期绑定的时间，上限一个 tick
func (w *worker) nextWake(now time.Time) time.Duration {
	wait := w.cfg.Tick
	for _, as := range w.assignments {
		due := as.lastEval.Add(as.Interval)
		if remain := due.Sub(now); remain < wait {
			wait = remain
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// sleep 休眠 d，期间取消立刻被观察到
func (w *worker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
