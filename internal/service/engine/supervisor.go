package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/KNICEX/forex-bot/internal/repo"
)

// Supervisor 持有全部账户 worker 并对外暴露生命周期
// 所有状态迁移都在锁内完成，Start/Stop 幂等且不阻塞，Join 是唯一的阻塞等待
type Supervisor struct {
	cfg         Config
	accounts    []Account
	tradeRepo   repo.TradeRepo
	accountRepo repo.AccountRepo
	bus         *EventBus

	mu      sync.Mutex
	state   State
	workers []*worker
	wg      sync.WaitGroup
}

func NewSupervisor(cfg Config, accounts []Account, tradeRepo repo.TradeRepo, accountRepo repo.AccountRepo, bus *EventBus) *Supervisor {
	return &Supervisor{
		cfg:         cfg.withDefaults(),
		accounts:    accounts,
		tradeRepo:   tradeRepo,
		accountRepo: accountRepo,
		bus:         bus,
		state:       StateStopped,
	}
}

// Start 为每个账户启动一个独立 worker 后立即返回
// 不等待连接：连不上的账户按自己的退避节奏重试，不拖慢其他账户；
// 非 Stopped 状态下为空操作
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStopped {
		return
	}
	s.state = StateStarting

	s.workers = s.workers[:0]
	for _, account := range s.accounts {
		ctx, cancel := context.WithCancel(context.Background())
		w := newWorker(account, s.cfg, s.tradeRepo, s.accountRepo, s.bus)
		w.cancel = cancel
		s.workers = append(s.workers, w)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			w.run(ctx)
		}()
	}

	s.state = StateRunning
	slog.Info("engine started", "accounts", len(s.workers))
	s.bus.Publish(EventInfo, 0, "engine started, %d accounts", len(s.workers))
}

// Stop 通知所有 worker 退出后立即返回，会话由各 worker 退出时自行断开
// 非 Running 状态下为空操作，重复调用不会产生二次取消
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	s.state = StateStopping

	for _, w := range s.workers {
		w.cancel()
	}
	slog.Info("engine stopping", "accounts", len(s.workers))
	s.bus.Publish(EventInfo, 0, "engine stopping")
}

// Join 阻塞到所有 worker 完全退出（观察到取消并释放会话）后置为 Stopped
// 从未 Start 过也可以安全调用，立即返回
func (s *Supervisor) Join() {
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	started := len(s.workers) > 0
	s.state = StateStopped
	if started {
		slog.Info("engine stopped")
		s.bus.Publish(EventInfo, 0, "engine stopped")
	}
}

// IsRunning 为 true 表示还有 worker 可能在活动，调用方据此决定是否需要优雅停机
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning || s.state == StateStopping
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status 引擎整体状态和每个账户 worker 的子状态
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	workers := make(map[int64]WorkerState, len(s.workers))
	for _, w := range s.workers {
		workers[w.accountId] = w.State()
	}
	return Status{
		State:   s.state,
		Workers: workers,
	}
}
