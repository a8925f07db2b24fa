package engine

import (
	"time"

	"github.com/KNICEX/forex-bot/internal/service/strategy"
	"github.com/KNICEX/forex-bot/internal/service/terminal"
	"github.com/shopspring/decimal"
)

// State 引擎整体状态，只沿 Stopped -> Starting -> Running -> Stopping -> Stopped 迁移
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// WorkerState 单个账户 worker 的子状态
// Fatal / Cancelled 只对该 worker 终结，不影响引擎整体状态
type WorkerState int32

const (
	WorkerConnecting WorkerState = iota
	WorkerPolling
	WorkerReconnecting
	WorkerFatal
	WorkerCancelled
)

func (s WorkerState) String() string {
	switch s {
	case WorkerConnecting:
		return "connecting"
	case WorkerPolling:
		return "polling"
	case WorkerReconnecting:
		return "reconnecting"
	case WorkerFatal:
		return "fatal"
	case WorkerCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Assignment 一个策略在某个账户、某个品种上的绑定
// 启动时由配置构造，一次运行期间不可变
type Assignment struct {
	StrategyId int64
	Strategy   strategy.Strategy
	Symbol     string
	Interval   time.Duration
	Volume     decimal.Decimal

	// 相对开仓价的百分比偏移，零值表示不挂
	StopLossPct   decimal.Decimal
	TakeProfitPct decimal.Decimal
}

// Account 一个受管账户的运行时配置，Session 归该账户的 worker 独占
type Account struct {
	Id          int64
	Server      string
	Session     terminal.Session
	Assignments []Assignment
}

// Config worker 公共参数，零值字段取默认值
type Config struct {
	// 调度最小粒度，取消在一个 tick 内一定被观察到
	Tick time.Duration

	// 重连退避
	BackoffMin time.Duration
	BackoffMax time.Duration
	// 连续连接失败超过该次数后，该账户的 worker 退出
	MaxFailures int

	// 单次终端调用的超时
	CallTimeout time.Duration

	// 账户快照入库周期
	SnapshotInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = time.Second
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 5 * time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Minute
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = 10
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = time.Minute
	}
	return c
}

// Status 引擎状态面板
type Status struct {
	State   State
	Workers map[int64]WorkerState
}
