package strategy

import (
	"context"

	"github.com/KNICEX/forex-bot/internal/service/terminal"
)

// Signal 策略对单个品种给出的单周期建议
type Signal string

const (
	SignalBuy   Signal = "BUY"
	SignalSell  Signal = "SELL"
	SignalClose Signal = "CLOSE"
	SignalNone  Signal = "NONE"
)

// Strategy 信号策略
// CheckSignal 对同一个 (账户, 品种) 会被反复独立调用，
// 不允许在不同品种/账户之间泄漏内部状态
type Strategy interface {
	Name() string
	CheckSignal(ctx context.Context, session terminal.Session, symbol string) (Signal, error)
}
