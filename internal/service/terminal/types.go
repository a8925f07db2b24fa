package terminal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotConnected 会话未连接时调用行情/交易接口
	ErrNotConnected = errors.New("terminal: not connected")
	// ErrNoData 终端没有返回足够的行情数据
	ErrNoData = errors.New("terminal: no market data")
	// ErrPositionNotFound 按 ticket 找不到对应持仓
	ErrPositionNotFound = errors.New("terminal: position not found")
)

// Timeframe K线周期
type Timeframe string

const (
	TimeframeM1  Timeframe = "1m"
	TimeframeM5  Timeframe = "5m"
	TimeframeM15 Timeframe = "15m"
	TimeframeM30 Timeframe = "30m"
	TimeframeH1  Timeframe = "1h"
	TimeframeH4  Timeframe = "4h"
	TimeframeD1  Timeframe = "1d"
)

func (t Timeframe) ToString() string {
	return string(t)
}

func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeM1:
		return time.Minute
	case TimeframeM5:
		return 5 * time.Minute
	case TimeframeM15:
		return 15 * time.Minute
	case TimeframeM30:
		return 30 * time.Minute
	case TimeframeH1:
		return time.Hour
	case TimeframeH4:
		return 4 * time.Hour
	case TimeframeD1:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// ParseTimeframe 解析配置中的周期字符串，无法识别时回退到 1h
func ParseTimeframe(s string) Timeframe {
	switch Timeframe(s) {
	case TimeframeM1, TimeframeM5, TimeframeM15, TimeframeM30, TimeframeH1, TimeframeH4, TimeframeD1:
		return Timeframe(s)
	default:
		return TimeframeH1
	}
}

// Side 持仓/下单方向
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Kline 一根K线
type Kline struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      decimal.Decimal
	Close     decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    decimal.Decimal
}

// Position 终端侧的一个持仓
// Ticket 是终端为该持仓分配的标识，平仓和成交记录都按它对账
type Position struct {
	Ticket    string
	Symbol    string
	Side      Side
	Volume    decimal.Decimal
	OpenPrice decimal.Decimal
	OpenTime  time.Time

	UnrealizedPnl decimal.Decimal
}

// AccountSnapshot 账户的动态信息
type AccountSnapshot struct {
	Balance   decimal.Decimal
	Equity    decimal.Decimal
	Leverage  int
	UpdatedAt time.Time
}

// OrderReq 市价开仓请求
type OrderReq struct {
	Symbol string
	Side   Side
	Volume decimal.Decimal

	// 止损/止盈触发价，为零则不挂
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal

	// 订单备注，会进入 clientOrderId，用于区分不同策略的订单
	Tag string
}

// CloseResult 平仓结果，用于回写成交记录
type CloseResult struct {
	Ticket     string
	ClosePrice decimal.Decimal
	CloseTime  time.Time
	Commission decimal.Decimal
	Swap       decimal.Decimal
	Profit     decimal.Decimal
}

// Session 一个账户到交易终端的连接
// 引擎内一个账户独占一个 Session，不允许跨 worker 共享；
// 所有阻塞调用都接收 ctx，超时/取消由调用方控制
type Session interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool

	AccountInfo(ctx context.Context) (AccountSnapshot, error)
	GetKlines(ctx context.Context, symbol string, timeframe Timeframe, count int) ([]Kline, error)
	PlaceOrder(ctx context.Context, req OrderReq) (Position, error)
	OpenPositions(ctx context.Context) ([]Position, error)
	ClosePosition(ctx context.Context, ticket string) (CloseResult, error)
}
