package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeSideBuy  = "BUY"
	TradeSideSell = "SELL"
)

// Trade 引擎执行过的一笔交易
// 开仓时创建，平仓时按 Ticket 回写 Close* 及盈亏字段
type Trade struct {
	Id         int64  `gorm:"primaryKey;autoIncrement"`
	Ticket     string `gorm:"uniqueIndex"`
	StrategyId int64  `gorm:"index"`
	AccountId  int64  `gorm:"index"`

	Symbol string `gorm:"index"`
	Side   string
	Volume decimal.Decimal

	OpenPrice decimal.Decimal
	OpenTime  time.Time

	ClosePrice decimal.Decimal
	CloseTime  time.Time

	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal

	Commission decimal.Decimal
	Swap       decimal.Decimal
	Profit     decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}
