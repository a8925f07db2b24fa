package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account 受管账户的动态信息快照
type Account struct {
	Id        int64 `gorm:"primaryKey;autoIncrement"`
	AccountId int64 `gorm:"uniqueIndex"`
	Server    string

	Balance  decimal.Decimal
	Equity   decimal.Decimal
	Leverage int

	UpdatedAt time.Time
}
