package entity

import (
	"time"
)

// Strategy 策略定义，Params 为 json 串，结构由具体策略解释
type Strategy struct {
	Id          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"uniqueIndex"`
	Description string
	Params      string `gorm:"type:text"`
	IsActive    bool   `gorm:"index"`
	CreatedAt   time.Time
}
