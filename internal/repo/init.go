package repo

import (
	"github.com/KNICEX/forex-bot/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Strategy{}, &entity.Trade{}, &entity.Account{})
}
