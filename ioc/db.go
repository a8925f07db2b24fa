package ioc

import (
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func InitDB() *gorm.DB {
	type Config struct {
		Path string `mapstructure:"path"`
	}

	cfg := Config{Path: "trading_bot.db"}
	if err := viper.UnmarshalKey("storage.sqlite", &cfg); err != nil {
		panic(err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	if err != nil {
		panic(err)
	}
	return db
}
