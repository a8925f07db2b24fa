package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// App 启动时从配置文件构造一次，之后以引用传入各组件，不做全局单例
type App struct {
	Engine   Engine
	Accounts []Account
}

type Engine struct {
	Tick             time.Duration `mapstructure:"tick"`
	BackoffMin       time.Duration `mapstructure:"backoff_min"`
	BackoffMax       time.Duration `mapstructure:"backoff_max"`
	MaxFailures      int           `mapstructure:"max_failures"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	EventBuffer      int           `mapstructure:"event_buffer"`
}

type Account struct {
	AccountId int64  `mapstructure:"account_id"`
	Server    string `mapstructure:"server"`
	ApiKey    string `mapstructure:"api_key"`
	ApiSecret string `mapstructure:"api_secret"`
	Leverage  int    `mapstructure:"leverage"`

	Assignments []Assignment `mapstructure:"assignments"`
}

// Assignment 策略绑定：策略名对应 strategy 表中的定义
type Assignment struct {
	Strategy        string        `mapstructure:"strategy"`
	Symbol          string        `mapstructure:"symbol"`
	PollingInterval time.Duration `mapstructure:"polling_interval"`
	Volume          string        `mapstructure:"volume"`
	StopLossPct     float64       `mapstructure:"stop_loss_pct"`
	TakeProfitPct   float64       `mapstructure:"take_profit_pct"`
	LLMConfirm      bool          `mapstructure:"llm_confirm"`
}

func Load() (App, error) {
	var app App
	if err := viper.UnmarshalKey("engine", &app.Engine); err != nil {
		return App{}, fmt.Errorf("invalid engine config: %w", err)
	}
	if err := viper.UnmarshalKey("accounts", &app.Accounts); err != nil {
		return App{}, fmt.Errorf("invalid accounts config: %w", err)
	}

	for i := range app.Accounts {
		account := &app.Accounts[i]
		if account.AccountId == 0 {
			return App{}, fmt.Errorf("accounts[%d]: account_id is required", i)
		}
		if account.Leverage <= 0 {
			account.Leverage = 1
		}
		for j := range account.Assignments {
			as := &account.Assignments[j]
			if as.Strategy == "" || as.Symbol == "" {
				return App{}, fmt.Errorf("account %d assignments[%d]: strategy and symbol are required",
					account.AccountId, j)
			}
			if as.PollingInterval <= 0 {
				as.PollingInterval = time.Minute
			}
			if as.Volume == "" {
				as.Volume = "0.01"
			}
		}
	}
	return app, nil
}
