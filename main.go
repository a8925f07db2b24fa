package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KNICEX/forex-bot/internal/config"
	"github.com/KNICEX/forex-bot/internal/entity"
	"github.com/KNICEX/forex-bot/internal/repo"
	"github.com/KNICEX/forex-bot/internal/service/engine"
	"github.com/KNICEX/forex-bot/internal/service/llm"
	"github.com/KNICEX/forex-bot/internal/service/llm/gemini"
	"github.com/KNICEX/forex-bot/internal/service/strategy"
	binanceterm "github.com/KNICEX/forex-bot/internal/service/terminal/binance"
	"github.com/KNICEX/forex-bot/ioc"
	"github.com/KNICEX/forex-bot/pkg/decimalx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initViper() {

	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}
}

// 首次启动写入默认的双均线策略定义，已存在则不动
func seedStrategies(ctx context.Context, strategyRepo repo.StrategyRepo) {
	err := strategyRepo.Seed(ctx, entity.Strategy{
		Name:        "default_ma_crossover",
		Description: "A simple moving average crossover strategy.",
		Params:      `{"type":"ma_crossover","short_ma_period":10,"long_ma_period":50,"timeframe":"1h"}`,
		IsActive:    true,
	})
	if err != nil {
		panic(err)
	}
}

func buildAccounts(ctx context.Context, cfg config.App, strategyRepo repo.StrategyRepo) []engine.Account {
	defs, err := strategyRepo.FindActive(ctx)
	if err != nil {
		panic(err)
	}
	byName := lo.KeyBy(defs, func(def entity.Strategy) string {
		return def.Name
	})

	var llmSvc llm.Service
	accounts := make([]engine.Account, 0, len(cfg.Accounts))
	for _, ac := range cfg.Accounts {
		session := binanceterm.NewSession(ioc.InitFuturesCli(ac.ApiKey, ac.ApiSecret), ac.Leverage)

		assignments := make([]engine.Assignment, 0, len(ac.Assignments))
		for _, asCfg := range ac.Assignments {
			def, ok := byName[asCfg.Strategy]
			if !ok {
				panic(fmt.Errorf("account %d: unknown or inactive strategy %q", ac.AccountId, asCfg.Strategy))
			}
			sg, err := strategy.FromEntity(def)
			if err != nil {
				panic(err)
			}
			if asCfg.LLMConfirm {
				if llmSvc == nil {
					llmSvc = gemini.NewService(ioc.InitGeminiCli())
				}
				sg = strategy.NewLLMConfirm(sg, llmSvc)
			}
			assignments = append(assignments, engine.Assignment{
				StrategyId:    def.Id,
				Strategy:      sg,
				Symbol:        asCfg.Symbol,
				Interval:      asCfg.PollingInterval,
				Volume:        decimalx.MustFromString(asCfg.Volume),
				StopLossPct:   decimal.NewFromFloat(asCfg.StopLossPct),
				TakeProfitPct: decimal.NewFromFloat(asCfg.TakeProfitPct),
			})
		}

		accounts = append(accounts, engine.Account{
			Id:          ac.AccountId,
			Server:      ac.Server,
			Session:     session,
			Assignments: assignments,
		})
	}
	return accounts
}

// 事件流单消费者：这里只落到日志，换成 TUI/Web 展示层也只需要替换这一个循环
func drainEvents(bus *engine.EventBus) {
	for ev := range bus.Events() {
		switch ev.Level {
		case engine.EventError:
			slog.Error(ev.Message, "account", ev.AccountId)
		case engine.EventWarn:
			slog.Warn(ev.Message, "account", ev.AccountId)
		default:
			slog.Info(ev.Message, "account", ev.AccountId)
		}
	}
}

func main() {
	initViper()

	db := ioc.InitDB()
	if err := repo.InitTables(db); err != nil {
		panic(err)
	}

	ctx := context.Background()
	strategyRepo := repo.NewStrategyRepo(db)
	seedStrategies(ctx, strategyRepo)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	accounts := buildAccounts(ctx, cfg, strategyRepo)

	bus := engine.NewEventBus(cfg.Engine.EventBuffer)
	go drainEvents(bus)

	sup := engine.NewSupervisor(engine.Config{
		Tick:             cfg.Engine.Tick,
		BackoffMin:       cfg.Engine.BackoffMin,
		BackoffMax:       cfg.Engine.BackoffMax,
		MaxFailures:      cfg.Engine.MaxFailures,
		CallTimeout:      cfg.Engine.CallTimeout,
		SnapshotInterval: cfg.Engine.SnapshotInterval,
	}, accounts, repo.NewTradeRepo(db), repo.NewAccountRepo(db), bus)

	sup.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	sup.Stop()
	sup.Join()
}
