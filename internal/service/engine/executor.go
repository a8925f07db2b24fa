package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KNICEX/forex-bot/internal/entity"
	"github.com/KNICEX/forex-bot/internal/repo"
	"github.com/KNICEX/forex-bot/internal/service/strategy"
	"github.com/KNICEX/forex-bot/internal/service/terminal"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Executor 把策略信号和当前持仓换算成至多一个订单动作
// 持仓每次都从终端现查，不跨周期缓存，外部干预（手动平仓、止损触发）
// 下个周期自然会被看到
type Executor struct {
	accountId int64
	session   terminal.Session
	tradeRepo repo.TradeRepo
	bus       *EventBus
}

func NewExecutor(accountId int64, session terminal.Session, tradeRepo repo.TradeRepo, bus *EventBus) *Executor {
	return &Executor{
		accountId: accountId,
		session:   session,
		tradeRepo: tradeRepo,
		bus:       bus,
	}
}

// Execute 决策表：
//
//	空仓 + BUY  -> 开多        多头 + BUY  -> 不动
//	空仓 + SELL -> 开空        多头 + SELL -> 平多后开空
//	空仓 + CLOSE-> 不动        多头 + CLOSE-> 平多
//	空头对称。
//
// 同一 (账户, 品种) 任何时刻至多一个受管持仓：反向信号必须先平后开
func (e *Executor) Execute(ctx context.Context, as Assignment, signal strategy.Signal) error {
	positions, err := e.session.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("get open positions failed: %w", err)
	}
	current, ok := lo.Find(positions, func(p terminal.Position) bool {
		return p.Symbol == as.Symbol
	})

	switch signal {
	case strategy.SignalBuy:
		return e.align(ctx, as, current, ok, terminal.SideLong)
	case strategy.SignalSell:
		return e.align(ctx, as, current, ok, terminal.SideShort)
	case strategy.SignalClose:
		if !ok {
			return nil
		}
		return e.closePosition(ctx, as, current)
	default:
		return nil
	}
}

func (e *Executor) align(ctx context.Context, as Assignment, current terminal.Position, held bool, want terminal.Side) error {
	if held && current.Side == want {
		// 已同向，无动作
		return nil
	}
	if held {
		if err := e.closePosition(ctx, as, current); err != nil {
			return err
		}
		// 平仓成功后开仓失败则接受空仓结果，本周期不重试，
		// 下个周期的信号评估会驱动下一步动作
	}
	return e.openPosition(ctx, as, want)
}

func (e *Executor) openPosition(ctx context.Context, as Assignment, side terminal.Side) error {
	req := terminal.OrderReq{
		Symbol: as.Symbol,
		Side:   side,
		Volume: as.Volume,
		Tag:    as.Strategy.Name(),
	}
	if !as.StopLossPct.IsZero() || !as.TakeProfitPct.IsZero() {
		if price, err := e.latestClose(ctx, as.Symbol); err != nil {
			slog.Warn("no price for stop orders, opening without",
				"account", e.accountId, "symbol", as.Symbol, "error", err)
		} else {
			req.StopLoss, req.TakeProfit = stopPrices(price, side, as.StopLossPct, as.TakeProfitPct)
		}
	}

	opened, err := e.session.PlaceOrder(ctx, req)
	if err != nil {
		e.bus.Publish(EventError, e.accountId, "order rejected: %s %s %s: %v", side, as.Symbol, as.Volume, err)
		return fmt.Errorf("place order failed: %w", err)
	}
	e.bus.Publish(EventInfo, e.accountId, "opened %s %s %s @ %s, ticket %s",
		side, as.Symbol, opened.Volume, opened.OpenPrice, opened.Ticket)

	tradeSide := entity.TradeSideBuy
	if side == terminal.SideShort {
		tradeSide = entity.TradeSideSell
	}
	_, err = e.tradeRepo.Create(ctx, entity.Trade{
		Ticket:     opened.Ticket,
		StrategyId: as.StrategyId,
		AccountId:  e.accountId,
		Symbol:     as.Symbol,
		Side:       tradeSide,
		Volume:     opened.Volume,
		OpenPrice:  opened.OpenPrice,
		OpenTime:   opened.OpenTime,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	})
	if err != nil {
		// 交易已经发生，入库失败绝不回滚或重试下单，标记后人工对账
		slog.Error("trade record create failed, needs reconciliation",
			"account", e.accountId, "ticket", opened.Ticket, "error", err)
		e.bus.Publish(EventError, e.accountId, "trade %s not recorded, reconcile manually", opened.Ticket)
	}
	return nil
}

func (e *Executor) closePosition(ctx context.Context, as Assignment, position terminal.Position) error {
	res, err := e.session.ClosePosition(ctx, position.Ticket)
	if err != nil {
		e.bus.Publish(EventError, e.accountId, "close rejected: %s ticket %s: %v", as.Symbol, position.Ticket, err)
		return fmt.Errorf("close position failed: %w", err)
	}
	e.bus.Publish(EventInfo, e.accountId, "closed %s ticket %s @ %s, profit %s",
		as.Symbol, res.Ticket, res.ClosePrice, res.Profit)

	err = e.tradeRepo.UpdateOnClose(ctx, res.Ticket, repo.TradeClose{
		ClosePrice: res.ClosePrice,
		CloseTime:  res.CloseTime,
		Commission: res.Commission,
		Swap:       res.Swap,
		Profit:     res.Profit,
	})
	if err != nil {
		slog.Error("trade record close failed, needs reconciliation",
			"account", e.accountId, "ticket", res.Ticket, "error", err)
		e.bus.Publish(EventError, e.accountId, "trade %s close not recorded, reconcile manually", res.Ticket)
	}
	return nil
}

func (e *Executor) latestClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	klines, err := e.session.GetKlines(ctx, symbol, terminal.TimeframeM1, 1)
	if err != nil {
		return decimal.Zero, err
	}
	if len(klines) == 0 {
		return decimal.Zero, terminal.ErrNoData
	}
	return klines[len(klines)-1].Close, nil
}

var hundred = decimal.NewFromInt(100)

func stopPrices(price decimal.Decimal, side terminal.Side, slPct, tpPct decimal.Decimal) (sl, tp decimal.Decimal) {
	if !slPct.IsZero() {
		offset := price.Mul(slPct).Div(hundred)
		if side == terminal.SideLong {
			sl = price.Sub(offset)
		} else {
			sl = price.Add(offset)
		}
	}
	if !tpPct.IsZero() {
		offset := price.Mul(tpPct).Div(hundred)
		if side == terminal.SideLong {
			tp = price.Add(offset)
		} else {
			tp = price.Sub(offset)
		}
	}
	return sl, tp
}
