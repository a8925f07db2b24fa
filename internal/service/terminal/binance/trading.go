package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/KNICEX/forex-bot/internal/service/terminal"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

func binanceSide(side terminal.Side) futures.SideType {
	if side == terminal.SideLong {
		return futures.SideTypeBuy
	}
	return futures.SideTypeSell
}

// PlaceOrder 市价开仓，可选挂出止损/止盈的市价触发单
// 止损/止盈单失败不影响主订单，只在返回的 error 中体现
func (s *Session) PlaceOrder(ctx context.Context, req terminal.OrderReq) (terminal.Position, error) {
	if !s.IsConnected() {
		return terminal.Position{}, terminal.ErrNotConnected
	}

	svc := s.cli.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(binanceSide(req.Side)).
		Type(futures.OrderTypeMarket).
		Quantity(req.Volume.String()).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT)
	if req.Tag != "" {
		svc.NewClientOrderID(fmt.Sprintf("%s-%d", req.Tag, time.Now().UnixMilli()))
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return terminal.Position{}, fmt.Errorf("create order failed: %w", err)
	}

	openPrice := decimal.RequireFromString(resp.AvgPrice)
	if openPrice.IsZero() {
		// 部分回包不带均价，取最新价兜底
		if price, err := s.lastPrice(ctx, req.Symbol); err == nil {
			openPrice = price
		}
	}

	ticket := strconv.FormatInt(resp.OrderID, 10)
	s.rememberTicket(ticket, req.Symbol)

	position := terminal.Position{
		Ticket:    ticket,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Volume:    req.Volume,
		OpenPrice: openPrice,
		OpenTime:  time.UnixMilli(resp.UpdateTime),
	}

	if !req.StopLoss.IsZero() {
		if err := s.placeStopOrder(ctx, req, futures.OrderTypeStopMarket, req.StopLoss); err != nil {
			return position, fmt.Errorf("order %s placed, but stop loss failed: %w", ticket, err)
		}
	}
	if !req.TakeProfit.IsZero() {
		if err := s.placeStopOrder(ctx, req, futures.OrderTypeTakeProfitMarket, req.TakeProfit); err != nil {
			return position, fmt.Errorf("order %s placed, but take profit failed: %w", ticket, err)
		}
	}
	return position, nil
}

func (s *Session) placeStopOrder(ctx context.Context, req terminal.OrderReq, orderType futures.OrderType, trigger decimal.Decimal) error {
	_, err := s.cli.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(binanceSide(req.Side.Opposite())).
		Type(orderType).
		StopPrice(trigger.String()).
		ClosePosition(true).
		Do(ctx)
	return err
}

// OpenPositions 返回账户当前全部持仓
// 币安的挂单会以零数量仓位出现，需要过滤
func (s *Session) OpenPositions(ctx context.Context) ([]terminal.Position, error) {
	if !s.IsConnected() {
		return nil, terminal.ErrNotConnected
	}
	risks, err := s.cli.NewGetPositionRiskV3Service().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("get position risk failed: %w", err)
	}

	positions := make([]terminal.Position, 0, len(risks))
	for _, r := range risks {
		amount := decimal.RequireFromString(r.PositionAmt)
		if amount.IsZero() {
			continue
		}
		side := terminal.SideLong
		if amount.IsNegative() {
			side = terminal.SideShort
		}

		// 本会话开的仓按开仓订单号对账；引擎外部开的仓没有订单号，退化为 symbol
		ticket, ok := s.ticketForSymbol(r.Symbol)
		if !ok {
			ticket = r.Symbol
		}

		positions = append(positions, terminal.Position{
			Ticket:        ticket,
			Symbol:        r.Symbol,
			Side:          side,
			Volume:        amount.Abs(),
			OpenPrice:     decimal.RequireFromString(r.EntryPrice),
			OpenTime:      time.UnixMilli(r.UpdateTime),
			UnrealizedPnl: decimal.RequireFromString(r.UnRealizedProfit),
		})
	}
	return positions, nil
}

// ClosePosition 按 ticket 全量平仓（reduce-only 市价单）
func (s *Session) ClosePosition(ctx context.Context, ticket string) (terminal.CloseResult, error) {
	if !s.IsConnected() {
		return terminal.CloseResult{}, terminal.ErrNotConnected
	}

	symbol, ok := s.symbolByTicket(ticket)
	if !ok {
		symbol = ticket
	}

	positions, err := s.OpenPositions(ctx)
	if err != nil {
		return terminal.CloseResult{}, err
	}
	var target *terminal.Position
	for i := range positions {
		if positions[i].Ticket == ticket || positions[i].Symbol == symbol {
			target = &positions[i]
			break
		}
	}
	if target == nil {
		return terminal.CloseResult{}, terminal.ErrPositionNotFound
	}

	resp, err := s.cli.NewCreateOrderService().
		Symbol(target.Symbol).
		Side(binanceSide(target.Side.Opposite())).
		Type(futures.OrderTypeMarket).
		Quantity(target.Volume.String()).
		ReduceOnly(true).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT).
		Do(ctx)
	if err != nil {
		return terminal.CloseResult{}, fmt.Errorf("close order failed: %w", err)
	}

	closePrice := decimal.RequireFromString(resp.AvgPrice)
	profit := closePrice.Sub(target.OpenPrice).Mul(target.Volume)
	if target.Side == terminal.SideShort {
		profit = profit.Neg()
	}

	s.forgetTicket(ticket)
	return terminal.CloseResult{
		Ticket:     ticket,
		ClosePrice: closePrice,
		CloseTime:  time.UnixMilli(resp.UpdateTime),
		Profit:     profit,
	}, nil
}
