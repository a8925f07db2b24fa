package strategy

import (
	"context"
	"fmt"

	"github.com/KNICEX/forex-bot/internal/service/terminal"
	"github.com/KNICEX/forex-bot/pkg/decimalx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var _ Strategy = (*MACrossover)(nil)

// MACrossover 双均线交叉策略
// 短期均线上穿长期均线给出 BUY，下穿给出 SELL，
// 交叉判断基于最近两根已完成的K线（最后一根未走完，不参与）
type MACrossover struct {
	name        string
	shortPeriod int
	longPeriod  int
	timeframe   terminal.Timeframe
}

type MACrossoverParams struct {
	ShortPeriod int    `json:"short_ma_period"`
	LongPeriod  int    `json:"long_ma_period"`
	Timeframe   string `json:"timeframe"`
}

func NewMACrossover(name string, params MACrossoverParams) (*MACrossover, error) {
	if params.ShortPeriod <= 0 || params.LongPeriod <= 0 {
		return nil, fmt.Errorf("ma periods must be positive, got %d/%d", params.ShortPeriod, params.LongPeriod)
	}
	if params.ShortPeriod >= params.LongPeriod {
		return nil, fmt.Errorf("short period %d must be less than long period %d", params.ShortPeriod, params.LongPeriod)
	}
	return &MACrossover{
		name:        name,
		shortPeriod: params.ShortPeriod,
		longPeriod:  params.LongPeriod,
		timeframe:   terminal.ParseTimeframe(params.Timeframe),
	}, nil
}

func (s *MACrossover) Name() string {
	return s.name
}

func (s *MACrossover) CheckSignal(ctx context.Context, session terminal.Session, symbol string) (Signal, error) {
	// 多取几根，保证上一根完整K线的长均线也算得出来
	count := s.longPeriod + 5
	klines, err := session.GetKlines(ctx, symbol, s.timeframe, count)
	if err != nil {
		return SignalNone, err
	}
	// 长均线需要 longPeriod 根，再加上未完成的最后一根和用于对比的前一根
	if len(klines) < s.longPeriod+2 {
		return SignalNone, terminal.ErrNoData
	}

	closes := lo.Map(klines, func(k terminal.Kline, _ int) decimal.Decimal {
		return k.Close
	})

	// 最近一根完整K线与它的前一根
	last := closes[:len(closes)-1]
	prev := closes[:len(closes)-2]

	lastShort := decimalx.SMA(last, s.shortPeriod)
	lastLong := decimalx.SMA(last, s.longPeriod)
	prevShort := decimalx.SMA(prev, s.shortPeriod)
	prevLong := decimalx.SMA(prev, s.longPeriod)

	if prevShort.LessThanOrEqual(prevLong) && lastShort.GreaterThan(lastLong) {
		return SignalBuy, nil
	}
	if prevShort.GreaterThanOrEqual(prevLong) && lastShort.LessThan(lastLong) {
		return SignalSell, nil
	}
	return SignalNone, nil
}
