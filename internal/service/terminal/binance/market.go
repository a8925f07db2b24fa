package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/forex-bot/internal/service/terminal"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

func (s *Session) GetKlines(ctx context.Context, symbol string, timeframe terminal.Timeframe, count int) ([]terminal.Kline, error) {
	if !s.IsConnected() {
		return nil, terminal.ErrNotConnected
	}
	res, err := s.cli.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe.ToString()).
		Limit(count).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("get klines failed: %w", err)
	}
	if len(res) == 0 {
		return nil, terminal.ErrNoData
	}
	return convertKlines(res), nil
}

func convertKlines(klines []*futures.Kline) []terminal.Kline {
	kls := make([]terminal.Kline, len(klines))
	for i, k := range klines {
		kls[i] = terminal.Kline{
			OpenTime:  time.UnixMilli(k.OpenTime),
			CloseTime: time.UnixMilli(k.CloseTime),
			Open:      decimal.RequireFromString(k.Open),
			Close:     decimal.RequireFromString(k.Close),
			High:      decimal.RequireFromString(k.High),
			Low:       decimal.RequireFromString(k.Low),
			Volume:    decimal.RequireFromString(k.Volume),
		}
	}
	return kls
}

// 币安最新价，用于开仓回包缺少均价时兜底
func (s *Session) lastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := s.cli.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if len(prices) == 0 {
		return decimal.Zero, terminal.ErrNoData
	}
	return decimal.NewFromString(prices[0].Price)
}
