package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/KNICEX/forex-bot/internal/entity"
	"github.com/KNICEX/forex-bot/internal/service/strategy"
	"github.com/KNICEX/forex-bot/internal/service/terminal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replayFeed 每次取K线都推进一根，模拟行情逐根走完
type replayFeed struct {
	mu     sync.Mutex
	closes []float64
	cursor int
}

func (f *replayFeed) next(count int) []terminal.Kline {
	f.mu.Lock()
	if f.cursor < len(f.closes) {
		f.cursor++
	}
	window := f.closes[:f.cursor]
	f.mu.Unlock()

	if len(window) > count {
		window = window[len(window)-count:]
	}
	klines := make([]terminal.Kline, 0, len(window))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range window {
		d := decimal.NewFromFloat(c)
		klines = append(klines, terminal.Kline{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     d, High: d, Low: d, Close: d,
			Volume: decimal.NewFromInt(1),
		})
	}
	return klines
}

// 先跌后涨再跌的行情，3/5 双均线在第 10 根上穿、第 20 根下穿
func trendReversalCloses() []float64 {
	var closes []float64
	for i := 0; i < 10; i++ {
		closes = append(closes, float64(100-i))
	}
	for i := 0; i < 10; i++ {
		closes = append(closes, 120)
	}
	for i := 0; i < 6; i++ {
		closes = append(closes, 80)
	}
	return closes
}

// 引擎级回放：两个账户各自跑同一段 EURUSD 行情，
// 每个账户恰好一次开多（上穿）、一次平多并反手开空（下穿），再无其他动作
func TestEngineMACrossoverReplay(t *testing.T) {
	t.Parallel()

	newAccount := func(id int64, ticketPrefix string) (Account, *fakeSession) {
		feed := &replayFeed{closes: trendReversalCloses()}
		session := &fakeSession{ticketPrefix: ticketPrefix}
		session.klinesFn = func(symbol string, timeframe terminal.Timeframe, count int) ([]terminal.Kline, error) {
			return feed.next(count), nil
		}

		ma, err := strategy.NewMACrossover("ma_3_5", strategy.MACrossoverParams{
			ShortPeriod: 3,
			LongPeriod:  5,
			Timeframe:   "1h",
		})
		require.NoError(t, err)

		return Account{
			Id:      id,
			Server:  "demo",
			Session: session,
			Assignments: []Assignment{{
				StrategyId: 1,
				Strategy:   ma,
				Symbol:     "EURUSD",
				Interval:   time.Millisecond,
				Volume:     decimal.NewFromFloat(0.1),
			}},
		}, session
	}

	account1, session1 := newAccount(1, "A")
	account2, session2 := newAccount(2, "B")
	tradeRepo := newFakeTradeRepo()

	sup := NewSupervisor(fastConfig(), []Account{account1, account2},
		tradeRepo, &fakeAccountRepo{}, NewEventBus(4096))
	sup.Start()
	defer func() {
		sup.Stop()
		sup.Join()
	}()

	wantActions := []string{"open LONG", "close LONG", "open SHORT"}
	require.Eventually(t, func() bool {
		return len(session1.Actions()) >= 3 && len(session2.Actions()) >= 3
	}, 10*time.Second, time.Millisecond)

	// 行情走完后再评估若干周期，确认没有重复触发
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, wantActions, session1.Actions())
	assert.Equal(t, wantActions, session2.Actions())

	// 每个账户两条成交记录：先多后空，多单带平仓回写
	for _, accountId := range []int64{1, 2} {
		var trades []entity.Trade
		for _, trade := range tradeRepo.Created() {
			if trade.AccountId == accountId {
				trades = append(trades, trade)
			}
		}
		require.Len(t, trades, 2, "account %d", accountId)
		assert.Equal(t, entity.TradeSideBuy, trades[0].Side)
		assert.Equal(t, entity.TradeSideSell, trades[1].Side)
		assert.Equal(t, "EURUSD", trades[0].Symbol)

		_, closed := tradeRepo.Updated()[trades[0].Ticket]
		assert.True(t, closed, "long of account %d should be closed on the downward cross", accountId)
		_, closed = tradeRepo.Updated()[trades[1].Ticket]
		assert.False(t, closed, "short of account %d stays open", accountId)
	}

	sup.Stop()
	sup.Join()
	assert.Equal(t, StateStopped, sup.State())
	assert.Equal(t, wantActions, session1.Actions())
	assert.Equal(t, wantActions, session2.Actions())
}
