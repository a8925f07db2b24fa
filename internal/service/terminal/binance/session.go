package binance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KNICEX/forex-bot/internal/service/terminal"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

var _ terminal.Session = (*Session)(nil)

// Session 基于币安 USDS 合约的终端会话实现
// REST 接口本身无长连接，Connect 通过拉取账户信息验证密钥和连通性
type Session struct {
	cli      *futures.Client
	leverage int

	mu        sync.Mutex
	connected bool
	// 开仓订单号 -> symbol，平仓时按 ticket 反查
	tickets map[string]string
}

func NewSession(cli *futures.Client, leverage int) *Session {
	return &Session{
		cli:      cli,
		leverage: leverage,
		tickets:  make(map[string]string),
	}
}

func (s *Session) Connect(ctx context.Context) error {
	if s.IsConnected() {
		return nil
	}
	if _, err := s.cli.NewGetAccountService().Do(ctx); err != nil {
		return fmt.Errorf("binance login failed: %w", err)
	}
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) AccountInfo(ctx context.Context) (terminal.AccountSnapshot, error) {
	if !s.IsConnected() {
		return terminal.AccountSnapshot{}, terminal.ErrNotConnected
	}
	account, err := s.cli.NewGetAccountService().Do(ctx)
	if err != nil {
		return terminal.AccountSnapshot{}, fmt.Errorf("get account failed: %w", err)
	}
	return terminal.AccountSnapshot{
		Balance:   decimal.RequireFromString(account.TotalWalletBalance),
		Equity:    decimal.RequireFromString(account.TotalMarginBalance),
		Leverage:  s.leverage,
		UpdatedAt: time.Now(),
	}, nil
}

func (s *Session) rememberTicket(ticket, symbol string) {
	s.mu.Lock()
	s.tickets[ticket] = symbol
	s.mu.Unlock()
}

func (s *Session) symbolByTicket(ticket string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	symbol, ok := s.tickets[ticket]
	return symbol, ok
}

func (s *Session) forgetTicket(ticket string) {
	s.mu.Lock()
	delete(s.tickets, ticket)
	s.mu.Unlock()
}

func (s *Session) ticketForSymbol(symbol string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ticket, sym := range s.tickets {
		if sym == symbol {
			return ticket, true
		}
	}
	return "", false
}
