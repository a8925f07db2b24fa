package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KNICEX/forex-bot/internal/entity"
	"github.com/KNICEX/forex-bot/internal/repo"
	"github.com/KNICEX/forex-bot/internal/service/strategy"
	"github.com/KNICEX/forex-bot/internal/service/terminal"
	"github.com/shopspring/decimal"
)

var errConnectRefused = errors.New("connect refused")

// fakeSession 脚本化的终端会话，按顺序记录所有交易动作
type fakeSession struct {
	mu sync.Mutex

	connected bool
	// 前 connectFails 次 Connect 失败，-1 表示永远失败
	connectFails int
	connects     int
	disconnects  int

	klinesFn func(symbol string, timeframe terminal.Timeframe, count int) ([]terminal.Kline, error)
	account  terminal.AccountSnapshot

	positions    []terminal.Position
	placeErr     error
	closeErr     error
	ticketPrefix string
	nextTicket   int
	actions      []string
}

func (s *fakeSession) newTicket() string {
	s.nextTicket++
	prefix := s.ticketPrefix
	if prefix == "" {
		prefix = "T"
	}
	return fmt.Sprintf("%s%d", prefix, s.nextTicket)
}

var _ terminal.Session = (*fakeSession)(nil)

func (s *fakeSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.connectFails != 0 {
		if s.connectFails > 0 {
			s.connectFails--
		}
		return errConnectRefused
	}
	s.connected = true
	return nil
}

func (s *fakeSession) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
	s.connected = false
}

func (s *fakeSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSession) AccountInfo(ctx context.Context) (terminal.AccountSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, nil
}

func (s *fakeSession) GetKlines(ctx context.Context, symbol string, timeframe terminal.Timeframe, count int) ([]terminal.Kline, error) {
	s.mu.Lock()
	fn := s.klinesFn
	s.mu.Unlock()
	if fn == nil {
		return nil, terminal.ErrNoData
	}
	return fn(symbol, timeframe, count)
}

func (s *fakeSession) PlaceOrder(ctx context.Context, req terminal.OrderReq) (terminal.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.placeErr != nil {
		return terminal.Position{}, s.placeErr
	}
	pos := terminal.Position{
		Ticket:    s.newTicket(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Volume:    req.Volume,
		OpenPrice: decimal.NewFromInt(100),
		OpenTime:  time.Now(),
	}
	s.positions = append(s.positions, pos)
	s.actions = append(s.actions, "open "+string(req.Side))
	return pos, nil
}

func (s *fakeSession) OpenPositions(ctx context.Context) ([]terminal.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]terminal.Position, len(s.positions))
	copy(out, s.positions)
	return out, nil
}

func (s *fakeSession) ClosePosition(ctx context.Context, ticket string) (terminal.CloseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr != nil {
		return terminal.CloseResult{}, s.closeErr
	}
	for i, pos := range s.positions {
		if pos.Ticket == ticket {
			s.positions = append(s.positions[:i], s.positions[i+1:]...)
			s.actions = append(s.actions, "close "+string(pos.Side))
			return terminal.CloseResult{
				Ticket:     ticket,
				ClosePrice: decimal.NewFromInt(101),
				CloseTime:  time.Now(),
				Profit:     decimal.NewFromInt(1),
			}, nil
		}
	}
	return terminal.CloseResult{}, terminal.ErrPositionNotFound
}

func (s *fakeSession) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.actions))
	copy(out, s.actions)
	return out
}

func (s *fakeSession) seedPosition(symbol string, side terminal.Side) terminal.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := terminal.Position{
		Ticket:    s.newTicket(),
		Symbol:    symbol,
		Side:      side,
		Volume:    decimal.NewFromFloat(0.1),
		OpenPrice: decimal.NewFromInt(100),
		OpenTime:  time.Now(),
	}
	s.positions = append(s.positions, pos)
	return pos
}

// scriptedStrategy 依次吐出预设信号，用尽后一直 NONE
type scriptedStrategy struct {
	mu      sync.Mutex
	name    string
	signals []strategy.Signal
	i       int
}

func (s *scriptedStrategy) Name() string {
	return s.name
}

func (s *scriptedStrategy) CheckSignal(ctx context.Context, session terminal.Session, symbol string) (strategy.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.i >= len(s.signals) {
		return strategy.SignalNone, nil
	}
	sig := s.signals[s.i]
	s.i++
	return sig, nil
}

type funcStrategy struct {
	name string
	fn   func(ctx context.Context, session terminal.Session, symbol string) (strategy.Signal, error)
}

func (s *funcStrategy) Name() string {
	return s.name
}

func (s *funcStrategy) CheckSignal(ctx context.Context, session terminal.Session, symbol string) (strategy.Signal, error) {
	return s.fn(ctx, session, symbol)
}

type fakeTradeRepo struct {
	mu        sync.Mutex
	createErr error
	updateErr error
	created   []entity.Trade
	updated   map[string]repo.TradeClose
}

var _ repo.TradeRepo = (*fakeTradeRepo)(nil)

func newFakeTradeRepo() *fakeTradeRepo {
	return &fakeTradeRepo{
		updated: make(map[string]repo.TradeClose),
	}
}

func (r *fakeTradeRepo) Create(ctx context.Context, trade entity.Trade) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return 0, r.createErr
	}
	r.created = append(r.created, trade)
	return int64(len(r.created)), nil
}

func (r *fakeTradeRepo) UpdateOnClose(ctx context.Context, ticket string, close repo.TradeClose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated[ticket] = close
	return nil
}

func (r *fakeTradeRepo) FindByTicket(ctx context.Context, ticket string) (entity.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, trade := range r.created {
		if trade.Ticket == ticket {
			return trade, nil
		}
	}
	return entity.Trade{}, errors.New("not found")
}

func (r *fakeTradeRepo) Created() []entity.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Trade, len(r.created))
	copy(out, r.created)
	return out
}

func (r *fakeTradeRepo) Updated() map[string]repo.TradeClose {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]repo.TradeClose, len(r.updated))
	for k, v := range r.updated {
		out[k] = v
	}
	return out
}

type fakeAccountRepo struct {
	mu      sync.Mutex
	upserts []entity.Account
}

var _ repo.AccountRepo = (*fakeAccountRepo)(nil)

func (r *fakeAccountRepo) Upsert(ctx context.Context, account entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts = append(r.upserts, account)
	return nil
}

func (r *fakeAccountRepo) Upserts() []entity.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Account, len(r.upserts))
	copy(out, r.upserts)
	return out
}
