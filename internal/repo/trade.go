package repo

import (
	"context"
	"time"

	"github.com/KNICEX/forex-bot/internal/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TradeClose 平仓回写字段
type TradeClose struct {
	ClosePrice decimal.Decimal
	CloseTime  time.Time
	Commission decimal.Decimal
	Swap       decimal.Decimal
	Profit     decimal.Decimal
}

type TradeRepo interface {
	Create(ctx context.Context, trade entity.Trade) (int64, error)
	UpdateOnClose(ctx context.Context, ticket string, close TradeClose) error
	FindByTicket(ctx context.Context, ticket string) (entity.Trade, error)
}

type tradeRepo struct {
	db *gorm.DB
}

func NewTradeRepo(db *gorm.DB) TradeRepo {
	return &tradeRepo{
		db: db,
	}
}

func (r *tradeRepo) Create(ctx context.Context, trade entity.Trade) (int64, error) {
	err := r.db.WithContext(ctx).Create(&trade).Error
	if err != nil {
		return 0, err
	}
	return trade.Id, nil
}

func (r *tradeRepo) UpdateOnClose(ctx context.Context, ticket string, close TradeClose) error {
	res := r.db.WithContext(ctx).Model(&entity.Trade{}).Where("ticket = ?", ticket).Updates(map[string]any{
		"close_price": close.ClosePrice,
		"close_time":  close.CloseTime,
		"commission":  close.Commission,
		"swap":        close.Swap,
		"profit":      close.Profit,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *tradeRepo) FindByTicket(ctx context.Context, ticket string) (entity.Trade, error) {
	var trade entity.Trade
	err := r.db.WithContext(ctx).Where("ticket = ?", ticket).First(&trade).Error
	if err != nil {
		return entity.Trade{}, err
	}
	return trade, nil
}
