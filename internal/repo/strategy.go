package repo

import (
	"context"

	"github.com/KNICEX/forex-bot/internal/entity"
	"gorm.io/gorm"
)

type StrategyRepo interface {
	// Seed 按名字幂等写入策略定义，已存在则不动
	Seed(ctx context.Context, strategy entity.Strategy) error
	FindActive(ctx context.Context) ([]entity.Strategy, error)
	FindByName(ctx context.Context, name string) (entity.Strategy, error)
}

type strategyRepo struct {
	db *gorm.DB
}

func NewStrategyRepo(db *gorm.DB) StrategyRepo {
	return &strategyRepo{
		db: db,
	}
}

func (r *strategyRepo) Seed(ctx context.Context, strategy entity.Strategy) error {
	return r.db.WithContext(ctx).
		Where(entity.Strategy{Name: strategy.Name}).
		FirstOrCreate(&strategy).Error
}

func (r *strategyRepo) FindActive(ctx context.Context) ([]entity.Strategy, error) {
	var strategies []entity.Strategy
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&strategies).Error
	if err != nil {
		return nil, err
	}
	return strategies, nil
}

func (r *strategyRepo) FindByName(ctx context.Context, name string) (entity.Strategy, error) {
	var strategy entity.Strategy
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&strategy).Error
	if err != nil {
		return entity.Strategy{}, err
	}
	return strategy, nil
}
