package repo

import (
	"context"

	"github.com/KNICEX/forex-bot/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepo interface {
	Upsert(ctx context.Context, account entity.Account) error
}

type accountRepo struct {
	db *gorm.DB
}

func NewAccountRepo(db *gorm.DB) AccountRepo {
	return &accountRepo{
		db: db,
	}
}

func (r *accountRepo) Upsert(ctx context.Context, account entity.Account) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"server", "balance", "equity", "leverage", "updated_at"}),
	}).Create(&account).Error
}
