package repository

import (
	"context"
	"errors"
	"time"

	"foodorder/internal/model"

	"gorm.io/gorm"
)

var (
	ErrRewardNotFound = errors.New("奖励不存在或已下架")
)

type RewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

// GetActiveForUpdate 带排他行锁读取一条有效奖励
// 无效（不存在 / 已下架 / 已过期）统一返回 ErrRewardNotFound，不区分细节
func (r *RewardRepository) GetActiveForUpdate(ctx context.Context, tx *gorm.DB, rewardID int64, now time.Time) (*model.Reward, error) {
	var reward model.Reward
	err := forUpdate(tx.WithContext(ctx)).
		Where("id = ? AND is_active = ?", rewardID, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		First(&reward).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	return &reward, nil
}

func (r *RewardRepository) ListActive(ctx context.Context, now time.Time) ([]*model.Reward, error) {
	var rewards []*model.Reward
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("points_required ASC").
		Find(&rewards).Error
	return rewards, err
}
