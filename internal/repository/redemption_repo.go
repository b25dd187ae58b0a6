package repository

import (
	"context"
	"errors"
	"time"

	"foodorder/internal/model"

	"gorm.io/gorm"
)

var (
	ErrRedemptionNotFound = errors.New("兑换记录不存在")
)

type RedemptionRepository struct {
	db *gorm.DB
}

func NewRedemptionRepository(db *gorm.DB) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

func (r *RedemptionRepository) Create(ctx context.Context, tx *gorm.DB, redemption *model.Redemption) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(redemption).Error
}

// CountRecentPending 回查重复提交窗口
// 统计同一账户对同一奖励在 since 之后创建、且尚未核销的兑换记录数。
// 行锁能串行化并发的兑换事务，但拦不住"第一次已提交、第二次才拿到锁"的场景，
// 这个回查就是补这个口子的
func (r *RedemptionRepository) CountRecentPending(ctx context.Context, tx *gorm.DB, ref model.AccountRef, rewardID int64, since time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}

	var count int64
	err := byRef(tx.WithContext(ctx).Model(&model.Redemption{}), ref).
		Where("reward_id = ? AND is_used = ? AND created_at >= ?", rewardID, false, since).
		Count(&count).Error
	return count, err
}

// MarkUsed 结算核销时置已使用，状态条件保证只能核销一次
func (r *RedemptionRepository) MarkUsed(ctx context.Context, tx *gorm.DB, redemptionID int64) error {
	if tx == nil {
		tx = r.db
	}

	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&model.Redemption{}).
		Where("id = ? AND is_used = ?", redemptionID, false).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_at": &now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRedemptionNotFound
	}
	return nil
}

func (r *RedemptionRepository) ListByRef(ctx context.Context, ref model.AccountRef, page, pageSize int) ([]*model.Redemption, int64, error) {
	var redemptions []*model.Redemption
	var total int64

	query := byRef(r.db.WithContext(ctx).Model(&model.Redemption{}), ref)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&redemptions).Error

	return redemptions, total, err
}
