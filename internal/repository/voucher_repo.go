package repository

import (
	"context"
	"errors"
	"time"

	"foodorder/internal/model"

	"gorm.io/gorm"
)

var (
	ErrVoucherNotFound     = errors.New("优惠券不存在")
	ErrVoucherNotAvailable = errors.New("优惠券已使用或已过期")
)

type VoucherRepository struct {
	db *gorm.DB
}

func NewVoucherRepository(db *gorm.DB) *VoucherRepository {
	return &VoucherRepository{db: db}
}

func (r *VoucherRepository) Create(ctx context.Context, tx *gorm.DB, voucher *model.Voucher) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(voucher).Error
}

func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&voucher).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

// Consume 核销优惠券
// 状态条件 ACTIVE + 未过期保证一张券只能核销一次，
// 影响行数为 0 说明已被用过或已过期
func (r *VoucherRepository) Consume(ctx context.Context, tx *gorm.DB, code, orderNo string, now time.Time) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Voucher{}).
		Where("code = ? AND status = ? AND expires_at > ?", code, model.VoucherStatusActive, now).
		Updates(map[string]interface{}{
			"status":   model.VoucherStatusUsed,
			"used_at":  &now,
			"order_no": orderNo,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVoucherNotAvailable
	}
	return nil
}

// ListExpired 查出已过有效期但状态还是 ACTIVE 的券，供定时任务扫描
func (r *VoucherRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Voucher, error) {
	var vouchers []*model.Voucher
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", model.VoucherStatusActive, now).
		Limit(limit).
		Find(&vouchers).Error
	return vouchers, err
}

// Expire 把单张券置为过期，状态条件防止和核销并发时互相覆盖
func (r *VoucherRepository) Expire(ctx context.Context, voucherID int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Voucher{}).
		Where("id = ? AND status = ?", voucherID, model.VoucherStatusActive).
		Update("status", model.VoucherStatusExpired)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVoucherNotAvailable
	}
	return nil
}

func (r *VoucherRepository) ListByRef(ctx context.Context, ref model.AccountRef, page, pageSize int) ([]*model.Voucher, int64, error) {
	var vouchers []*model.Voucher
	var total int64

	query := byRef(r.db.WithContext(ctx).Model(&model.Voucher{}), ref)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&vouchers).Error

	return vouchers, total, err
}
